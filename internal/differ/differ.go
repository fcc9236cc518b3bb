// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/template"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    openmind.TemplateDiff
	Summary openmind.DiffSummary
}

// HasChanges reports whether any resource differs.
func (r *Result) HasChanges() bool {
	return r.Summary.Total > 0
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(current, desired *openmind.Template, opts Options) (*Result, error) {
	if current == nil || desired == nil {
		return nil, fmt.Errorf("compare: template is nil")
	}
	result := &Result{}

	for name, def := range desired.Resources {
		if _, exists := current.Resources[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, openmind.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range current.Resources {
		if _, exists := desired.Resources[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, openmind.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range current.Resources {
		if def2, exists := desired.Resources[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, openmind.DiffEntry{
					Resource: name,
					Type:     def2.Type,
					Changes:  changes,
				})
			}
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = openmind.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*openmind.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return template.Load(data)
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 openmind.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(sortedCopy(def1.DependsOn), sortedCopy(def2.DependsOn)) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, "DeletionPolicy changed")
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, "UpdateReplacePolicy changed")
	}

	return changes
}

// compareProperties recursively compares property maps. Nested maps are
// descended into; any other differing value is reported at its own path.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := joinPath(prefix, key)

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, path+" added")
			continue
		}
		if deepEqual(val1, val2, opts) {
			continue
		}
		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		changes = append(changes, path+" modified")
	}

	for key := range props1 {
		if _, exists := props2[key]; !exists {
			changes = append(changes, joinPath(prefix, key)+" removed")
		}
	}

	sort.Strings(changes)
	return changes
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// isIntrinsic reports whether m is a single-key intrinsic function object.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts every slice by the JSON encoding of its elements.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		for i, elem := range result {
			data, _ := json.Marshal(elem)
			keys[i] = string(data)
		}
		sort.Sort(byKey{items: result, keys: keys})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

type byKey struct {
	items []any
	keys  []string
}

func (b byKey) Len() int           { return len(b.items) }
func (b byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []openmind.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
