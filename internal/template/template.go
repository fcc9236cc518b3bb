// Package template builds CloudFormation templates from typed resource declarations.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	openmind "github.com/openmind/openmind-infra"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// Entry is a resource declaration waiting to be serialized.
type Entry struct {
	Resource openmind.Resource
	// DependsOn lists explicit dependencies in addition to the references
	// found in the resource properties.
	DependsOn           []string
	DeletionPolicy      string
	UpdateReplacePolicy string
}

// Builder constructs CloudFormation templates from resource entries.
type Builder struct {
	description string
	entries     map[string]Entry
	outputs     map[string]openmind.Output
	props       map[string]map[string]any
}

// NewBuilder creates a template builder for the given entries keyed by logical ID.
func NewBuilder(entries map[string]Entry) *Builder {
	return &Builder{
		entries: entries,
		outputs: make(map[string]openmind.Output),
		props:   make(map[string]map[string]any),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// SetOutput adds a stack output.
func (b *Builder) SetOutput(name string, output openmind.Output) {
	b.outputs[name] = output
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*openmind.Template, error) {
	for name, entry := range b.entries {
		if entry.Resource == nil {
			return nil, fmt.Errorf("resource %s has no value", name)
		}
		props, err := serializeResource(entry.Resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		b.props[name] = props
	}

	for name, entry := range b.entries {
		for _, dep := range entry.DependsOn {
			if _, ok := b.entries[dep]; !ok {
				return nil, fmt.Errorf("resource %s depends on undefined resource %s", name, dep)
			}
		}
		for _, ref := range References(b.props[name]) {
			if _, ok := b.entries[ref]; !ok {
				return nil, fmt.Errorf("resource %s references undefined resource %s", name, ref)
			}
		}
	}

	// Reject cycles before handing the template to CloudFormation
	order, err := b.Order()
	if err != nil {
		return nil, err
	}

	template := &openmind.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]openmind.ResourceDef, len(order)),
	}

	for _, name := range order {
		entry := b.entries[name]
		var dependsOn []string
		if len(entry.DependsOn) > 0 {
			dependsOn = append([]string(nil), entry.DependsOn...)
			sort.Strings(dependsOn)
		}
		template.Resources[name] = openmind.ResourceDef{
			Type:                entry.Resource.ResourceType(),
			Properties:          b.props[name],
			DependsOn:           dependsOn,
			DeletionPolicy:      entry.DeletionPolicy,
			UpdateReplacePolicy: entry.UpdateReplacePolicy,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]openmind.Output, len(b.outputs))
		for name, output := range b.outputs {
			value, err := normalize(output.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			for _, ref := range References(value) {
				if _, ok := b.entries[ref]; !ok {
					return nil, fmt.Errorf("output %s references undefined resource %s", name, ref)
				}
			}
			output.Value = value
			if output.Export != nil {
				exportName, err := normalize(output.Export.Name)
				if err != nil {
					return nil, fmt.Errorf("serializing export %s: %w", name, err)
				}
				output.Export = &openmind.Export{Name: exportName}
			}
			template.Outputs[name] = output
		}
	}

	return template, nil
}

// Order returns the logical IDs in dependency order.
func (b *Builder) Order() ([]string, error) {
	deps := make(map[string][]string, len(b.entries))
	for name, entry := range b.entries {
		props, ok := b.props[name]
		if !ok && entry.Resource != nil {
			var err error
			if props, err = serializeResource(entry.Resource); err != nil {
				return nil, fmt.Errorf("serializing %s: %w", name, err)
			}
		}
		deps[name] = mergeDeps(entry.DependsOn, References(props))
	}
	return TopologicalSort(deps)
}

// Dependencies returns, for each resource in the template, the logical IDs of the
// resources it depends on through DependsOn, Ref, Fn::GetAtt or Fn::Sub.
func Dependencies(t *openmind.Template) map[string][]string {
	deps := make(map[string][]string, len(t.Resources))
	for name, def := range t.Resources {
		var filtered []string
		for _, dep := range mergeDeps(def.DependsOn, References(def.Properties)) {
			if _, ok := t.Resources[dep]; ok {
				filtered = append(filtered, dep)
			}
		}
		deps[name] = filtered
	}
	return deps
}

// TopologicalSort orders nodes so that each node comes after its dependencies.
// Dependencies that are not themselves nodes are ignored.
func TopologicalSort(deps map[string][]string) ([]string, error) {
	dependents := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range deps {
		inDegree[name] = 0
	}

	for name, nodeDeps := range deps {
		for _, dep := range nodeDeps {
			if _, exists := deps[dep]; exists {
				dependents[dep] = append(dependents[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue) // Deterministic order

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(deps) {
		return nil, detectCycle(deps)
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if _, exists := deps[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return errors.New("circular dependency detected: " + strings.Join(cycle, " → "))
	}

	return errors.New("circular dependency detected")
}

// References returns the sorted logical IDs referenced by Ref, Fn::GetAtt and
// Fn::Sub anywhere inside v. Pseudo parameters are skipped.
func References(v any) []string {
	return collect(v, false)
}

// AttributeReferences returns the sorted logical IDs whose attributes are read
// through Fn::GetAtt or ${Name.Attr} inside v.
func AttributeReferences(v any) []string {
	return collect(v, true)
}

func collect(v any, attrsOnly bool) []string {
	seen := make(map[string]bool)
	collectRefs(v, seen, attrsOnly)

	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(v any, seen map[string]bool, attrsOnly bool) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if ref, ok := val["Ref"].(string); ok {
				if !attrsOnly {
					addRef(ref, seen)
				}
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				switch ga := getAtt.(type) {
				case []any:
					if len(ga) > 0 {
						if name, ok := ga[0].(string); ok {
							addRef(name, seen)
						}
					}
				case string:
					addRef(strings.SplitN(ga, ".", 2)[0], seen)
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSubRefs(sub, seen, attrsOnly)
				return
			}
		}
		for _, elem := range val {
			collectRefs(elem, seen, attrsOnly)
		}
	case []any:
		for _, elem := range val {
			collectRefs(elem, seen, attrsOnly)
		}
	}
}

// collectSubRefs extracts ${Name} and ${Name.Attr} variables from Fn::Sub,
// skipping variables bound by the optional variable map.
func collectSubRefs(sub any, seen map[string]bool, attrsOnly bool) {
	var (
		str  string
		vars map[string]any
	)
	switch s := sub.(type) {
	case string:
		str = s
	case []any:
		if len(s) > 0 {
			str, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
			for _, value := range vars {
				collectRefs(value, seen, attrsOnly)
			}
		}
	}

	for {
		start := strings.Index(str, "${")
		if start < 0 {
			return
		}
		end := strings.Index(str[start:], "}")
		if end < 0 {
			return
		}
		name := str[start+2 : start+end]
		str = str[start+end+1:]

		// ${!Literal} is an escaped literal
		if strings.HasPrefix(name, "!") {
			continue
		}
		parts := strings.SplitN(name, ".", 2)
		if _, bound := vars[parts[0]]; bound {
			continue
		}
		if attrsOnly && len(parts) == 1 {
			continue
		}
		addRef(parts[0], seen)
	}
}

func addRef(name string, seen map[string]bool) {
	if name == "" || strings.HasPrefix(name, "AWS::") {
		return
	}
	seen[name] = true
}

func mergeDeps(explicit, implicit []string) []string {
	set := make(map[string]bool, len(explicit)+len(implicit))
	for _, d := range explicit {
		set[d] = true
	}
	for _, d := range implicit {
		set[d] = true
	}
	merged := make([]string, 0, len(set))
	for d := range set {
		merged = append(merged, d)
	}
	sort.Strings(merged)
	return merged
}

// serializeResource converts a typed resource to CloudFormation properties.
func serializeResource(r openmind.Resource) (map[string]any, error) {
	value, err := normalize(r)
	if err != nil {
		return nil, err
	}
	props, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s does not serialize to an object", r.ResourceType())
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

// normalize converts a Go value to its JSON form and drops empty objects,
// which encoding/json cannot omit for struct fields.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return prune(out), nil
}

func prune(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for key, elem := range val {
			pruned := prune(elem)
			if m, ok := pruned.(map[string]any); ok && len(m) == 0 {
				delete(val, key)
				continue
			}
			val[key] = pruned
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = prune(elem)
		}
		return val
	default:
		return v
	}
}

// ToJSON serializes the template to JSON.
func ToJSON(t *openmind.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *openmind.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Load parses a template from JSON or YAML bytes.
func Load(data []byte) (*openmind.Template, error) {
	var t openmind.Template
	if err := json.Unmarshal(data, &t); err != nil {
		if yerr := yaml.Unmarshal(data, &t); yerr != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", yerr)
		}
		// Round-trip through JSON so YAML integers compare equal to JSON numbers
		normalized, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		t = openmind.Template{}
		if err := json.Unmarshal(normalized, &t); err != nil {
			return nil, err
		}
	}
	if t.Resources == nil {
		t.Resources = make(map[string]openmind.ResourceDef)
	}
	return &t, nil
}
