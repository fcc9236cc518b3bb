// Package linter checks a synthesized OpenMind template against deployment policy rules.
//
// Rules:
//
//	OMI001: Exactly one network, cluster, task definition with one container, and service
//	OMI002: Container exposes exactly one port and the load balancer targets it
//	OMI003: Container receives exactly the required secret keys
//	OMI004: Listener port and load balancer scheme match the configuration
//	OMI005: Health check timeout and retries fit within the interval
//	OMI006: Container and target group health checks agree
//	OMI007: Task CPU/memory is a valid Fargate size
//	OMI008: Image tag is immutable-looking
//	OMI009: Deployments roll back on failure within sane healthy-percent bounds
package linter

import (
	"sort"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/config"
)

// Issue is a single policy violation.
type Issue = openmind.LintIssue

// Severities reported by the rules.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Result contains the outcome of linting.
type Result struct {
	Success bool
	Issues  []Issue
}

// Expectations are the configured values a template is checked against.
type Expectations struct {
	SecretKeys   []string
	ListenerPort int
	Public       bool
}

// ExpectationsFromConfig derives expectations from a configuration.
func ExpectationsFromConfig(cfg *config.Config) *Expectations {
	return &Expectations{
		SecretKeys:   append([]string(nil), cfg.Secrets.Keys...),
		ListenerPort: cfg.Service.ListenerPort,
		Public:       cfg.Service.Public,
	}
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// Expect holds the configured values. Nil uses the default configuration.
	Expect *Expectations
}

// Lint runs the enabled rules over tmpl.
// Success is false only when an error-severity issue is found.
func Lint(tmpl *openmind.Template, opts Options) Result {
	expect := opts.Expect
	if expect == nil {
		expect = ExpectationsFromConfig(config.Default())
	}
	ctx := &Context{Template: tmpl, Expect: *expect}

	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(ctx)...)
	}

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
			break
		}
	}

	return Result{
		Success: success,
		Issues:  issues,
	}
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	// Filter by enabled rules if specified
	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}

	return filtered
}

// Context gives rules access to the template being linted.
type Context struct {
	Template *openmind.Template
	Expect   Expectations
}

// OfType returns the logical IDs of resources of the given type, sorted.
func (c *Context) OfType(typ string) []string {
	var names []string
	for name, def := range c.Template.Resources {
		if def.Type == typ {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Only returns the properties of the single resource of the given type.
func (c *Context) Only(typ string) (string, map[string]any, bool) {
	names := c.OfType(typ)
	if len(names) != 1 {
		return "", nil, false
	}
	return names[0], c.Template.Resources[names[0]].Properties, true
}

// Containers returns the container definitions of a task definition.
func Containers(taskDef map[string]any) []map[string]any {
	defs, _ := taskDef["ContainerDefinitions"].([]any)
	var out []map[string]any
	for _, d := range defs {
		if m, ok := d.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func number(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func list(v any) []map[string]any {
	items, _ := v.([]any)
	var out []map[string]any
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
