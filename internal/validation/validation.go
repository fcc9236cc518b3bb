// Package validation checks the OpenMind deployment before it is handed to CloudFormation.
//
// This package validates the descriptor in stages:
//   - configuration: field-level checks of the loaded config
//   - synthesis: descriptor invariants (Fargate size, health check timing)
//   - schema: resource property types and allowed values
//   - policy lint: OMI rules over the synthesized template
//   - cfn-lint-go: CloudFormation template validation (library dependency)
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/linter"
	"github.com/openmind/openmind-infra/internal/schema"
	"github.com/openmind/openmind-infra/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Report contains every validation stage's outcome for a configuration.
type Report struct {
	ConfigErrors []string           `json:"config_errors,omitempty"`
	SynthErrors  []string           `json:"synth_errors,omitempty"`
	Schema       *schema.Result     `json:"schema,omitempty"`
	Policy       *linter.Result     `json:"policy,omitempty"`
	CfnLint      *CfnLintResult     `json:"cfn_lint,omitempty"`
	Template     *openmind.Template `json:"-"`
}

// Passed reports whether no stage found an error.
func (r *Report) Passed() bool {
	if len(r.ConfigErrors) > 0 || len(r.SynthErrors) > 0 {
		return false
	}
	if r.Schema != nil && !r.Schema.Valid {
		return false
	}
	if r.Policy != nil && !r.Policy.Success {
		return false
	}
	if r.CfnLint != nil && !r.CfnLint.Passed {
		return false
	}
	return true
}

// Result summarizes the report in the CLI output format.
func (r *Report) Result() openmind.ValidateResult {
	result := openmind.ValidateResult{Success: r.Passed()}
	if r.Template != nil {
		result.Resources = len(r.Template.Resources)
	}

	result.Errors = append(result.Errors, r.ConfigErrors...)
	result.Errors = append(result.Errors, r.SynthErrors...)
	if r.Schema != nil {
		for _, e := range r.Schema.Errors {
			result.Errors = append(result.Errors, "schema: "+e.String())
		}
		for _, w := range r.Schema.Warnings {
			result.Warnings = append(result.Warnings, "schema: "+w.String())
		}
	}
	if r.Policy != nil {
		for _, issue := range r.Policy.Issues {
			formatted := FormatIssue(issue)
			if issue.Severity == linter.SeverityError {
				result.Errors = append(result.Errors, formatted)
			} else {
				result.Warnings = append(result.Warnings, formatted)
			}
		}
	}
	if r.CfnLint != nil {
		result.Errors = append(result.Errors, r.CfnLint.Errors...)
		result.Warnings = append(result.Warnings, r.CfnLint.Warnings...)
		result.Warnings = append(result.Warnings, r.CfnLint.Informational...)
	}
	return result
}

// FormatIssue formats a policy issue for display.
func FormatIssue(issue openmind.LintIssue) string {
	if issue.Resource != "" {
		return fmt.Sprintf("%s: %s (at Resources/%s)", issue.Rule, issue.Message, issue.Resource)
	}
	return fmt.Sprintf("%s: %s", issue.Rule, issue.Message)
}

// ValidateDescriptor runs the full validation pipeline on a configuration.
// Later stages are skipped when an earlier stage leaves nothing to check.
func ValidateDescriptor(cfg *config.Config) (*Report, error) {
	report := &Report{}

	// Step 1: Configuration
	if err := cfg.Validate(); err != nil {
		report.ConfigErrors = splitJoined(err)
		return report, nil
	}

	// Step 2: Synthesis
	tmpl, err := descriptor.Synthesize(cfg)
	if err != nil {
		report.SynthErrors = splitJoined(err)
		return report, nil
	}
	report.Template = tmpl

	// Step 3: Resource schemas
	report.Schema = schema.ValidateTemplate(tmpl, schema.Options{})

	// Step 4: Policy rules
	policy := linter.Lint(tmpl, linter.Options{Expect: linter.ExpectationsFromConfig(cfg)})
	report.Policy = &policy

	// Step 5: cfn-lint
	cfnResult, err := LintTemplate(tmpl)
	if err != nil {
		return nil, fmt.Errorf("running cfn-lint: %w", err)
	}
	report.CfnLint = cfnResult

	return report, nil
}

// splitJoined flattens an errors.Join tree into messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, splitJoined(e)...)
		}
		return out
	}
	return strings.Split(err.Error(), "\n")
}

// LintTemplate runs cfn-lint-go on an in-memory template.
func LintTemplate(tmpl *openmind.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	dir, err := os.MkdirTemp("", "openmind-cfn-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	// Check if file exists
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	l := lint.New(lint.Options{})
	matches, err := l.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	// Categorize issues by level
	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable
	result.Passed = len(result.Errors) == 0

	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}
	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}
