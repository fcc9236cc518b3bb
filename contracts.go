// Package openmind provides the shared types of the OpenMind deployment descriptor.
//
// The descriptor declares the OpenMind topology (network, ECS Fargate cluster,
// task definition, load-balanced service) as typed Go values that synthesize
// into a CloudFormation template:
//
//	cfg := config.Default()
//	tmpl, err := descriptor.Synthesize(cfg)
//
// The openmind-infra CLI synthesizes, lints, plans and deploys that template.
package openmind

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (ec2.VPC, ecs.Service, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::ECS::Service")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["OpenMindLoadBalancer", "DNSName"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "DNSName")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`

	DeletionPolicy      string `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names a stack output for cross-stack imports.
type Export struct {
	Name any `json:"Name" yaml:"Name"`
}

// LintResult is the JSON output from `openmind-infra lint`.
type LintResult struct {
	Success bool        `json:"success"`
	Issues  []LintIssue `json:"issues,omitempty"`
}

// LintIssue is a single linting issue.
type LintIssue struct {
	Resource string `json:"resource,omitempty"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// ValidateResult is the JSON output from `openmind-infra validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// DiffEntry is a single resource that differs between two templates.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource differences by kind.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffSummary counts resource differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// PlanAction is what the provisioning engine will do to one resource.
type PlanAction string

const (
	ActionNoOp    PlanAction = "no-op"
	ActionCreate  PlanAction = "create"
	ActionUpdate  PlanAction = "update"
	ActionReplace PlanAction = "replace"
	ActionDestroy PlanAction = "destroy"
)

// PlanChange is the planned action for a single resource.
type PlanChange struct {
	Resource string     `json:"resource"`
	Type     string     `json:"type"`
	Action   PlanAction `json:"action"`
	// Reasons lists the property paths or references that caused the action.
	Reasons []string `json:"reasons,omitempty"`
}

// PlanResult is the JSON output from `openmind-infra plan`.
type PlanResult struct {
	Stack   string       `json:"stack,omitempty"`
	Changes []PlanChange `json:"changes"`
}

// IsNoOp returns true if no resource changes.
func (p PlanResult) IsNoOp() bool {
	for _, c := range p.Changes {
		if c.Action != ActionNoOp {
			return false
		}
	}
	return true
}

// Changed returns the changes whose action is not no-op.
func (p PlanResult) Changed() []PlanChange {
	var out []PlanChange
	for _, c := range p.Changes {
		if c.Action != ActionNoOp {
			out = append(out, c)
		}
	}
	return out
}
