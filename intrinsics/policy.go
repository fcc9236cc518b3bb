package intrinsics

import (
	"encoding/json"
)

// Json is a shorthand for map[string]any.
type Json = map[string]any

// Any creates a []any slice from the given items.
//
//	SecurityGroups: Any(Ref{LogicalName: "ServiceSecurityGroup"}),
func Any(items ...any) []any {
	return items
}

// PolicyDocument represents an IAM policy document.
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: "2012-10-17", Statement: statements}
}

// PolicyStatement represents an IAM policy statement.
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// Allow creates an Allow statement for the given actions and resources.
func Allow(actions []any, resources ...any) PolicyStatement {
	stmt := PolicyStatement{Effect: "Allow", Action: actions}
	switch len(resources) {
	case 0:
	case 1:
		stmt.Resource = resources[0]
	default:
		stmt.Resource = resources
	}
	return stmt
}

// ServicePrincipal represents a service principal (e.g., ecs-tasks.amazonaws.com).
// Serializes to {"Service": ...} format.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AssumeRolePolicy returns the trust policy letting the given service assume a role.
func AssumeRolePolicy(service string) PolicyDocument {
	return NewPolicyDocument(PolicyStatement{
		Effect:    "Allow",
		Principal: ServicePrincipal{service},
		Action:    "sts:AssumeRole",
	})
}

// List is an alias for Any, read better for CloudFormation list properties.
//
//	Subnets: List(Ref{LogicalName: "PrivateSubnet1"}, Ref{LogicalName: "PrivateSubnet2"}),
func List(items ...any) []any {
	return items
}
