// Package iam contains the AWS::IAM resource types for ECS task roles.
package iam

// Role is an AWS::IAM::Role.
type Role struct {
	RoleName                 any           `json:"RoleName,omitempty"`
	AssumeRolePolicyDocument any           `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any         `json:"ManagedPolicyArns,omitempty"`
	Policies                 []Role_Policy `json:"Policies,omitempty"`
	Tags                     []any         `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Role_Policy is an inline role policy.
type Role_Policy struct {
	PolicyName     string `json:"PolicyName"`
	PolicyDocument any    `json:"PolicyDocument"`
}

// Policy is an AWS::IAM::Policy attached to roles.
type Policy struct {
	PolicyName     any   `json:"PolicyName"`
	PolicyDocument any   `json:"PolicyDocument"`
	Roles          []any `json:"Roles,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Policy) ResourceType() string { return "AWS::IAM::Policy" }
