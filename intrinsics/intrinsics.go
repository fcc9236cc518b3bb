// Package intrinsics provides the CloudFormation intrinsic functions used by the
// OpenMind descriptor.
//
// The core types are re-exported from cloudformation-schema-go:
//
//	Ref{LogicalName: "OpenMindVPC"}          → {"Ref": "OpenMindVPC"}
//	GetAtt{LogicalName: "ALB", Attribute: "DNSName"} → {"Fn::GetAtt": ["ALB", "DNSName"]}
//	Sub{String: "${AWS::StackName}-web"}     → {"Fn::Sub": "${AWS::StackName}-web"}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// GetAZs represents a CloudFormation Fn::GetAZs intrinsic function.
	GetAZs = intrinsics.GetAZs

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Param creates a Ref for a CloudFormation parameter.
var Param = intrinsics.Param

// AZ selects the index-th availability zone of the stack's region.
func AZ(index int) Select {
	return Select{Index: index, List: GetAZs{Region: ""}}
}

// NameTag returns a Name tag whose value is prefixed with the stack name.
func NameTag(suffix string) Tag {
	return Tag{Key: "Name", Value: Sub{String: "${AWS::StackName}/" + suffix}}
}
