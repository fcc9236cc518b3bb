package openmind

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrRef_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected string
	}{
		{
			name:     "load balancer dns",
			ref:      AttrRef{Resource: "OpenMindLoadBalancer", Attribute: "DNSName"},
			expected: `{"Fn::GetAtt":["OpenMindLoadBalancer","DNSName"]}`,
		},
		{
			name:     "role arn",
			ref:      AttrRef{Resource: "TaskExecutionRole", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["TaskExecutionRole","Arn"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAttrRef_IsZero(t *testing.T) {
	assert.True(t, AttrRef{}.IsZero())
	assert.False(t, AttrRef{Resource: "TaskRole"}.IsZero())
	assert.False(t, AttrRef{Attribute: "Arn"}.IsZero())
}

func TestPlanResult(t *testing.T) {
	plan := PlanResult{Changes: []PlanChange{
		{Resource: "OpenMindVPC", Action: ActionNoOp},
		{Resource: "TaskDef", Action: ActionReplace},
		{Resource: "OpenMindFargateService", Action: ActionUpdate},
	}}

	assert.False(t, plan.IsNoOp())
	changed := plan.Changed()
	require.Len(t, changed, 2)
	assert.Equal(t, "TaskDef", changed[0].Resource)

	assert.True(t, PlanResult{Changes: []PlanChange{{Action: ActionNoOp}}}.IsNoOp())
	assert.True(t, PlanResult{}.IsNoOp())
}

func TestTemplate_JSONOmitsEmptySections(t *testing.T) {
	tmpl := Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]ResourceDef{
			"Cluster": {Type: "AWS::ECS::Cluster"},
		},
	}

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"AWSTemplateFormatVersion":"2010-09-09","Resources":{"Cluster":{"Type":"AWS::ECS::Cluster"}}}`, string(data))
}
