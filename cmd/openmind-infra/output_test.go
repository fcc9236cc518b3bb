package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	openmind "github.com/openmind/openmind-infra"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "Proceed?"))
			assert.Contains(t, out.String(), "Proceed? [y/N]")
		})
	}
}

func TestPrintPlan(t *testing.T) {
	var out bytes.Buffer
	printPlan(&out, openmind.PlanResult{Changes: []openmind.PlanChange{{Resource: "A", Action: openmind.ActionNoOp}}})
	assert.Equal(t, "No changes.\n", out.String())

	out.Reset()
	printPlan(&out, openmind.PlanResult{Changes: []openmind.PlanChange{
		{Resource: "TaskDef", Type: "AWS::ECS::TaskDefinition", Action: openmind.ActionReplace, Reasons: []string{"ContainerDefinitions modified"}},
		{Resource: "OpenMindVPC", Type: "AWS::EC2::VPC", Action: openmind.ActionNoOp},
	}})
	assert.Contains(t, out.String(), "replace  TaskDef (AWS::ECS::TaskDefinition): ContainerDefinitions modified")
	assert.Contains(t, out.String(), "1 of 2 resources change.")
}

func TestEncodeTemplate(t *testing.T) {
	tmpl := &openmind.Template{AWSTemplateFormatVersion: "2010-09-09", Resources: map[string]openmind.ResourceDef{}}

	data, err := encodeTemplate(tmpl, "json")
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"AWSTemplateFormatVersion"`)

	_, err = encodeTemplate(tmpl, "toml")
	assert.Error(t, err)
}
