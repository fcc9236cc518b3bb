package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/descriptor"
	"github.com/openmind/openmind-infra/internal/provision"
)

// execute runs the CLI with args and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func synthToFile(t *testing.T, args ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.json")
	_, err := execute(t, "", append([]string{"synth", "-o", path, "--log-level", "error"}, args...)...)
	require.NoError(t, err)
	return path
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	want := []string{"synth", "validate", "lint", "graph", "diff", "plan", "preflight", "deploy", "destroy", "outputs", "watch", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "log-level", "stack-name", "region", "image-tag", "repository", "secret-name"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSynth_JSON(t *testing.T) {
	out, err := execute(t, "", "synth")
	require.NoError(t, err)

	var tmpl openmind.Template
	require.NoError(t, json.Unmarshal([]byte(out), &tmpl))
	assert.Contains(t, tmpl.Resources, descriptor.ServiceID)
	assert.Contains(t, tmpl.Outputs, descriptor.OutputLoadBalancerDNS)
}

func TestSynth_YAMLWithFlagOverride(t *testing.T) {
	out, err := execute(t, "", "synth", "-f", "yaml", "--image-tag", "v2.3.4")
	require.NoError(t, err)
	assert.Contains(t, out, "AWSTemplateFormatVersion")
	assert.Contains(t, out, "openmind:v2.3.4")
}

func TestSynth_OutputFile(t *testing.T) {
	path := synthToFile(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), descriptor.TaskDefinitionID)
}

func TestSynth_Errors(t *testing.T) {
	_, err := execute(t, "", "synth", "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "synth", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate_ConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openmind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  max_azs: 0\n"), 0644))

	out, err := execute(t, "", "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "max_azs")
}

func TestLint(t *testing.T) {
	out, err := execute(t, "", "lint")
	require.NoError(t, err)
	assert.Contains(t, out, "No issues found.")

	out, err = execute(t, "", "lint", "--image-tag", "latest", "-f", "json")
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.code)

	var result openmind.LintResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, "OMI008", result.Issues[0].Rule)
}

func TestLint_RulesFilter(t *testing.T) {
	out, err := execute(t, "", "lint", "--image-tag", "latest", "--rules", "omi001,OMI002")
	require.NoError(t, err)
	assert.Contains(t, out, "No issues found.")
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "", "graph", "-c")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, descriptor.LoadBalancerID)

	_, err = execute(t, "", "graph", "-f", "svg")
	assert.ErrorContains(t, err, "unknown format")
}

func TestDiff(t *testing.T) {
	current := synthToFile(t)

	out, err := execute(t, "", "diff", current)
	require.NoError(t, err)
	assert.Contains(t, out, "Templates are identical.")

	out, err = execute(t, "", "diff", current, "--image-tag", "v9")
	require.NoError(t, err)
	assert.Contains(t, out, "~ "+descriptor.TaskDefinitionID)
	assert.Contains(t, out, "0 added, 0 removed, 1 modified")

	_, err = execute(t, "", "diff")
	assert.Error(t, err)
}

func TestPlan_Against(t *testing.T) {
	current := synthToFile(t)

	out, err := execute(t, "", "plan", "--against", current)
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")

	out, err = execute(t, "", "plan", "--against", current, "--image-tag", "v9", "-f", "json")
	require.NoError(t, err)

	var plan openmind.PlanResult
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	changed := plan.Changed()
	require.Len(t, changed, 2)
	assert.Equal(t, descriptor.ServiceID, changed[0].Resource)
	assert.Equal(t, openmind.ActionUpdate, changed[0].Action)
	assert.Equal(t, descriptor.TaskDefinitionID, changed[1].Resource)
	assert.Equal(t, openmind.ActionReplace, changed[1].Action)

	_, err = execute(t, "", "plan", "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

// describedStack answers DescribeStacks with a fixed stack and fails every
// other CloudFormation call.
type describedStack struct {
	provision.CloudFormationAPI
	stack cftypes.Stack
}

func (d *describedStack) DescribeStacks(context.Context, *cloudformation.DescribeStacksInput, ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{d.stack}}, nil
}

func stubAWSSession(t *testing.T, cfn provision.CloudFormationAPI) {
	t.Helper()
	original := newAWSSession
	t.Cleanup(func() { newAWSSession = original })
	newAWSSession = func(_ context.Context, cfg *config.Config) (*awsSession, error) {
		return &awsSession{
			engine: provision.NewEngine(cfn, cfg.StackName),
			target: &provision.ExecutionContext{
				Account:   "123456789012",
				Region:    "eu-west-1",
				StackName: cfg.StackName,
			},
		}, nil
	}
}

func TestOutputs_ShowsStackStatus(t *testing.T) {
	stubAWSSession(t, &describedStack{stack: cftypes.Stack{
		StackName:   aws.String(config.DefaultStackName),
		StackStatus: cftypes.StackStatusUpdateComplete,
		Outputs: []cftypes.Output{
			{OutputKey: aws.String(descriptor.OutputLoadBalancerDNS), OutputValue: aws.String("openmind-123.us-east-1.elb.amazonaws.com")},
		},
	}})

	out, err := execute(t, "", "outputs")
	require.NoError(t, err)
	assert.Equal(t, "OpenMindInfraStack (UPDATE_COMPLETE)\nOpenMindLoadBalancerDNS: openmind-123.us-east-1.elb.amazonaws.com\n", out)

	out, err = execute(t, "", "outputs", "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "UPDATE_COMPLETE")
	assert.Contains(t, out, descriptor.OutputLoadBalancerDNS)
}

func TestDestroy_Cancelled(t *testing.T) {
	stubAWSSession(t, nil)

	out, err := execute(t, "n\n", "destroy", "--stack-name", "OpenMindStaging")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete stack OpenMindStaging in account 123456789012 (eu-west-1)?")
	assert.Contains(t, out, "Destroy cancelled.")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "openmind-infra "))
}
