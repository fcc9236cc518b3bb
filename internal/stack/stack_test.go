package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/resources/ec2"
	"github.com/openmind/openmind-infra/resources/logs"
)

func TestStack_Add(t *testing.T) {
	s := New("test")
	vpc := s.Add("OpenMindVPC", ec2.VPC{CidrBlock: "10.0.0.0/16"})
	s.Add("PublicRouteTable", ec2.RouteTable{VpcId: vpc})

	assert.Equal(t, "OpenMindVPC", vpc.LogicalName)
	assert.Equal(t, []string{"OpenMindVPC", "PublicRouteTable"}, s.LogicalIDs())
	assert.True(t, s.Has("OpenMindVPC"))
	assert.False(t, s.Has("Missing"))
	require.NoError(t, s.Err())

	tmpl, err := s.Template()
	require.NoError(t, err)
	assert.Equal(t, "test", tmpl.Description)
	assert.Equal(t, map[string]any{"Ref": "OpenMindVPC"}, tmpl.Resources["PublicRouteTable"].Properties["VpcId"])
}

func TestStack_DuplicateLogicalID(t *testing.T) {
	s := New("")
	s.Add("OpenMindVPC", ec2.VPC{})
	s.Add("OpenMindVPC", ec2.VPC{CidrBlock: "10.1.0.0/16"})

	err := s.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate logical ID OpenMindVPC")

	_, err = s.Template()
	assert.Error(t, err)
}

func TestStack_InvalidRegistration(t *testing.T) {
	s := New("")
	s.Add("", ec2.VPC{})
	s.Add("Nil", nil)

	err := s.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty logical ID")
	assert.Contains(t, err.Error(), "Nil is nil")
}

func TestStack_Options(t *testing.T) {
	s := New("")
	s.Add("InternetGateway", ec2.InternetGateway{})
	s.Add("Logs", logs.LogGroup{RetentionInDays: 7}, Retain(), DependsOn("InternetGateway"))

	tmpl, err := s.Template()
	require.NoError(t, err)

	def := tmpl.Resources["Logs"]
	assert.Equal(t, "Retain", def.DeletionPolicy)
	assert.Equal(t, "Retain", def.UpdateReplacePolicy)
	assert.Equal(t, []string{"InternetGateway"}, def.DependsOn)
}

func TestStack_Outputs(t *testing.T) {
	s := New("")
	s.Add("OpenMindVPC", ec2.VPC{})
	s.Output("VpcId", openmind.Output{Value: s.Ref("OpenMindVPC")})
	s.Output("VpcCidr", openmind.Output{Value: s.GetAtt("OpenMindVPC", "CidrBlock")})
	s.Output("VpcId", openmind.Output{Value: "again"})

	assert.Equal(t, []string{"VpcId", "VpcCidr"}, s.Outputs())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "duplicate output VpcId")
}

func TestStack_Resource(t *testing.T) {
	s := New("")
	s.Add("OpenMindVPC", ec2.VPC{CidrBlock: "10.0.0.0/16"})

	r, ok := s.Resource("OpenMindVPC")
	require.True(t, ok)
	assert.Equal(t, "AWS::EC2::VPC", r.ResourceType())

	_, ok = s.Resource("Missing")
	assert.False(t, ok)
}
