package ec2

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openmind "github.com/openmind/openmind-infra"
)

func TestResourceTypes(t *testing.T) {
	tests := []struct {
		resource openmind.Resource
		expected string
	}{
		{VPC{}, "AWS::EC2::VPC"},
		{Subnet{}, "AWS::EC2::Subnet"},
		{InternetGateway{}, "AWS::EC2::InternetGateway"},
		{VPCGatewayAttachment{}, "AWS::EC2::VPCGatewayAttachment"},
		{RouteTable{}, "AWS::EC2::RouteTable"},
		{Route{}, "AWS::EC2::Route"},
		{SubnetRouteTableAssociation{}, "AWS::EC2::SubnetRouteTableAssociation"},
		{EIP{}, "AWS::EC2::EIP"},
		{NatGateway{}, "AWS::EC2::NatGateway"},
		{SecurityGroup{}, "AWS::EC2::SecurityGroup"},
		{SecurityGroupIngress{}, "AWS::EC2::SecurityGroupIngress"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resource.ResourceType())
		})
	}
}

func TestSubnet_PrivateKeepsMapPublicIpFalse(t *testing.T) {
	data, err := json.Marshal(Subnet{CidrBlock: "10.0.128.0/18"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"CidrBlock":"10.0.128.0/18","MapPublicIpOnLaunch":false}`, string(data))
}
