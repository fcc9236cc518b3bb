package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/descriptor"
)

func sampleTemplate(tag string) *openmind.Template {
	return &openmind.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]openmind.ResourceDef{
			"Cluster": {Type: "AWS::ECS::Cluster"},
			"TaskDef": {
				Type: "AWS::ECS::TaskDefinition",
				Properties: map[string]any{
					"ContainerDefinitions": []any{
						map[string]any{"Name": "web", "Image": "openmind:" + tag},
					},
				},
			},
			"Service": {
				Type: "AWS::ECS::Service",
				Properties: map[string]any{
					"Cluster":        map[string]any{"Ref": "Cluster"},
					"TaskDefinition": map[string]any{"Ref": "TaskDef"},
					"DesiredCount":   float64(1),
				},
			},
		},
	}
}

func actions(plan openmind.PlanResult) map[string]openmind.PlanAction {
	out := make(map[string]openmind.PlanAction, len(plan.Changes))
	for _, c := range plan.Changes {
		out[c.Resource] = c.Action
	}
	return out
}

func synth(t *testing.T, mutate func(*config.Config)) *openmind.Template {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	tmpl, err := descriptor.Synthesize(cfg)
	require.NoError(t, err)
	return tmpl
}

func TestPlan_Identical(t *testing.T) {
	plan := Plan(sampleTemplate("v1"), sampleTemplate("v1"))
	assert.True(t, plan.IsNoOp())
	assert.Len(t, plan.Changes, 3)
}

func TestPlan_CreateAndDestroy(t *testing.T) {
	current := sampleTemplate("v1")
	desired := sampleTemplate("v1")
	delete(desired.Resources, "Cluster")
	desired.Resources["LogGroup"] = openmind.ResourceDef{Type: "AWS::Logs::LogGroup"}

	got := actions(Plan(current, desired))
	assert.Equal(t, openmind.ActionDestroy, got["Cluster"])
	assert.Equal(t, openmind.ActionCreate, got["LogGroup"])
}

func TestPlan_NilCurrentCreatesEverything(t *testing.T) {
	for _, c := range Plan(nil, sampleTemplate("v1")).Changes {
		assert.Equal(t, openmind.ActionCreate, c.Action, c.Resource)
	}
}

func TestPlan_ReplacementPropagates(t *testing.T) {
	plan := Plan(sampleTemplate("v1"), sampleTemplate("v2"))

	got := actions(plan)
	assert.Equal(t, openmind.ActionReplace, got["TaskDef"])
	assert.Equal(t, openmind.ActionUpdate, got["Service"])
	assert.Equal(t, openmind.ActionNoOp, got["Cluster"])

	for _, c := range plan.Changes {
		if c.Resource == "Service" {
			assert.Equal(t, []string{"references replaced TaskDef"}, c.Reasons)
		}
	}
}

func TestPlan_MutableChangeIsUpdate(t *testing.T) {
	desired := sampleTemplate("v1")
	desired.Resources["Service"].Properties["DesiredCount"] = float64(3)

	got := actions(Plan(sampleTemplate("v1"), desired))
	assert.Equal(t, openmind.ActionUpdate, got["Service"])
	assert.Equal(t, openmind.ActionNoOp, got["TaskDef"])
}

func TestPlan_TypeChangeReplaces(t *testing.T) {
	desired := sampleTemplate("v1")
	desired.Resources["Cluster"] = openmind.ResourceDef{Type: "AWS::ECS::CapacityProvider"}

	plan := Plan(sampleTemplate("v1"), desired)
	got := actions(plan)
	assert.Equal(t, openmind.ActionReplace, got["Cluster"])
	assert.Equal(t, openmind.ActionReplace, got["Service"], "Service.Cluster is immutable")
	assert.Equal(t, openmind.ActionNoOp, got["TaskDef"])

	for _, c := range plan.Changes {
		if c.Resource == "Service" {
			assert.Equal(t, []string{"Cluster references replaced Cluster"}, c.Reasons)
		}
	}
}

func TestPlan_ReplacementCascades(t *testing.T) {
	current := &openmind.Template{Resources: map[string]openmind.ResourceDef{
		"VPC": {Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.0.0.0/16"}},
		"SG": {Type: "AWS::EC2::SecurityGroup", Properties: map[string]any{
			"GroupDescription": "lb",
			"VpcId":            map[string]any{"Ref": "VPC"},
		}},
		"Ingress": {Type: "AWS::EC2::SecurityGroupIngress", Properties: map[string]any{
			"GroupId":    map[string]any{"Fn::GetAtt": []any{"SG", "GroupId"}},
			"IpProtocol": "tcp",
		}},
		"LB": {Type: "AWS::ElasticLoadBalancingV2::LoadBalancer", Properties: map[string]any{
			"SecurityGroups": []any{map[string]any{"Fn::GetAtt": []any{"SG", "GroupId"}}},
		}},
		"Listener": {Type: "AWS::ElasticLoadBalancingV2::Listener", Properties: map[string]any{
			"LoadBalancerArn": map[string]any{"Ref": "LB"},
		}},
	}}
	desired := &openmind.Template{Resources: map[string]openmind.ResourceDef{}}
	for name, def := range current.Resources {
		desired.Resources[name] = def
	}
	desired.Resources["VPC"] = openmind.ResourceDef{Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.1.0.0/16"}}

	assert.Equal(t, map[string]openmind.PlanAction{
		"VPC":      openmind.ActionReplace,
		"SG":       openmind.ActionReplace,
		"Ingress":  openmind.ActionReplace,
		"LB":       openmind.ActionUpdate,
		"Listener": openmind.ActionNoOp,
	}, actions(Plan(current, desired)))
}

func TestPlan_SynthesizedIdempotent(t *testing.T) {
	plan := Plan(synth(t, nil), synth(t, nil))
	assert.True(t, plan.IsNoOp())
	assert.Empty(t, plan.Changed())
}

func TestPlan_ImageTagOnlyChangesTaskAndService(t *testing.T) {
	current := synth(t, nil)
	desired := synth(t, func(cfg *config.Config) { cfg.Registry.ImageTag = "v2.0.1" })

	changed := Plan(current, desired).Changed()
	require.Len(t, changed, 2)

	got := map[string]openmind.PlanAction{}
	for _, c := range changed {
		got[c.Resource] = c.Action
	}
	assert.Equal(t, map[string]openmind.PlanAction{
		descriptor.TaskDefinitionID: openmind.ActionReplace,
		descriptor.ServiceID:        openmind.ActionUpdate,
	}, got)
}

func TestPlan_CIDRChangeReplacesNetwork(t *testing.T) {
	current := synth(t, nil)
	desired := synth(t, func(cfg *config.Config) { cfg.Network.CIDR = "10.1.0.0/16" })

	got := actions(Plan(current, desired))
	for _, id := range []string{
		descriptor.VPCID,
		descriptor.SubnetID(true, 0),
		descriptor.SubnetID(false, 1),
		descriptor.GatewayAttachmentID,
		descriptor.ServiceSecurityGroupID,
		descriptor.ServiceIngressID,
		descriptor.LoadBalancerSGID,
		descriptor.TargetGroupID,
	} {
		assert.Equal(t, openmind.ActionReplace, got[id], id)
	}
	for _, id := range []string{descriptor.ListenerID, descriptor.LoadBalancerID, descriptor.ServiceID} {
		assert.Equal(t, openmind.ActionUpdate, got[id], id)
	}
	assert.Equal(t, openmind.ActionNoOp, got[descriptor.ClusterID])
	assert.Equal(t, openmind.ActionNoOp, got[descriptor.TaskDefinitionID])
	assert.Equal(t, openmind.ActionNoOp, got[descriptor.InternetGatewayID])
}

func TestRequiresReplacement(t *testing.T) {
	tests := []struct {
		cfType   string
		property string
		want     bool
	}{
		{"AWS::ECS::TaskDefinition", "Cpu", true},
		{"AWS::EC2::Subnet", "AvailabilityZone", true},
		{"AWS::EC2::Subnet", "Tags", false},
		{"AWS::EC2::VPCGatewayAttachment", "VpcId", true},
		{"AWS::EC2::VPCGatewayAttachment", "InternetGatewayId", false},
		{"AWS::ElasticLoadBalancingV2::LoadBalancer", "Scheme", true},
		{"AWS::ElasticLoadBalancingV2::TargetGroup", "HealthCheckPath", false},
		{"AWS::ECS::Service", "DesiredCount", false},
		{"AWS::Custom::Thing", "Anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.cfType+"."+tt.property, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresReplacement(tt.cfType, tt.property))
		})
	}
}
