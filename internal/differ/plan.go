package differ

import (
	"sort"
	"strings"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/template"
)

// allProperties marks a type whose every property change forces replacement.
const allProperties = "*"

// immutableProperties lists, per resource type, the top-level properties whose
// change makes CloudFormation replace the resource.
var immutableProperties = map[string][]string{
	"AWS::ECS::TaskDefinition":                  {allProperties},
	"AWS::ECS::Cluster":                         {"ClusterName"},
	"AWS::ECS::Service":                         {"Cluster", "LaunchType", "ServiceName"},
	"AWS::EC2::VPC":                             {"CidrBlock", "InstanceTenancy"},
	"AWS::EC2::Subnet":                          {"AvailabilityZone", "CidrBlock", "VpcId"},
	"AWS::EC2::RouteTable":                      {"VpcId"},
	"AWS::EC2::VPCGatewayAttachment":            {"VpcId"},
	"AWS::EC2::Route":                           {"DestinationCidrBlock", "RouteTableId"},
	"AWS::EC2::SubnetRouteTableAssociation":     {"RouteTableId", "SubnetId"},
	"AWS::EC2::NatGateway":                      {"AllocationId", "SubnetId"},
	"AWS::EC2::EIP":                             {"Domain"},
	"AWS::EC2::SecurityGroup":                   {"GroupDescription", "GroupName", "VpcId"},
	"AWS::EC2::SecurityGroupIngress":            {allProperties},
	"AWS::ElasticLoadBalancingV2::LoadBalancer": {"Name", "Scheme", "Type"},
	"AWS::ElasticLoadBalancingV2::TargetGroup":  {"Name", "Port", "Protocol", "TargetType", "VpcId"},
	"AWS::ElasticLoadBalancingV2::Listener":     {"LoadBalancerArn"},
	"AWS::IAM::Role":                            {"Path", "RoleName"},
	"AWS::Logs::LogGroup":                       {"LogGroupName"},
}

// RequiresReplacement reports whether changing property on a resource of
// cfType replaces the resource.
func RequiresReplacement(cfType, property string) bool {
	for _, p := range immutableProperties[cfType] {
		if p == allProperties || p == property {
			return true
		}
	}
	return false
}

// Plan computes the per-resource action that moving from current to desired implies.
// A nil current template plans every resource as a create.
//
// A resource that references a replaced resource through Ref, Fn::GetAtt or
// Fn::Sub is replaced when the reference sits under an immutable property and
// updated otherwise. Replacement cascades until no action changes.
func Plan(current, desired *openmind.Template) openmind.PlanResult {
	if current == nil {
		current = &openmind.Template{}
	}
	if desired == nil {
		desired = &openmind.Template{}
	}

	changes := make(map[string]*openmind.PlanChange)
	for name, def := range current.Resources {
		if _, exists := desired.Resources[name]; !exists {
			changes[name] = &openmind.PlanChange{Resource: name, Type: def.Type, Action: openmind.ActionDestroy}
		}
	}
	for name, def := range desired.Resources {
		prev, exists := current.Resources[name]
		if !exists {
			changes[name] = &openmind.PlanChange{Resource: name, Type: def.Type, Action: openmind.ActionCreate}
			continue
		}
		changes[name] = planResource(name, prev, def)
	}

	propagateReplacements(desired, changes)

	result := openmind.PlanResult{Changes: make([]openmind.PlanChange, 0, len(changes))}
	for _, change := range changes {
		result.Changes = append(result.Changes, *change)
	}
	sort.Slice(result.Changes, func(i, j int) bool {
		return result.Changes[i].Resource < result.Changes[j].Resource
	})
	return result
}

// propagateReplacements applies replacement to the resources that reference
// a replaced resource, repeating until a pass changes nothing.
func propagateReplacements(desired *openmind.Template, changes map[string]*openmind.PlanChange) {
	names := make([]string, 0, len(desired.Resources))
	for name := range desired.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	noted := make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for _, name := range names {
			change := changes[name]
			if change.Action == openmind.ActionCreate || change.Action == openmind.ActionReplace {
				continue
			}
			def := desired.Resources[name]
		properties:
			for _, property := range sortedProperties(def.Properties) {
				for _, ref := range template.References(def.Properties[property]) {
					dep, ok := changes[ref]
					if !ok || dep.Action != openmind.ActionReplace {
						continue
					}
					if RequiresReplacement(def.Type, property) {
						change.Action = openmind.ActionReplace
						change.Reasons = append(change.Reasons, property+" references replaced "+ref)
						changed = true
						break properties
					}
					if key := name + "/" + ref; !noted[key] {
						noted[key] = true
						change.Reasons = append(change.Reasons, "references replaced "+ref)
					}
					if change.Action == openmind.ActionNoOp {
						change.Action = openmind.ActionUpdate
						changed = true
					}
				}
			}
		}
	}
}

func sortedProperties(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func planResource(name string, prev, next openmind.ResourceDef) *openmind.PlanChange {
	change := &openmind.PlanChange{Resource: name, Type: next.Type, Action: openmind.ActionNoOp}

	if prev.Type != next.Type {
		change.Action = openmind.ActionReplace
		change.Reasons = []string{"Type"}
		return change
	}

	paths := compareProperties("", prev.Properties, next.Properties, Options{})
	for _, path := range paths {
		change.Reasons = append(change.Reasons, path)
		property := strings.SplitN(strings.Fields(path)[0], ".", 2)[0]
		if RequiresReplacement(next.Type, property) {
			change.Action = openmind.ActionReplace
		} else if change.Action == openmind.ActionNoOp {
			change.Action = openmind.ActionUpdate
		}
	}

	if change.Action == openmind.ActionNoOp &&
		(prev.DeletionPolicy != next.DeletionPolicy || prev.UpdateReplacePolicy != next.UpdateReplacePolicy) {
		change.Action = openmind.ActionUpdate
		change.Reasons = append(change.Reasons, "DeletionPolicy/UpdateReplacePolicy")
	}
	return change
}
