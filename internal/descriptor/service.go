package descriptor

import (
	"github.com/openmind/openmind-infra/internal/stack"
	"github.com/openmind/openmind-infra/intrinsics"
	"github.com/openmind/openmind-infra/resources/ec2"
	"github.com/openmind/openmind-infra/resources/ecs"
	elbv2 "github.com/openmind/openmind-infra/resources/elasticloadbalancingv2"
)

// ServiceSpec configures the load-balanced Fargate service.
type ServiceSpec struct {
	DesiredCount           int
	ListenerPort           int
	Public                 bool
	MinHealthyPercent      int
	MaxHealthyPercent      int
	CircuitBreakerRollback bool
}

// Scheme returns the load balancer scheme.
func (s ServiceSpec) Scheme() string {
	if s.Public {
		return "internet-facing"
	}
	return "internal"
}

var allowAllEgress = []ec2.SecurityGroup_Egress{
	{IpProtocol: "-1", CidrIp: "0.0.0.0/0", Description: "Allow all outbound traffic by default"},
}

func addLoadBalancedService(s *stack.Stack, d *Descriptor, network *Network, cluster, taskDef intrinsics.Ref) {
	lbSecurityGroup := s.Add(LoadBalancerSGID, ec2.SecurityGroup{
		GroupDescription: "Load balancer security group for " + ServiceID,
		VpcId:            network.VPC,
		SecurityGroupIngress: []ec2.SecurityGroup_Ingress{
			{
				IpProtocol:  "tcp",
				CidrIp:      "0.0.0.0/0",
				FromPort:    d.Service.ListenerPort,
				ToPort:      d.Service.ListenerPort,
				Description: "Allow from anyone on the listener port",
			},
		},
		SecurityGroupEgress: allowAllEgress,
	})

	serviceSecurityGroup := s.Add(ServiceSecurityGroupID, ec2.SecurityGroup{
		GroupDescription:    "Task security group for " + ServiceID,
		VpcId:               network.VPC,
		SecurityGroupEgress: allowAllEgress,
	})
	s.Add(ServiceIngressID, ec2.SecurityGroupIngress{
		GroupId:               s.GetAtt(serviceSecurityGroup.LogicalName, "GroupId"),
		IpProtocol:            "tcp",
		FromPort:              d.Task.ContainerPort,
		ToPort:                d.Task.ContainerPort,
		SourceSecurityGroupId: s.GetAtt(lbSecurityGroup.LogicalName, "GroupId"),
		Description:           "Load balancer to target",
	})

	loadBalancer := s.Add(LoadBalancerID, elbv2.LoadBalancer{
		Scheme:         d.Service.Scheme(),
		Type:           "application",
		Subnets:        Subnets(network.PublicSubnets),
		SecurityGroups: intrinsics.List(s.GetAtt(lbSecurityGroup.LogicalName, "GroupId")),
		LoadBalancerAttributes: []elbv2.LoadBalancer_Attribute{
			{Key: "deletion_protection.enabled", Value: "false"},
		},
	}, stack.DependsOn(GatewayAttachmentID))

	targetGroup := elbv2.TargetGroup{
		Port:       d.Task.ContainerPort,
		Protocol:   "HTTP",
		TargetType: "ip",
		VpcId:      network.VPC,
		TargetGroupAttributes: []elbv2.TargetGroup_Attribute{
			{Key: "stickiness.enabled", Value: "false"},
		},
	}
	d.Health.ApplyToTargetGroup(&targetGroup)
	tg := s.Add(TargetGroupID, targetGroup)

	s.Add(ListenerID, elbv2.Listener{
		LoadBalancerArn: loadBalancer,
		Port:            d.Service.ListenerPort,
		Protocol:        "HTTP",
		DefaultActions: []elbv2.Listener_Action{
			{Type: "forward", TargetGroupArn: tg},
		},
	})

	subnets, assignPublicIP := network.TaskSubnets()
	s.Add(ServiceID, ecs.Service{
		Cluster:        cluster,
		TaskDefinition: taskDef,
		DesiredCount:   d.Service.DesiredCount,
		LaunchType:     "FARGATE",
		NetworkConfiguration: &ecs.Service_NetworkConfiguration{
			AwsvpcConfiguration: &ecs.Service_AwsVpcConfiguration{
				AssignPublicIp: assignPublicIP,
				Subnets:        subnets,
				SecurityGroups: intrinsics.List(s.GetAtt(serviceSecurityGroup.LogicalName, "GroupId")),
			},
		},
		LoadBalancers: []ecs.Service_LoadBalancer{
			{
				ContainerName:  ContainerName,
				ContainerPort:  d.Task.ContainerPort,
				TargetGroupArn: tg,
			},
		},
		DeploymentConfiguration: &ecs.Service_DeploymentConfiguration{
			MaximumPercent:        d.Service.MaxHealthyPercent,
			MinimumHealthyPercent: d.Service.MinHealthyPercent,
			DeploymentCircuitBreaker: &ecs.Service_DeploymentCircuitBreaker{
				Enable:   true,
				Rollback: d.Service.CircuitBreakerRollback,
			},
		},
		HealthCheckGracePeriodSeconds: d.Health.GracePeriodSeconds(),
		EnableECSManagedTags:          true,
		PropagateTags:                 "SERVICE",
	}, stack.DependsOn(ListenerID, ExecutionRolePolicyID))
}
