// Package descriptor declares the OpenMind deployment topology and synthesizes it
// into a CloudFormation template.
//
// The topology is a VPC spread over the configured availability zones, an ECS
// cluster, a Fargate task definition running the application image from ECR
// with secrets from Secrets Manager, and a Fargate service behind an
// Application Load Balancer whose DNS name is the stack's main output.
package descriptor

import (
	"errors"
	"fmt"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/internal/stack"
	"github.com/openmind/openmind-infra/intrinsics"
	"github.com/openmind/openmind-infra/resources/ecs"
)

// Description is the template description.
const Description = "OpenMind application on ECS Fargate behind an Application Load Balancer"

// Descriptor is the full, validated declaration of the deployment.
type Descriptor struct {
	StackName string
	Network   NetworkSpec
	Image     ImageRef
	Secrets   SecretRef
	Task      TaskSpec
	Service   ServiceSpec
	Health    HealthCheckPolicy
}

// FromConfig maps a configuration onto a descriptor.
func FromConfig(cfg *config.Config) *Descriptor {
	return &Descriptor{
		StackName: cfg.StackName,
		Network: NetworkSpec{
			MaxAZs:      cfg.Network.MaxAZs,
			CIDR:        cfg.Network.CIDR,
			NatGateways: cfg.Network.NATCount(),
		},
		Image: ImageRef{
			Repository: cfg.Registry.Repository,
			Tag:        cfg.Registry.ImageTag,
		},
		Secrets: SecretRef{
			Name: cfg.Secrets.Name,
			Keys: append([]string(nil), cfg.Secrets.Keys...),
		},
		Task: TaskSpec{
			Family:              cfg.StackName + TaskDefinitionID,
			CPU:                 cfg.Task.CPU,
			MemoryMiB:           cfg.Task.Memory,
			ContainerPort:       cfg.Task.ContainerPort,
			EphemeralStorageGiB: cfg.Task.EphemeralStorageGiB,
			LogRetentionDays:    cfg.Task.LogRetentionDays,
			LogStreamPrefix:     cfg.Task.LogStreamPrefix,
		},
		Service: ServiceSpec{
			DesiredCount:           cfg.Service.DesiredCount,
			ListenerPort:           cfg.Service.ListenerPort,
			Public:                 cfg.Service.Public,
			MinHealthyPercent:      cfg.Service.MinHealthyPercent,
			MaxHealthyPercent:      cfg.Service.MaxHealthyPercent,
			CircuitBreakerRollback: cfg.Service.CircuitBreakerRollback,
		},
		Health: NewHealthCheckPolicy(cfg.Health, cfg.Task.ContainerPort),
	}
}

// Validate checks the invariants that CloudFormation would otherwise reject late.
func (d *Descriptor) Validate() error {
	var errs []error

	if d.Network.MaxAZs < 1 {
		errs = append(errs, fmt.Errorf("network needs at least one availability zone, got %d", d.Network.MaxAZs))
	}
	if d.Image.Repository == "" || d.Image.Tag == "" {
		errs = append(errs, fmt.Errorf("image reference %q needs a repository and a tag", d.Image.String()))
	}
	if d.Secrets.Name == "" {
		errs = append(errs, errors.New("secret bundle name is required"))
	}
	if err := CheckFargateSize(d.Task.CPU, d.Task.MemoryMiB); err != nil {
		errs = append(errs, err)
	}
	if d.Health.Port != d.Task.ContainerPort {
		errs = append(errs, fmt.Errorf("health check port %d does not match container port %d", d.Health.Port, d.Task.ContainerPort))
	}
	if err := d.Health.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Stack declares every resource and output of the deployment.
func (d *Descriptor) Stack() (*stack.Stack, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	s := stack.New(Description)

	network, err := addNetwork(s, d.Network)
	if err != nil {
		return nil, err
	}

	cluster := s.Add(ClusterID, ecs.Cluster{
		Tags: []any{intrinsics.NameTag(ClusterID)},
	})
	taskDef := addTaskDefinition(s, d)
	addLoadBalancedService(s, d, network, cluster, taskDef)
	addOutputs(s)

	if err := s.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func addOutputs(s *stack.Stack) {
	s.Output(OutputLoadBalancerDNS, openmind.Output{
		Description: "DNS name of the Application Load Balancer",
		Value:       s.GetAtt(LoadBalancerID, "DNSName"),
	})
	s.Output(OutputServiceURL, openmind.Output{
		Description: "HTTP URL of the OpenMind service",
		Value:       intrinsics.Sub{String: "http://${" + LoadBalancerID + ".DNSName}"},
	})
	s.Output(OutputClusterName, openmind.Output{
		Description: "Name of the ECS cluster",
		Value:       s.Ref(ClusterID),
	})
	s.Output(OutputServiceName, openmind.Output{
		Description: "Name of the ECS service",
		Value:       s.GetAtt(ServiceID, "Name"),
	})
}

// Build validates cfg and declares the deployment stack.
func Build(cfg *config.Config) (*stack.Stack, error) {
	return FromConfig(cfg).Stack()
}

// Synthesize builds the CloudFormation template for cfg.
func Synthesize(cfg *config.Config) (*openmind.Template, error) {
	s, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	return s.Template()
}
