// Package ecs contains the AWS::ECS resource types for Fargate workloads.
package ecs

// Cluster is an AWS::ECS::Cluster.
type Cluster struct {
	ClusterName     any                       `json:"ClusterName,omitempty"`
	ClusterSettings []Cluster_ClusterSettings `json:"ClusterSettings,omitempty"`
	Tags            []any                     `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Cluster) ResourceType() string { return "AWS::ECS::Cluster" }

// Cluster_ClusterSettings is a cluster setting such as containerInsights.
type Cluster_ClusterSettings struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// TaskDefinition is an AWS::ECS::TaskDefinition.
type TaskDefinition struct {
	Family                  any                                  `json:"Family,omitempty"`
	Cpu                     string                               `json:"Cpu,omitempty"`
	Memory                  string                               `json:"Memory,omitempty"`
	NetworkMode             string                               `json:"NetworkMode,omitempty"`
	RequiresCompatibilities []any                                `json:"RequiresCompatibilities,omitempty"`
	ExecutionRoleArn        any                                  `json:"ExecutionRoleArn,omitempty"`
	TaskRoleArn             any                                  `json:"TaskRoleArn,omitempty"`
	EphemeralStorage        *TaskDefinition_EphemeralStorage     `json:"EphemeralStorage,omitempty"`
	ContainerDefinitions    []TaskDefinition_ContainerDefinition `json:"ContainerDefinitions,omitempty"`
	Tags                    []any                                `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (TaskDefinition) ResourceType() string { return "AWS::ECS::TaskDefinition" }

// TaskDefinition_EphemeralStorage sizes the task's ephemeral storage.
type TaskDefinition_EphemeralStorage struct {
	SizeInGiB int `json:"SizeInGiB"`
}

// TaskDefinition_ContainerDefinition describes one container of a task.
type TaskDefinition_ContainerDefinition struct {
	Name             string                           `json:"Name"`
	Image            any                              `json:"Image"`
	Essential        bool                             `json:"Essential"`
	PortMappings     []TaskDefinition_PortMapping     `json:"PortMappings,omitempty"`
	Environment      []TaskDefinition_KeyValuePair    `json:"Environment,omitempty"`
	Secrets          []TaskDefinition_Secret          `json:"Secrets,omitempty"`
	LogConfiguration *TaskDefinition_LogConfiguration `json:"LogConfiguration,omitempty"`
	HealthCheck      *TaskDefinition_HealthCheck      `json:"HealthCheck,omitempty"`
}

// TaskDefinition_PortMapping exposes a container port.
type TaskDefinition_PortMapping struct {
	ContainerPort int    `json:"ContainerPort"`
	Protocol      string `json:"Protocol,omitempty"`
}

// TaskDefinition_KeyValuePair is a plain environment variable.
type TaskDefinition_KeyValuePair struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// TaskDefinition_Secret injects a secret into the container environment.
type TaskDefinition_Secret struct {
	Name      string `json:"Name"`
	ValueFrom any    `json:"ValueFrom"`
}

// TaskDefinition_LogConfiguration routes container output to a log driver.
type TaskDefinition_LogConfiguration struct {
	LogDriver string         `json:"LogDriver"`
	Options   map[string]any `json:"Options,omitempty"`
}

// TaskDefinition_HealthCheck is the container-level health check.
// Durations are in seconds.
type TaskDefinition_HealthCheck struct {
	Command     []string `json:"Command"`
	Interval    int      `json:"Interval,omitempty"`
	Timeout     int      `json:"Timeout,omitempty"`
	Retries     int      `json:"Retries,omitempty"`
	StartPeriod int      `json:"StartPeriod,omitempty"`
}

// Service is an AWS::ECS::Service.
type Service struct {
	ServiceName                   any                              `json:"ServiceName,omitempty"`
	Cluster                       any                              `json:"Cluster,omitempty"`
	TaskDefinition                any                              `json:"TaskDefinition,omitempty"`
	DesiredCount                  int                              `json:"DesiredCount"`
	LaunchType                    string                           `json:"LaunchType,omitempty"`
	NetworkConfiguration          *Service_NetworkConfiguration    `json:"NetworkConfiguration,omitempty"`
	LoadBalancers                 []Service_LoadBalancer           `json:"LoadBalancers,omitempty"`
	DeploymentConfiguration       *Service_DeploymentConfiguration `json:"DeploymentConfiguration,omitempty"`
	HealthCheckGracePeriodSeconds int                              `json:"HealthCheckGracePeriodSeconds,omitempty"`
	EnableECSManagedTags          bool                             `json:"EnableECSManagedTags,omitempty"`
	PropagateTags                 string                           `json:"PropagateTags,omitempty"`
	Tags                          []any                            `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Service) ResourceType() string { return "AWS::ECS::Service" }

// Service_NetworkConfiguration wraps the awsvpc configuration.
type Service_NetworkConfiguration struct {
	AwsvpcConfiguration *Service_AwsVpcConfiguration `json:"AwsvpcConfiguration"`
}

// Service_AwsVpcConfiguration places tasks in subnets and security groups.
type Service_AwsVpcConfiguration struct {
	AssignPublicIp string `json:"AssignPublicIp,omitempty"`
	Subnets        []any  `json:"Subnets"`
	SecurityGroups []any  `json:"SecurityGroups,omitempty"`
}

// Service_LoadBalancer registers a container port with a target group.
type Service_LoadBalancer struct {
	ContainerName  string `json:"ContainerName"`
	ContainerPort  int    `json:"ContainerPort"`
	TargetGroupArn any    `json:"TargetGroupArn"`
}

// Service_DeploymentConfiguration bounds rolling deployments.
type Service_DeploymentConfiguration struct {
	MaximumPercent           int                               `json:"MaximumPercent"`
	MinimumHealthyPercent    int                               `json:"MinimumHealthyPercent"`
	DeploymentCircuitBreaker *Service_DeploymentCircuitBreaker `json:"DeploymentCircuitBreaker,omitempty"`
}

// Service_DeploymentCircuitBreaker stops, and optionally rolls back, failing deployments.
type Service_DeploymentCircuitBreaker struct {
	Enable   bool `json:"Enable"`
	Rollback bool `json:"Rollback"`
}
