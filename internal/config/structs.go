package config

import "time"

// Config is the deployment configuration of the OpenMind stack.
type Config struct {
	StackName string `mapstructure:"stack_name" json:"stack_name" yaml:"stack_name"`
	// Region is empty to use the AWS SDK default chain.
	Region    string          `mapstructure:"region" json:"region,omitempty" yaml:"region,omitempty"`
	Registry  RegistryConfig  `mapstructure:"registry" json:"registry" yaml:"registry"`
	Secrets   SecretsConfig   `mapstructure:"secrets" json:"secrets" yaml:"secrets"`
	Network   NetworkConfig   `mapstructure:"network" json:"network" yaml:"network"`
	Task      TaskConfig      `mapstructure:"task" json:"task" yaml:"task"`
	Service   ServiceConfig   `mapstructure:"service" json:"service" yaml:"service"`
	Health    HealthConfig    `mapstructure:"health" json:"health" yaml:"health"`
	Provision ProvisionConfig `mapstructure:"provision" json:"provision" yaml:"provision"`
	Log       LogConfig       `mapstructure:"log" json:"log" yaml:"log"`
}

// RegistryConfig locates the container image in ECR.
type RegistryConfig struct {
	Repository string `mapstructure:"repository" json:"repository" yaml:"repository"`
	ImageTag   string `mapstructure:"image_tag" json:"image_tag" yaml:"image_tag"`
}

// SecretsConfig names the Secrets Manager bundle and the keys injected into the container.
type SecretsConfig struct {
	Name string   `mapstructure:"name" json:"name" yaml:"name"`
	Keys []string `mapstructure:"keys" json:"keys" yaml:"keys"`
}

// NetworkConfig shapes the VPC.
type NetworkConfig struct {
	MaxAZs int    `mapstructure:"max_azs" json:"max_azs" yaml:"max_azs"`
	CIDR   string `mapstructure:"cidr" json:"cidr" yaml:"cidr"`
	// NatGateways is nil for one NAT gateway per AZ. Zero disables NAT egress.
	NatGateways *int `mapstructure:"nat_gateways" json:"nat_gateways,omitempty" yaml:"nat_gateways,omitempty"`
}

// NATCount returns the number of NAT gateways to create.
func (n NetworkConfig) NATCount() int {
	if n.NatGateways == nil {
		return n.MaxAZs
	}
	return *n.NatGateways
}

// TaskConfig sizes the Fargate task.
type TaskConfig struct {
	CPU                 int    `mapstructure:"cpu" json:"cpu" yaml:"cpu"`
	Memory              int    `mapstructure:"memory" json:"memory" yaml:"memory"`
	ContainerPort       int    `mapstructure:"container_port" json:"container_port" yaml:"container_port"`
	EphemeralStorageGiB int    `mapstructure:"ephemeral_storage_gib" json:"ephemeral_storage_gib" yaml:"ephemeral_storage_gib"`
	LogRetentionDays    int    `mapstructure:"log_retention_days" json:"log_retention_days" yaml:"log_retention_days"`
	LogStreamPrefix     string `mapstructure:"log_stream_prefix" json:"log_stream_prefix" yaml:"log_stream_prefix"`
}

// ServiceConfig configures the load-balanced Fargate service.
type ServiceConfig struct {
	DesiredCount           int  `mapstructure:"desired_count" json:"desired_count" yaml:"desired_count"`
	ListenerPort           int  `mapstructure:"listener_port" json:"listener_port" yaml:"listener_port"`
	Public                 bool `mapstructure:"public" json:"public" yaml:"public"`
	MinHealthyPercent      int  `mapstructure:"min_healthy_percent" json:"min_healthy_percent" yaml:"min_healthy_percent"`
	MaxHealthyPercent      int  `mapstructure:"max_healthy_percent" json:"max_healthy_percent" yaml:"max_healthy_percent"`
	CircuitBreakerRollback bool `mapstructure:"circuit_breaker_rollback" json:"circuit_breaker_rollback" yaml:"circuit_breaker_rollback"`
}

// HealthConfig is the single health-check policy shared by the container and the target group.
type HealthConfig struct {
	Path        string        `mapstructure:"path" json:"path" yaml:"path"`
	Interval    time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	Retries     int           `mapstructure:"retries" json:"retries" yaml:"retries"`
	StartPeriod time.Duration `mapstructure:"start_period" json:"start_period" yaml:"start_period"`
}

// ProvisionConfig configures the CloudFormation hand-off.
type ProvisionConfig struct {
	Profile string `mapstructure:"profile" json:"profile,omitempty" yaml:"profile,omitempty"`
	// TemplateBucket stages templates too large to pass inline.
	TemplateBucket string        `mapstructure:"template_bucket" json:"template_bucket,omitempty" yaml:"template_bucket,omitempty"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
}
