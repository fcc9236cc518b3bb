// Package config loads the OpenMind deployment configuration from defaults,
// an optional config file, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openmind/openmind-infra/internal/logger"
)

const (
	// Default configuration values
	DefaultStackName  = "OpenMindInfraStack"
	DefaultRepository = "openmind"
	DefaultImageTag   = "bd68dfce2ec3bad2507ce9611e3710333fc8966f"
	DefaultSecretName = "openmind"

	defaultLogLevel = "info"

	// Environment variable prefix
	envPrefix = "OPENMIND"
)

// DefaultSecretKeys are the keys of the secret bundle injected into the container.
var DefaultSecretKeys = []string{
	"JIRA_API_KEY",
	"CONFLUENCE_USERNAME",
	"CONFLUENCE_SPACE_KEY",
	"HF_API_TOKEN",
	"SLACK_BOT_TOKEN",
	"SLACK_SIGNING_SECRET",
	"INIT_TOKEN",
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"stack-name":  "stack_name",
	"region":      "region",
	"image-tag":   "registry.image_tag",
	"repository":  "registry.repository",
	"secret-name": "secrets.name",
	"log-level":   "log.level",
}

// Default returns the configuration that reproduces the original OpenMind stack.
func Default() *Config {
	return &Config{
		StackName: DefaultStackName,
		Registry: RegistryConfig{
			Repository: DefaultRepository,
			ImageTag:   DefaultImageTag,
		},
		Secrets: SecretsConfig{
			Name: DefaultSecretName,
			Keys: append([]string(nil), DefaultSecretKeys...),
		},
		Network: NetworkConfig{
			MaxAZs: 2,
			CIDR:   "10.0.0.0/16",
		},
		Task: TaskConfig{
			CPU:                 2048,
			Memory:              4096,
			ContainerPort:       3000,
			EphemeralStorageGiB: 46,
			LogRetentionDays:    7,
			LogStreamPrefix:     "OpenMindAppContainer",
		},
		Service: ServiceConfig{
			DesiredCount:           1,
			ListenerPort:           80,
			Public:                 true,
			MinHealthyPercent:      100,
			MaxHealthyPercent:      200,
			CircuitBreakerRollback: true,
		},
		Health: HealthConfig{
			Path:        "/health",
			Interval:    300 * time.Second,
			Timeout:     60 * time.Second,
			Retries:     3,
			StartPeriod: 5 * time.Minute,
		},
		Provision: ProvisionConfig{
			Timeout: 30 * time.Minute,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}

// Load builds the configuration from defaults, the optional config file at path,
// OPENMIND_* environment variables and the given flags, in increasing precedence,
// and validates it.
// For example: OPENMIND_REGISTRY_IMAGE_TAG=v2
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
		}
	}

	if flags != nil {
		for flag, key := range FlagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", flag, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.SetDefaults()
	return cfg, nil
}

func setViperDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("stack_name", d.StackName)
	v.SetDefault("region", d.Region)
	v.SetDefault("registry.repository", d.Registry.Repository)
	v.SetDefault("registry.image_tag", d.Registry.ImageTag)
	v.SetDefault("secrets.name", d.Secrets.Name)
	v.SetDefault("secrets.keys", d.Secrets.Keys)
	v.SetDefault("network.max_azs", d.Network.MaxAZs)
	v.SetDefault("network.cidr", d.Network.CIDR)
	v.SetDefault("task.cpu", d.Task.CPU)
	v.SetDefault("task.memory", d.Task.Memory)
	v.SetDefault("task.container_port", d.Task.ContainerPort)
	v.SetDefault("task.ephemeral_storage_gib", d.Task.EphemeralStorageGiB)
	v.SetDefault("task.log_retention_days", d.Task.LogRetentionDays)
	v.SetDefault("task.log_stream_prefix", d.Task.LogStreamPrefix)
	v.SetDefault("service.desired_count", d.Service.DesiredCount)
	v.SetDefault("service.listener_port", d.Service.ListenerPort)
	v.SetDefault("service.public", d.Service.Public)
	v.SetDefault("service.min_healthy_percent", d.Service.MinHealthyPercent)
	v.SetDefault("service.max_healthy_percent", d.Service.MaxHealthyPercent)
	v.SetDefault("service.circuit_breaker_rollback", d.Service.CircuitBreakerRollback)
	v.SetDefault("health.path", d.Health.Path)
	v.SetDefault("health.interval", d.Health.Interval)
	v.SetDefault("health.timeout", d.Health.Timeout)
	v.SetDefault("health.retries", d.Health.Retries)
	v.SetDefault("health.start_period", d.Health.StartPeriod)
	v.SetDefault("provision.profile", d.Provision.Profile)
	v.SetDefault("provision.template_bucket", d.Provision.TemplateBucket)
	v.SetDefault("provision.timeout", d.Provision.Timeout)
	v.SetDefault("log.level", d.Log.Level)
}

// SetDefaults fills missing string fields and sizes with their default values.
// Boolean and count fields are left alone because zero is a meaningful value for them.
func (c *Config) SetDefaults() {
	d := Default()

	if c.StackName == "" {
		c.StackName = d.StackName
	}
	if c.Registry.Repository == "" {
		c.Registry.Repository = d.Registry.Repository
	}
	if c.Secrets.Name == "" {
		c.Secrets.Name = d.Secrets.Name
	}
	if c.Secrets.Keys == nil {
		c.Secrets.Keys = d.Secrets.Keys
	}
	if c.Network.CIDR == "" {
		c.Network.CIDR = d.Network.CIDR
	}
	if c.Task.LogStreamPrefix == "" {
		c.Task.LogStreamPrefix = d.Task.LogStreamPrefix
	}
	if c.Health.Path == "" {
		c.Health.Path = d.Health.Path
	}
	if c.Provision.Timeout == 0 {
		c.Provision.Timeout = d.Provision.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate reports every invalid field of the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.StackName == "" {
		errs = append(errs, errors.New("stack_name is required"))
	}
	if c.Registry.Repository == "" {
		errs = append(errs, errors.New("registry.repository is required"))
	}
	if c.Registry.ImageTag == "" {
		errs = append(errs, errors.New("registry.image_tag is required"))
	}
	if c.Secrets.Name == "" {
		errs = append(errs, errors.New("secrets.name is required"))
	}
	if len(c.Secrets.Keys) == 0 {
		errs = append(errs, errors.New("secrets.keys must list at least one key"))
	}
	seen := make(map[string]bool, len(c.Secrets.Keys))
	for _, key := range c.Secrets.Keys {
		switch {
		case key == "":
			errs = append(errs, errors.New("secrets.keys contains an empty key"))
		case seen[key]:
			errs = append(errs, fmt.Errorf("secrets.keys contains duplicate key %s", key))
		}
		seen[key] = true
	}

	if c.Network.MaxAZs < 1 {
		errs = append(errs, fmt.Errorf("network.max_azs must be at least 1, got %d", c.Network.MaxAZs))
	}
	if nat := c.Network.NATCount(); nat < 0 || nat > c.Network.MaxAZs {
		errs = append(errs, fmt.Errorf("network.nat_gateways must be between 0 and max_azs (%d), got %d", c.Network.MaxAZs, nat))
	}
	if c.Network.CIDR == "" {
		errs = append(errs, errors.New("network.cidr is required"))
	}

	errs = append(errs, validatePort("task.container_port", c.Task.ContainerPort))
	errs = append(errs, validatePort("service.listener_port", c.Service.ListenerPort))

	if c.Task.CPU <= 0 || c.Task.Memory <= 0 {
		errs = append(errs, fmt.Errorf("task.cpu and task.memory must be positive, got %d/%d", c.Task.CPU, c.Task.Memory))
	}
	if c.Task.EphemeralStorageGiB != 0 && (c.Task.EphemeralStorageGiB < 21 || c.Task.EphemeralStorageGiB > 200) {
		errs = append(errs, fmt.Errorf("task.ephemeral_storage_gib must be between 21 and 200, got %d", c.Task.EphemeralStorageGiB))
	}
	if c.Task.LogRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("task.log_retention_days must not be negative, got %d", c.Task.LogRetentionDays))
	}

	if c.Service.DesiredCount < 0 {
		errs = append(errs, fmt.Errorf("service.desired_count must not be negative, got %d", c.Service.DesiredCount))
	}
	if c.Service.MinHealthyPercent < 0 || c.Service.MinHealthyPercent > 100 {
		errs = append(errs, fmt.Errorf("service.min_healthy_percent must be between 0 and 100, got %d", c.Service.MinHealthyPercent))
	}
	if c.Service.MaxHealthyPercent < 100 {
		errs = append(errs, fmt.Errorf("service.max_healthy_percent must be at least 100, got %d", c.Service.MaxHealthyPercent))
	}

	if !strings.HasPrefix(c.Health.Path, "/") {
		errs = append(errs, fmt.Errorf("health.path must start with '/', got %q", c.Health.Path))
	}

	errs = append(errs, logger.ValidateLogLevel(c.Log.Level))

	return errors.Join(errs...)
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}
