package descriptor

import (
	"errors"
	"fmt"
	"time"

	"github.com/openmind/openmind-infra/internal/config"
	"github.com/openmind/openmind-infra/resources/ecs"
	elbv2 "github.com/openmind/openmind-infra/resources/elasticloadbalancingv2"
)

// ECS container health check limits.
const (
	minContainerInterval = 5 * time.Second
	maxContainerInterval = 300 * time.Second
	minContainerTimeout  = 2 * time.Second
	maxContainerTimeout  = 120 * time.Second
	maxContainerRetries  = 10
	maxStartPeriod       = 300 * time.Second
)

// HealthCheckPolicy is the one health check declaration of the workload.
// The container health check and the target group health check are both
// rendered from it.
type HealthCheckPolicy struct {
	Path        string
	Port        int
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// NewHealthCheckPolicy builds the policy for a container listening on port.
func NewHealthCheckPolicy(h config.HealthConfig, port int) HealthCheckPolicy {
	return HealthCheckPolicy{
		Path:        h.Path,
		Port:        port,
		Interval:    h.Interval,
		Timeout:     h.Timeout,
		Retries:     h.Retries,
		StartPeriod: h.StartPeriod,
	}
}

// Validate checks that all values are within the ECS container health check limits.
// How timeout and retries fit within the interval is left to the OMI005 policy rule.
func (p HealthCheckPolicy) Validate() error {
	var errs []error

	if p.Interval < minContainerInterval || p.Interval > maxContainerInterval {
		errs = append(errs, fmt.Errorf("health check interval %s must be between %s and %s", p.Interval, minContainerInterval, maxContainerInterval))
	}
	if p.Timeout < minContainerTimeout || p.Timeout > maxContainerTimeout {
		errs = append(errs, fmt.Errorf("health check timeout %s must be between %s and %s", p.Timeout, minContainerTimeout, maxContainerTimeout))
	}
	if p.Retries < 1 || p.Retries > maxContainerRetries {
		errs = append(errs, fmt.Errorf("health check retries %d must be between 1 and %d", p.Retries, maxContainerRetries))
	}
	if p.StartPeriod < 0 || p.StartPeriod > maxStartPeriod {
		errs = append(errs, fmt.Errorf("health check start period %s must be between 0s and %s", p.StartPeriod, maxStartPeriod))
	}
	if p.Path == "" || p.Path[0] != '/' {
		errs = append(errs, errors.New("health check path must start with '/'"))
	}
	for _, d := range []time.Duration{p.Interval, p.Timeout, p.StartPeriod} {
		if d%time.Second != 0 {
			errs = append(errs, fmt.Errorf("health check duration %s is not a whole number of seconds", d))
			break
		}
	}

	return errors.Join(errs...)
}

// Command returns the container health check command.
func (p HealthCheckPolicy) Command() []string {
	return []string{"CMD-SHELL", fmt.Sprintf("curl -f http://localhost:%d%s || exit 1", p.Port, p.Path)}
}

// ContainerHealthCheck renders the policy as an ECS container health check.
func (p HealthCheckPolicy) ContainerHealthCheck() *ecs.TaskDefinition_HealthCheck {
	return &ecs.TaskDefinition_HealthCheck{
		Command:     p.Command(),
		Interval:    seconds(p.Interval),
		Timeout:     seconds(p.Timeout),
		Retries:     p.Retries,
		StartPeriod: seconds(p.StartPeriod),
	}
}

// ApplyToTargetGroup renders the policy into the target group health check fields.
func (p HealthCheckPolicy) ApplyToTargetGroup(tg *elbv2.TargetGroup) {
	tg.HealthCheckEnabled = true
	tg.HealthCheckPath = p.Path
	tg.HealthCheckProtocol = "HTTP"
	tg.HealthCheckIntervalSeconds = seconds(p.Interval)
	tg.HealthCheckTimeoutSeconds = seconds(p.Timeout)
	tg.UnhealthyThresholdCount = p.Retries
	tg.Matcher = &elbv2.TargetGroup_Matcher{HttpCode: "200"}
}

// GracePeriodSeconds is the service health check grace period.
func (p HealthCheckPolicy) GracePeriodSeconds() int {
	return seconds(p.StartPeriod)
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
