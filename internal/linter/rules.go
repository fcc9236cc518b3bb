package linter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/openmind/openmind-infra/internal/descriptor"
)

// Rule is the interface for lint rules.
type Rule interface {
	ID() string
	Description() string
	Check(ctx *Context) []Issue
}

const (
	typeVPC            = "AWS::EC2::VPC"
	typeCluster        = "AWS::ECS::Cluster"
	typeTaskDefinition = "AWS::ECS::TaskDefinition"
	typeService        = "AWS::ECS::Service"
	typeLoadBalancer   = "AWS::ElasticLoadBalancingV2::LoadBalancer"
	typeListener       = "AWS::ElasticLoadBalancingV2::Listener"
	typeTargetGroup    = "AWS::ElasticLoadBalancingV2::TargetGroup"
)

func issue(r Rule, severity, resource, format string, args ...any) Issue {
	return Issue{
		Resource: resource,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
		Rule:     r.ID(),
	}
}

// SingleTopology checks the template holds one of each core resource.
type SingleTopology struct{}

func (r SingleTopology) ID() string { return "OMI001" }
func (r SingleTopology) Description() string {
	return "Exactly one network, cluster, task definition with one container, and service"
}

func (r SingleTopology) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, typ := range []string{typeVPC, typeCluster, typeTaskDefinition, typeService} {
		if n := len(ctx.OfType(typ)); n != 1 {
			issues = append(issues, issue(r, SeverityError, "", "expected exactly one %s, found %d", typ, n))
		}
	}
	if name, taskDef, ok := ctx.Only(typeTaskDefinition); ok {
		if n := len(Containers(taskDef)); n != 1 {
			issues = append(issues, issue(r, SeverityError, name, "expected exactly one container, found %d", n))
		}
	}
	return issues
}

// SinglePort checks the container port mapping and load balancer wiring agree.
type SinglePort struct{}

func (r SinglePort) ID() string { return "OMI002" }
func (r SinglePort) Description() string {
	return "Container exposes exactly one port and the load balancer targets it"
}

func (r SinglePort) Check(ctx *Context) []Issue {
	name, taskDef, ok := ctx.Only(typeTaskDefinition)
	if !ok {
		return nil
	}
	var issues []Issue
	for _, c := range Containers(taskDef) {
		mappings := list(c["PortMappings"])
		if len(mappings) != 1 {
			issues = append(issues, issue(r, SeverityError, name, "container %v exposes %d ports, expected 1", c["Name"], len(mappings)))
			continue
		}
		port, _ := number(mappings[0]["ContainerPort"])

		if tgName, tg, ok := ctx.Only(typeTargetGroup); ok {
			if tgPort, _ := number(tg["Port"]); tgPort != port {
				issues = append(issues, issue(r, SeverityError, tgName, "target group port %d does not match container port %d", tgPort, port))
			}
		}
		if svcName, svc, ok := ctx.Only(typeService); ok {
			for _, lb := range list(svc["LoadBalancers"]) {
				if lbPort, _ := number(lb["ContainerPort"]); lbPort != port || lb["ContainerName"] != c["Name"] {
					issues = append(issues, issue(r, SeverityError, svcName, "service load balancer targets %v:%d, container is %v:%d", lb["ContainerName"], lbPort, c["Name"], port))
				}
			}
		}
	}
	return issues
}

// RequiredSecrets checks the container secret bindings against the required key set.
type RequiredSecrets struct{}

func (r RequiredSecrets) ID() string { return "OMI003" }
func (r RequiredSecrets) Description() string {
	return "Container receives exactly the required secret keys"
}

func (r RequiredSecrets) Check(ctx *Context) []Issue {
	name, taskDef, ok := ctx.Only(typeTaskDefinition)
	if !ok {
		return nil
	}

	required := make(map[string]bool, len(ctx.Expect.SecretKeys))
	for _, key := range ctx.Expect.SecretKeys {
		required[key] = true
	}

	var issues []Issue
	for _, c := range Containers(taskDef) {
		bound := make(map[string]int)
		for _, s := range list(c["Secrets"]) {
			if key, ok := s["Name"].(string); ok {
				bound[key]++
			}
		}

		var missing, extra, duplicate []string
		for key := range required {
			if bound[key] == 0 {
				missing = append(missing, key)
			}
		}
		for key, count := range bound {
			if !required[key] {
				extra = append(extra, key)
			}
			if count > 1 {
				duplicate = append(duplicate, key)
			}
		}
		sort.Strings(missing)
		sort.Strings(extra)
		sort.Strings(duplicate)

		if len(missing) > 0 {
			issues = append(issues, issue(r, SeverityError, name, "container is missing secrets: %s", strings.Join(missing, ", ")))
		}
		if len(extra) > 0 {
			issues = append(issues, issue(r, SeverityError, name, "container has unexpected secrets: %s", strings.Join(extra, ", ")))
		}
		if len(duplicate) > 0 {
			issues = append(issues, issue(r, SeverityError, name, "container binds secrets more than once: %s", strings.Join(duplicate, ", ")))
		}
	}
	return issues
}

// PublicEntrypoint checks the listener port and load balancer scheme.
type PublicEntrypoint struct{}

func (r PublicEntrypoint) ID() string { return "OMI004" }
func (r PublicEntrypoint) Description() string {
	return "Listener port and load balancer scheme match the configuration"
}

func (r PublicEntrypoint) Check(ctx *Context) []Issue {
	var issues []Issue

	listeners := ctx.OfType(typeListener)
	if len(listeners) != 1 {
		issues = append(issues, issue(r, SeverityError, "", "expected exactly one listener, found %d", len(listeners)))
	}
	for _, name := range listeners {
		port, _ := number(ctx.Template.Resources[name].Properties["Port"])
		if port != ctx.Expect.ListenerPort {
			issues = append(issues, issue(r, SeverityError, name, "listener port is %d, expected %d", port, ctx.Expect.ListenerPort))
		}
	}

	want := "internal"
	if ctx.Expect.Public {
		want = "internet-facing"
	}
	for _, name := range ctx.OfType(typeLoadBalancer) {
		scheme, _ := ctx.Template.Resources[name].Properties["Scheme"].(string)
		if scheme == "" {
			// CloudFormation defaults to internet-facing
			scheme = "internet-facing"
		}
		if scheme != want {
			issues = append(issues, issue(r, SeverityError, name, "load balancer scheme is %s, expected %s", scheme, want))
		}
	}
	return issues
}

// HealthCheckTiming checks every health check can fail and retry within its interval.
type HealthCheckTiming struct{}

func (r HealthCheckTiming) ID() string { return "OMI005" }
func (r HealthCheckTiming) Description() string {
	return "Health check timeout and retries fit within the interval"
}

func (r HealthCheckTiming) Check(ctx *Context) []Issue {
	var issues []Issue

	if name, taskDef, ok := ctx.Only(typeTaskDefinition); ok {
		for _, c := range Containers(taskDef) {
			hc, ok := c["HealthCheck"].(map[string]any)
			if !ok {
				issues = append(issues, issue(r, SeverityError, name, "container %v has no health check", c["Name"]))
				continue
			}
			interval, _ := number(hc["Interval"])
			timeout, _ := number(hc["Timeout"])
			retries, _ := number(hc["Retries"])
			issues = append(issues, r.timing(name, interval, timeout, retries)...)
		}
	}

	for _, name := range ctx.OfType(typeTargetGroup) {
		props := ctx.Template.Resources[name].Properties
		interval, _ := number(props["HealthCheckIntervalSeconds"])
		timeout, _ := number(props["HealthCheckTimeoutSeconds"])
		retries, _ := number(props["UnhealthyThresholdCount"])
		issues = append(issues, r.timing(name, interval, timeout, retries)...)
	}

	return issues
}

func (r HealthCheckTiming) timing(resource string, interval, timeout, retries int) []Issue {
	var issues []Issue
	if timeout >= interval {
		issues = append(issues, issue(r, SeverityError, resource, "health check timeout %ds must be less than interval %ds", timeout, interval))
	}
	if retries*timeout >= interval {
		issues = append(issues, issue(r, SeverityError, resource, "health check retries × timeout (%d × %ds) must be less than interval %ds", retries, timeout, interval))
	}
	return issues
}

var healthCommandPattern = regexp.MustCompile(`http://localhost:(\d+)(/\S*)`)

// HealthCheckDrift checks the container and target group health checks agree.
type HealthCheckDrift struct{}

func (r HealthCheckDrift) ID() string { return "OMI006" }
func (r HealthCheckDrift) Description() string {
	return "Container and target group health checks agree"
}

func (r HealthCheckDrift) Check(ctx *Context) []Issue {
	name, taskDef, ok := ctx.Only(typeTaskDefinition)
	if !ok {
		return nil
	}
	tgName, tg, ok := ctx.Only(typeTargetGroup)
	if !ok {
		return nil
	}
	containers := Containers(taskDef)
	if len(containers) != 1 {
		return nil
	}
	hc, ok := containers[0]["HealthCheck"].(map[string]any)
	if !ok {
		return nil
	}

	var issues []Issue
	drift := func(field string, container, target any) {
		issues = append(issues, issue(r, SeverityError, tgName, "health check %s differs: container %v, target group %v", field, container, target))
	}

	command := strings.Join(stringList(hc["Command"]), " ")
	m := healthCommandPattern.FindStringSubmatch(command)
	if m == nil {
		issues = append(issues, issue(r, SeverityWarning, name, "cannot determine the container health check endpoint from %q", command))
	} else {
		if path, _ := tg["HealthCheckPath"].(string); path != m[2] {
			drift("path", m[2], path)
		}
		port, _ := strconv.Atoi(m[1])
		mappings := list(containers[0]["PortMappings"])
		if len(mappings) == 1 {
			if cp, _ := number(mappings[0]["ContainerPort"]); cp != port {
				issues = append(issues, issue(r, SeverityError, name, "container health check targets port %d, container listens on %d", port, cp))
			}
		}
	}

	pairs := []struct {
		field             string
		container, target string
	}{
		{"interval", "Interval", "HealthCheckIntervalSeconds"},
		{"timeout", "Timeout", "HealthCheckTimeoutSeconds"},
		{"retries", "Retries", "UnhealthyThresholdCount"},
	}
	for _, p := range pairs {
		c, _ := number(hc[p.container])
		t, _ := number(tg[p.target])
		if c != t {
			drift(p.field, c, t)
		}
	}

	return issues
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FargateSize checks the task CPU/memory pair.
type FargateSize struct{}

func (r FargateSize) ID() string { return "OMI007" }
func (r FargateSize) Description() string {
	return "Task CPU/memory is a valid Fargate size"
}

func (r FargateSize) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, name := range ctx.OfType(typeTaskDefinition) {
		props := ctx.Template.Resources[name].Properties
		cpu, cpuErr := strconv.Atoi(fmt.Sprint(props["Cpu"]))
		memory, memErr := strconv.Atoi(fmt.Sprint(props["Memory"]))
		if cpuErr != nil || memErr != nil {
			issues = append(issues, issue(r, SeverityError, name, "task CPU %v and memory %v must be numeric", props["Cpu"], props["Memory"]))
			continue
		}
		if err := descriptor.CheckFargateSize(cpu, memory); err != nil {
			issues = append(issues, issue(r, SeverityError, name, "%v", err))
		}
	}
	return issues
}

// ImmutableImageTag warns about image references that can change under the same tag.
type ImmutableImageTag struct{}

func (r ImmutableImageTag) ID() string { return "OMI008" }
func (r ImmutableImageTag) Description() string {
	return "Image tag is immutable-looking"
}

func (r ImmutableImageTag) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, name := range ctx.OfType(typeTaskDefinition) {
		for _, c := range Containers(ctx.Template.Resources[name].Properties) {
			image := imageString(c["Image"])
			tag := ImageTag(image)
			if tag == "" || tag == "latest" {
				issues = append(issues, issue(r, SeverityWarning, name, "container %v uses mutable image reference %q, pin a content tag", c["Name"], image))
			}
		}
	}
	return issues
}

func imageString(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case map[string]any:
		if sub, ok := img["Fn::Sub"].(string); ok {
			return sub
		}
	}
	return ""
}

// ImageTag returns the tag of an image reference, or "" when it has none.
// Digest references return the digest.
func ImageTag(image string) string {
	if i := strings.LastIndex(image, "@"); i >= 0 {
		return image[i+1:]
	}
	last := image[strings.LastIndex(image, "/")+1:]
	if i := strings.LastIndex(last, ":"); i >= 0 {
		return last[i+1:]
	}
	return ""
}

// DeploymentSafety checks circuit breaker rollback and healthy-percent bounds.
type DeploymentSafety struct{}

func (r DeploymentSafety) ID() string { return "OMI009" }
func (r DeploymentSafety) Description() string {
	return "Deployments roll back on failure within sane healthy-percent bounds"
}

func (r DeploymentSafety) Check(ctx *Context) []Issue {
	var issues []Issue
	for _, name := range ctx.OfType(typeService) {
		dc, ok := ctx.Template.Resources[name].Properties["DeploymentConfiguration"].(map[string]any)
		if !ok {
			issues = append(issues, issue(r, SeverityError, name, "service has no deployment configuration"))
			continue
		}

		cb, _ := dc["DeploymentCircuitBreaker"].(map[string]any)
		if enabled, _ := cb["Enable"].(bool); !enabled {
			issues = append(issues, issue(r, SeverityError, name, "deployment circuit breaker is disabled"))
		} else if rollback, _ := cb["Rollback"].(bool); !rollback {
			issues = append(issues, issue(r, SeverityError, name, "deployment circuit breaker does not roll back"))
		}

		minHealthy, _ := number(dc["MinimumHealthyPercent"])
		maxHealthy, _ := number(dc["MaximumPercent"])
		if minHealthy < 0 || minHealthy > 100 || maxHealthy < 100 {
			issues = append(issues, issue(r, SeverityError, name, "healthy percent bounds %d/%d must satisfy min ≤ 100 ≤ max", minHealthy, maxHealthy))
		}
		if minHealthy == 100 && maxHealthy == 100 {
			issues = append(issues, issue(r, SeverityError, name, "healthy percent 100/100 leaves no room to start replacement tasks"))
		}
	}
	return issues
}

// AllRules returns all available lint rules.
func AllRules() []Rule {
	return []Rule{
		SingleTopology{},
		SinglePort{},
		RequiredSecrets{},
		PublicEntrypoint{},
		HealthCheckTiming{},
		HealthCheckDrift{},
		FargateSize{},
		ImmutableImageTag{},
		DeploymentSafety{},
	}
}
