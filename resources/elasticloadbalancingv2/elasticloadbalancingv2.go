// Package elasticloadbalancingv2 contains the Application Load Balancer resource types.
package elasticloadbalancingv2

// LoadBalancer is an AWS::ElasticLoadBalancingV2::LoadBalancer.
type LoadBalancer struct {
	Name                   any                      `json:"Name,omitempty"`
	Scheme                 string                   `json:"Scheme,omitempty"`
	Type                   string                   `json:"Type,omitempty"`
	Subnets                []any                    `json:"Subnets,omitempty"`
	SecurityGroups         []any                    `json:"SecurityGroups,omitempty"`
	LoadBalancerAttributes []LoadBalancer_Attribute `json:"LoadBalancerAttributes,omitempty"`
	Tags                   []any                    `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (LoadBalancer) ResourceType() string { return "AWS::ElasticLoadBalancingV2::LoadBalancer" }

// LoadBalancer_Attribute is a load balancer attribute key/value.
type LoadBalancer_Attribute struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// TargetGroup is an AWS::ElasticLoadBalancingV2::TargetGroup.
type TargetGroup struct {
	Port                       int                     `json:"Port,omitempty"`
	Protocol                   string                  `json:"Protocol,omitempty"`
	TargetType                 string                  `json:"TargetType,omitempty"`
	VpcId                      any                     `json:"VpcId,omitempty"`
	HealthCheckEnabled         bool                    `json:"HealthCheckEnabled,omitempty"`
	HealthCheckPath            string                  `json:"HealthCheckPath,omitempty"`
	HealthCheckPort            string                  `json:"HealthCheckPort,omitempty"`
	HealthCheckProtocol        string                  `json:"HealthCheckProtocol,omitempty"`
	HealthCheckIntervalSeconds int                     `json:"HealthCheckIntervalSeconds,omitempty"`
	HealthCheckTimeoutSeconds  int                     `json:"HealthCheckTimeoutSeconds,omitempty"`
	HealthyThresholdCount      int                     `json:"HealthyThresholdCount,omitempty"`
	UnhealthyThresholdCount    int                     `json:"UnhealthyThresholdCount,omitempty"`
	Matcher                    *TargetGroup_Matcher    `json:"Matcher,omitempty"`
	TargetGroupAttributes      []TargetGroup_Attribute `json:"TargetGroupAttributes,omitempty"`
	Tags                       []any                   `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (TargetGroup) ResourceType() string { return "AWS::ElasticLoadBalancingV2::TargetGroup" }

// TargetGroup_Matcher lists the HTTP codes counted as healthy.
type TargetGroup_Matcher struct {
	HttpCode string `json:"HttpCode"`
}

// TargetGroup_Attribute is a target group attribute key/value.
type TargetGroup_Attribute struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Listener is an AWS::ElasticLoadBalancingV2::Listener.
type Listener struct {
	LoadBalancerArn any               `json:"LoadBalancerArn,omitempty"`
	Port            int               `json:"Port"`
	Protocol        string            `json:"Protocol,omitempty"`
	DefaultActions  []Listener_Action `json:"DefaultActions"`
}

// ResourceType returns the CloudFormation type.
func (Listener) ResourceType() string { return "AWS::ElasticLoadBalancingV2::Listener" }

// Listener_Action is a listener default action.
type Listener_Action struct {
	Type           string `json:"Type"`
	TargetGroupArn any    `json:"TargetGroupArn,omitempty"`
}
