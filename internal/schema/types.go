package schema

// Property value types.
const (
	String  = "String"
	Integer = "Integer"
	Boolean = "Boolean"
	List    = "List"
	Map     = "Map"
	JSON    = "Json"
)

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
}

func str(allowed ...string) PropertySchema { return PropertySchema{Type: String, AllowedValues: allowed} }

var (
	integer = PropertySchema{Type: Integer}
	boolean = PropertySchema{Type: Boolean}
	list    = PropertySchema{Type: List}
	object  = PropertySchema{Type: Map}
	doc     = PropertySchema{Type: JSON}
)

var protocols = []string{"HTTP", "HTTPS", "TCP", "TLS", "UDP", "TCP_UDP", "GENEVE"}

// resourceSchemas covers the resource types the descriptor synthesizes.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::EC2::VPC": {
		Properties: map[string]PropertySchema{
			"CidrBlock":          str(),
			"EnableDnsHostnames": boolean,
			"EnableDnsSupport":   boolean,
			"InstanceTenancy":    str("default", "dedicated", "host"),
			"Tags":               list,
		},
	},
	"AWS::EC2::InternetGateway": {
		Properties: map[string]PropertySchema{
			"Tags": list,
		},
	},
	"AWS::EC2::VPCGatewayAttachment": {
		Required: []string{"VpcId"},
		Properties: map[string]PropertySchema{
			"VpcId":             str(),
			"InternetGatewayId": str(),
			"VpnGatewayId":      str(),
		},
	},
	"AWS::EC2::Subnet": {
		Required: []string{"VpcId"},
		Properties: map[string]PropertySchema{
			"VpcId":               str(),
			"CidrBlock":           str(),
			"AvailabilityZone":    str(),
			"MapPublicIpOnLaunch": boolean,
			"Tags":                list,
		},
	},
	"AWS::EC2::RouteTable": {
		Required: []string{"VpcId"},
		Properties: map[string]PropertySchema{
			"VpcId": str(),
			"Tags":  list,
		},
	},
	"AWS::EC2::SubnetRouteTableAssociation": {
		Required: []string{"RouteTableId", "SubnetId"},
		Properties: map[string]PropertySchema{
			"RouteTableId": str(),
			"SubnetId":     str(),
		},
	},
	"AWS::EC2::Route": {
		Required: []string{"RouteTableId"},
		Properties: map[string]PropertySchema{
			"RouteTableId":         str(),
			"DestinationCidrBlock": str(),
			"GatewayId":            str(),
			"NatGatewayId":         str(),
		},
	},
	"AWS::EC2::EIP": {
		Properties: map[string]PropertySchema{
			"Domain": str("vpc", "standard"),
			"Tags":   list,
		},
	},
	"AWS::EC2::NatGateway": {
		Required: []string{"SubnetId"},
		Properties: map[string]PropertySchema{
			"SubnetId":         str(),
			"AllocationId":     str(),
			"ConnectivityType": str("public", "private"),
			"Tags":             list,
		},
	},
	"AWS::EC2::SecurityGroup": {
		Required: []string{"GroupDescription"},
		Properties: map[string]PropertySchema{
			"GroupDescription":     str(),
			"GroupName":            str(),
			"VpcId":                str(),
			"SecurityGroupIngress": list,
			"SecurityGroupEgress":  list,
			"Tags":                 list,
		},
	},
	"AWS::EC2::SecurityGroupIngress": {
		Required: []string{"IpProtocol"},
		Properties: map[string]PropertySchema{
			"GroupId":               str(),
			"IpProtocol":            str(),
			"FromPort":              integer,
			"ToPort":                integer,
			"CidrIp":                str(),
			"SourceSecurityGroupId": str(),
			"Description":           str(),
		},
	},
	"AWS::ECS::Cluster": {
		Properties: map[string]PropertySchema{
			"ClusterName":     str(),
			"ClusterSettings": list,
			"Tags":            list,
		},
	},
	"AWS::ECS::TaskDefinition": {
		Required: []string{"ContainerDefinitions"},
		Properties: map[string]PropertySchema{
			"ContainerDefinitions":    list,
			"Cpu":                     str(),
			"Memory":                  str(),
			"Family":                  str(),
			"NetworkMode":             str("awsvpc", "bridge", "host", "none"),
			"RequiresCompatibilities": list,
			"ExecutionRoleArn":        str(),
			"TaskRoleArn":             str(),
			"EphemeralStorage":        object,
			"Tags":                    list,
		},
	},
	"AWS::ECS::Service": {
		Properties: map[string]PropertySchema{
			"Cluster":                       str(),
			"ServiceName":                   str(),
			"TaskDefinition":                str(),
			"DesiredCount":                  integer,
			"LaunchType":                    str("EC2", "FARGATE", "EXTERNAL"),
			"NetworkConfiguration":          object,
			"LoadBalancers":                 list,
			"DeploymentConfiguration":       object,
			"HealthCheckGracePeriodSeconds": integer,
			"EnableECSManagedTags":          boolean,
			"PropagateTags":                 str("SERVICE", "TASK_DEFINITION"),
			"Tags":                          list,
		},
	},
	"AWS::ElasticLoadBalancingV2::LoadBalancer": {
		Properties: map[string]PropertySchema{
			"Name":                   str(),
			"Scheme":                 str("internet-facing", "internal"),
			"Type":                   str("application", "network", "gateway"),
			"Subnets":                list,
			"SecurityGroups":         list,
			"LoadBalancerAttributes": list,
			"Tags":                   list,
		},
	},
	"AWS::ElasticLoadBalancingV2::TargetGroup": {
		Properties: map[string]PropertySchema{
			"Name":                       str(),
			"Port":                       integer,
			"Protocol":                   str(protocols...),
			"TargetType":                 str("instance", "ip", "lambda", "alb"),
			"VpcId":                      str(),
			"HealthCheckEnabled":         boolean,
			"HealthCheckPath":            str(),
			"HealthCheckPort":            str(),
			"HealthCheckProtocol":        str(protocols...),
			"HealthCheckIntervalSeconds": integer,
			"HealthCheckTimeoutSeconds":  integer,
			"HealthyThresholdCount":      integer,
			"UnhealthyThresholdCount":    integer,
			"Matcher":                    object,
			"TargetGroupAttributes":      list,
			"Tags":                       list,
		},
	},
	"AWS::ElasticLoadBalancingV2::Listener": {
		Required: []string{"DefaultActions", "LoadBalancerArn"},
		Properties: map[string]PropertySchema{
			"DefaultActions":  list,
			"LoadBalancerArn": str(),
			"Port":            integer,
			"Protocol":        str(protocols...),
			"Certificates":    list,
		},
	},
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": doc,
			"Description":              str(),
			"ManagedPolicyArns":        list,
			"Path":                     str(),
			"Policies":                 list,
			"RoleName":                 str(),
			"Tags":                     list,
		},
	},
	"AWS::IAM::Policy": {
		Required: []string{"PolicyDocument", "PolicyName"},
		Properties: map[string]PropertySchema{
			"PolicyDocument": doc,
			"PolicyName":     str(),
			"Roles":          list,
		},
	},
	"AWS::Logs::LogGroup": {
		Properties: map[string]PropertySchema{
			"LogGroupName":    str(),
			"RetentionInDays": integer,
			"Tags":            list,
		},
	},
}

// Known reports whether a schema exists for cfType.
func Known(cfType string) bool {
	_, ok := resourceSchemas[cfType]
	return ok
}
