package descriptor

import "fmt"

// Logical IDs of the synthesized resources.
const (
	VPCID               = "OpenMindVPC"
	InternetGatewayID   = "OpenMindVPCIGW"
	GatewayAttachmentID = "OpenMindVPCVPCGW"

	ClusterID = "OpenMindFargateCluster"

	TaskDefinitionID       = "TaskDef"
	TaskRoleID             = "TaskDefTaskRole"
	ExecutionRoleID        = "TaskDefExecutionRole"
	ExecutionRolePolicyID  = "TaskDefExecutionRoleDefaultPolicy"
	LogGroupID             = "TaskDefWebContainerLogGroup"
	ServiceID              = "OpenMindFargateService"
	ServiceSecurityGroupID = "OpenMindFargateServiceSecurityGroup"
	ServiceIngressID       = "OpenMindFargateServiceSecurityGroupFromLB"
	LoadBalancerID         = "OpenMindFargateServiceLB"
	LoadBalancerSGID       = "OpenMindFargateServiceLBSecurityGroup"
	ListenerID             = "OpenMindFargateServiceLBPublicListener"
	TargetGroupID          = "OpenMindFargateServiceLBPublicListenerECSGroup"
)

// Output names of the synthesized template.
const (
	OutputLoadBalancerDNS = "OpenMindLoadBalancerDNS"
	OutputServiceURL      = "OpenMindServiceURL"
	OutputClusterName     = "OpenMindClusterName"
	OutputServiceName     = "OpenMindServiceName"
)

// ContainerName is the name of the single application container.
const ContainerName = "web"

// SubnetID returns the logical ID of the index-th (zero based) public or private subnet.
func SubnetID(public bool, index int) string {
	kind := "Private"
	if public {
		kind = "Public"
	}
	return fmt.Sprintf("%s%sSubnet%d", VPCID, kind, index+1)
}
