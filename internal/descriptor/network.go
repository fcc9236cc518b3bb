package descriptor

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/openmind/openmind-infra/internal/stack"
	"github.com/openmind/openmind-infra/intrinsics"
	"github.com/openmind/openmind-infra/resources/ec2"
)

// NetworkSpec shapes the VPC.
type NetworkSpec struct {
	MaxAZs      int
	CIDR        string
	NatGateways int
}

// Network holds references to the synthesized network resources.
type Network struct {
	VPC            intrinsics.Ref
	PublicSubnets  []intrinsics.Ref
	PrivateSubnets []intrinsics.Ref
	// Egress is false when no NAT gateway routes the private subnets.
	Egress bool
}

// ParseNetworkCIDR parses an IPv4 block and masks off any host bits, so
// 10.0.0.1/16 yields 10.0.0.0/16.
func ParseNetworkCIDR(block string) (*net.IPNet, error) {
	ip, base, err := net.ParseCIDR(block)
	if err != nil {
		return nil, fmt.Errorf("parsing network cidr: %w", err)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("network cidr %s must be an IPv4 block", block)
	}
	return base, nil
}

// SubnetCIDRs splits block into one public and one private subnet per AZ, public
// subnets first, each sized to the smallest power of two that fits them all.
func SubnetCIDRs(block string, azs int) (public, private []string, err error) {
	base, err := ParseNetworkCIDR(block)
	if err != nil {
		return nil, nil, err
	}
	if azs < 1 {
		return nil, nil, fmt.Errorf("at least one availability zone is required, got %d", azs)
	}

	newbits := 0
	for 1<<newbits < 2*azs {
		newbits++
	}
	if ones, _ := base.Mask.Size(); ones+newbits > 28 {
		return nil, nil, fmt.Errorf("network cidr %s is too small for %d subnets", block, 2*azs)
	}

	for i := 0; i < 2*azs; i++ {
		subnet, err := cidr.Subnet(base, newbits, i)
		if err != nil {
			return nil, nil, fmt.Errorf("carving subnet %d of %s: %w", i, block, err)
		}
		if i < azs {
			public = append(public, subnet.String())
		} else {
			private = append(private, subnet.String())
		}
	}
	return public, private, nil
}

func addNetwork(s *stack.Stack, spec NetworkSpec) (*Network, error) {
	base, err := ParseNetworkCIDR(spec.CIDR)
	if err != nil {
		return nil, err
	}
	publicCIDRs, privateCIDRs, err := SubnetCIDRs(spec.CIDR, spec.MaxAZs)
	if err != nil {
		return nil, err
	}

	n := &Network{Egress: spec.NatGateways > 0}
	n.VPC = s.Add(VPCID, ec2.VPC{
		CidrBlock:          base.String(),
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		InstanceTenancy:    "default",
		Tags:               []any{intrinsics.NameTag(VPCID)},
	})

	igw := s.Add(InternetGatewayID, ec2.InternetGateway{
		Tags: []any{intrinsics.NameTag(VPCID)},
	})
	s.Add(GatewayAttachmentID, ec2.VPCGatewayAttachment{
		VpcId:             n.VPC,
		InternetGatewayId: igw,
	})

	var natGateways []intrinsics.Ref
	for i := 0; i < spec.MaxAZs; i++ {
		id := SubnetID(true, i)
		subnet := s.Add(id, ec2.Subnet{
			VpcId:               n.VPC,
			CidrBlock:           publicCIDRs[i],
			AvailabilityZone:    intrinsics.AZ(i),
			MapPublicIpOnLaunch: true,
			Tags:                subnetTags(id, "Public"),
		})
		n.PublicSubnets = append(n.PublicSubnets, subnet)

		routeTable := addRouteTable(s, id, n.VPC, subnet)
		s.Add(id+"DefaultRoute", ec2.Route{
			RouteTableId:         routeTable,
			DestinationCidrBlock: "0.0.0.0/0",
			GatewayId:            igw,
		}, stack.DependsOn(GatewayAttachmentID))

		if i < spec.NatGateways {
			eip := s.Add(id+"EIP", ec2.EIP{
				Domain: "vpc",
				Tags:   []any{intrinsics.NameTag(id)},
			})
			nat := s.Add(id+"NATGateway", ec2.NatGateway{
				SubnetId:     subnet,
				AllocationId: s.GetAtt(eip.LogicalName, "AllocationId"),
				Tags:         []any{intrinsics.NameTag(id)},
			}, stack.DependsOn(id+"DefaultRoute", id+"RouteTableAssociation"))
			natGateways = append(natGateways, nat)
		}
	}

	for i := 0; i < spec.MaxAZs; i++ {
		id := SubnetID(false, i)
		subnet := s.Add(id, ec2.Subnet{
			VpcId:               n.VPC,
			CidrBlock:           privateCIDRs[i],
			AvailabilityZone:    intrinsics.AZ(i),
			MapPublicIpOnLaunch: false,
			Tags:                subnetTags(id, "Private"),
		})
		n.PrivateSubnets = append(n.PrivateSubnets, subnet)

		routeTable := addRouteTable(s, id, n.VPC, subnet)
		if len(natGateways) > 0 {
			s.Add(id+"DefaultRoute", ec2.Route{
				RouteTableId:         routeTable,
				DestinationCidrBlock: "0.0.0.0/0",
				NatGatewayId:         natGateways[i%len(natGateways)],
			})
		}
	}

	return n, nil
}

func addRouteTable(s *stack.Stack, subnetID string, vpc, subnet intrinsics.Ref) intrinsics.Ref {
	routeTable := s.Add(subnetID+"RouteTable", ec2.RouteTable{
		VpcId: vpc,
		Tags:  []any{intrinsics.NameTag(subnetID)},
	})
	s.Add(subnetID+"RouteTableAssociation", ec2.SubnetRouteTableAssociation{
		SubnetId:     subnet,
		RouteTableId: routeTable,
	})
	return routeTable
}

func subnetTags(id, kind string) []any {
	return []any{
		intrinsics.NameTag(id),
		intrinsics.Tag{Key: "openmind:subnet-type", Value: kind},
	}
}

// TaskSubnets returns the subnets the service runs in and whether tasks need a public IP.
// Without NAT egress, tasks run in the public subnets so they can pull the image.
func (n *Network) TaskSubnets() ([]any, string) {
	if !n.Egress {
		return Subnets(n.PublicSubnets), "ENABLED"
	}
	return Subnets(n.PrivateSubnets), "DISABLED"
}

// Subnets converts subnet refs to a CloudFormation list.
func Subnets(refs []intrinsics.Ref) []any {
	out := make([]any, len(refs))
	for i, r := range refs {
		out[i] = r
	}
	return out
}
