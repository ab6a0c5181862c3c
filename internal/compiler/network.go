package compiler

import (
	"fmt"

	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/internal/tfir"
)

const natUserData = `#!/bin/bash
echo "net.ipv4.ip_forward = 1" >> /etc/sysctl.conf
sysctl -p

iptables -t nat -A POSTROUTING -o eth0 -j MASQUERADE
iptables -A FORWARD -m state --state RELATED,ESTABLISHED -j ACCEPT
iptables -A FORWARD -j ACCEPT

yum install -y iptables-services
service iptables save
chkconfig iptables on

echo "NAT instance configuration completed at $(date)" >> /var/log/nat-setup.log`

// network is the project-wide infrastructure shared by every function.
// Only callerIdentity is always set.
type network struct {
	callerIdentity *tfir.Item

	availabilityZones *tfir.Item
	vpc               *tfir.Item
	publicSubnet      *tfir.Item
	privateSubnetA    *tfir.Item
	privateSubnetB    *tfir.Item
	internetGateway   *tfir.Item
	publicRouteTable  *tfir.Item
	publicRoute       *tfir.Item
	publicAssoc       *tfir.Item
	privateRouteTable *tfir.Item
	privateAssocA     *tfir.Item
	privateAssocB     *tfir.Item
	lambdaSG          *tfir.Item
	natAMI            *tfir.Item
	natInstance       *tfir.Item
	natSG             *tfir.Item
	natRoute          *tfir.Item
	natEIP            *tfir.Item
	natEIPAssoc       *tfir.Item
}

// items returns the non-nil items in emission order.
func (n *network) items() []*tfir.Item {
	all := []*tfir.Item{
		n.callerIdentity,
		n.availabilityZones, n.vpc, n.publicSubnet, n.privateSubnetA, n.privateSubnetB,
		n.internetGateway, n.publicRouteTable, n.publicRoute, n.publicAssoc,
		n.privateRouteTable, n.privateAssocA, n.privateAssocB, n.lambdaSG,
		n.natAMI, n.natInstance, n.natSG, n.natRoute, n.natEIP, n.natEIPAssoc,
	}
	out := make([]*tfir.Item, 0, len(all))
	for _, it := range all {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}

// hasLambdaNetworking reports whether functions can be attached to the VPC.
func (n *network) hasLambdaNetworking() bool {
	return n.vpc != nil && n.privateSubnetA != nil && n.privateSubnetB != nil && n.lambdaSG != nil
}

func tags(kv ...string) tfir.Complex {
	o := tfir.NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i], tfir.String(kv[i+1]))
	}
	return tfir.Assign(o)
}

func allTraffic(description string, cidrs ...string) *tfir.Object {
	return tfir.NewObject().
		Set("description", tfir.String(description)).
		Set("from_port", tfir.Number(0)).
		Set("to_port", tfir.Number(0)).
		Set("protocol", tfir.String("-1")).
		Set("cidr_blocks", tfir.Strings(cidrs...))
}

func amiFilter(name string, values ...string) tfir.Complex {
	return tfir.Complex{
		Mode: tfir.ModeBlock,
		Key:  "filter",
		Value: tfir.NewObject().
			Set("name", tfir.String(name)).
			Set("values", tfir.Strings(values...)),
	}
}

// buildNetwork creates the caller identity and, when requested, the VPC with
// a NAT instance. A fixed IP needs the VPC.
func buildNetwork(names naming.Namer, includeVPC, includeFixedIP bool) (*network, error) {
	if includeFixedIP && !includeVPC {
		return nil, fmt.Errorf("%w: fixed IP requires VPC to be enabled", ErrConfigurationPrecondition)
	}

	n := &network{callerIdentity: tfir.NewData("aws_caller_identity", "current")}
	if !includeVPC {
		return n, nil
	}

	n.availabilityZones = tfir.NewData("aws_availability_zones", "available").
		Set("state", tfir.String("available"))

	n.vpc = tfir.NewResource("aws_vpc", "vpc").
		Set("cidr_block", tfir.String("10.0.0.0/16")).
		Set("enable_dns_support", tfir.Bool(true)).
		Set("enable_dns_hostnames", tfir.Bool(true)).
		Set("tags", tags("Name", names.Scoped("vpc")))

	subnet := func(name, cidr string, az int, public bool, tagName, tagType string) *tfir.Item {
		it := tfir.NewResource("aws_subnet", name).
			Set("vpc_id", n.vpc.Ref("id")).
			Set("cidr_block", tfir.String(cidr)).
			Set("availability_zone", n.availabilityZones.Ref(fmt.Sprintf("names[%d]", az)))
		if public {
			it.Set("map_public_ip_on_launch", tfir.Bool(true))
		}
		return it.Set("tags", tags("Name", tagName, "Type", tagType))
	}
	n.publicSubnet = subnet("public_a", "10.0.0.0/24", 0, true, names.Scoped("public-a"), "Public")
	n.privateSubnetA = subnet("private_a", "10.0.1.0/24", 0, false, names.Scoped("private-a"), "Private")
	n.privateSubnetB = subnet("private_b", "10.0.2.0/24", 1, false, names.Scoped("private-b"), "Private")

	n.internetGateway = tfir.NewResource("aws_internet_gateway", "igw").
		Set("vpc_id", n.vpc.Ref("id")).
		Set("tags", tags("Name", names.Scoped("igw")))

	n.publicRouteTable = tfir.NewResource("aws_route_table", "public").
		Set("vpc_id", n.vpc.Ref("id")).
		Set("tags", tags("Name", names.Scoped("public-rt")))
	n.publicRoute = tfir.NewResource("aws_route", "public_internet").
		Set("route_table_id", n.publicRouteTable.Ref("id")).
		Set("destination_cidr_block", tfir.String("0.0.0.0/0")).
		Set("gateway_id", n.internetGateway.Ref("id"))
	n.publicAssoc = tfir.NewResource("aws_route_table_association", "public_assoc_a").
		Set("subnet_id", n.publicSubnet.Ref("id")).
		Set("route_table_id", n.publicRouteTable.Ref("id"))

	n.privateRouteTable = tfir.NewResource("aws_route_table", "private").
		Set("vpc_id", n.vpc.Ref("id")).
		Set("tags", tags("Name", names.Scoped("private-rt")))
	n.privateAssocA = tfir.NewResource("aws_route_table_association", "private_a_assoc").
		Set("subnet_id", n.privateSubnetA.Ref("id")).
		Set("route_table_id", n.privateRouteTable.Ref("id"))
	n.privateAssocB = tfir.NewResource("aws_route_table_association", "private_b_assoc").
		Set("subnet_id", n.privateSubnetB.Ref("id")).
		Set("route_table_id", n.privateRouteTable.Ref("id"))

	n.lambdaSG = tfir.NewResource("aws_security_group", "lambda_sg").
		Set("name", tfir.String(names.Scoped("lambda-sg"))).
		Set("description", tfir.String("Lambda VPC SG")).
		Set("vpc_id", n.vpc.Ref("id")).
		Set("egress", allTraffic("Allow all outbound traffic", "0.0.0.0/0")).
		Set("tags", tags("Name", names.Scoped("lambda-sg")))

	n.natAMI = tfir.NewData("aws_ami", "al2_arm").
		Set("owners", tfir.Strings("amazon")).
		Set("most_recent", tfir.Bool(true)).
		Set("filter_name", amiFilter("name", "amzn2-ami-kernel-5.10-hvm-*-arm64-gp2")).
		Set("filter_architecture", amiFilter("architecture", "arm64")).
		Set("filter_virtualization", amiFilter("virtualization-type", "hvm")).
		Set("filter_root_device", amiFilter("root-device-type", "ebs"))

	n.natSG = tfir.NewResource("aws_security_group", "nat_sg").
		Set("name", tfir.String(names.Scoped("nat-sg"))).
		Set("description", tfir.String("Allow private subnets to egress via NAT; allow internet out")).
		Set("vpc_id", n.vpc.Ref("id")).
		Set("ingress", allTraffic("Allow all traffic from private subnets", "10.0.1.0/24", "10.0.2.0/24")).
		Set("egress", allTraffic("Allow all outbound traffic", "0.0.0.0/0")).
		Set("tags", tags("Name", names.Scoped("nat-sg")))

	n.natInstance = tfir.NewResource("aws_instance", "nat").
		Set("ami", n.natAMI.Ref("id")).
		Set("instance_type", tfir.String("t4g.nano")).
		Set("subnet_id", n.publicSubnet.Ref("id")).
		Set("vpc_security_group_ids", tfir.List{n.natSG.Ref("id")}).
		Set("associate_public_ip_address", tfir.Bool(true)).
		Set("source_dest_check", tfir.Bool(false)).
		Set("user_data", tfir.Heredoc(natUserData)).
		Set("credit_specification", tfir.NewObject().Set("cpu_credits", tfir.String("unlimited"))).
		Set("lifecycle", tfir.NewObject().Set("ignore_changes", tfir.List{tfir.Raw("ami")})).
		Set("tags", tags("Name", names.Scoped("nat"), "Type", "NAT"))

	n.natRoute = tfir.NewResource("aws_route", "private_nat_route").
		Set("route_table_id", n.privateRouteTable.Ref("id")).
		Set("destination_cidr_block", tfir.String("0.0.0.0/0")).
		Set("network_interface_id", n.natInstance.Ref("primary_network_interface_id"))

	if includeFixedIP {
		n.natEIP = tfir.NewResource("aws_eip", "nat_eip").
			Set("domain", tfir.String("vpc")).
			Set("depends_on", tfir.List{n.internetGateway.Ref()}).
			Set("tags", tags("Name", names.Scoped("nat-eip")))
		n.natEIPAssoc = tfir.NewResource("aws_eip_association", "nat_assoc").
			Set("instance_id", n.natInstance.Ref("id")).
			Set("allocation_id", n.natEIP.Ref("id"))
	}
	return n, nil
}
