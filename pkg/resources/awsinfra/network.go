/*
Copyright 2024 Nokia.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package awsinfra

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	"k8s.io/utils/ptr"
)

const (
	TypeNetwork = "awsx_vpc"

	OutputVPCID               = "vpcId"
	OutputPublicSubnetIDs     = "publicSubnetIds"
	OutputPrivateSubnetIDs    = "privateSubnetIds"
	OutputIsolatedSubnetIDs   = "isolatedSubnetIds"
	OutputNATGatewayPublicIPs = "natGatewayPublicIps"

	maxZones      = 6
	maxSubnetMask = 28

	tagName            = "Name"
	tagELBRole         = "kubernetes.io/role/elb"
	tagInternalELBRole = "kubernetes.io/role/internal-elb"
)

// NetworkDescriptor is a vpc with its subnets laid out over the zones. Subnet
// and nat gateway inputs leave the vpc and subnet ids empty, they are filled
// in by the engine when the vpc is created.
type NetworkDescriptor struct {
	Vpc                *ec2.CreateVpcInput `json:"vpc"`
	EnableDNSHostnames bool                `json:"enableDnsHostnames"`
	AvailabilityZones  []string            `json:"availabilityZones"`
	NATStrategy        string              `json:"natStrategy"`
	InternetGateway    bool                `json:"internetGateway"`
	SubnetGroups       []SubnetGroup       `json:"subnetGroups"`
	NATGateways        []NATGateway        `json:"natGateways,omitempty"`
}

// SubnetGroup holds one subnet per zone.
type SubnetGroup struct {
	Name     string                   `json:"name"`
	Type     string                   `json:"type"`
	CIDRMask int                      `json:"cidrMask"`
	Subnets  []*ec2.CreateSubnetInput `json:"subnets"`
}

type NATGateway struct {
	Name             string                     `json:"name"`
	AvailabilityZone string                     `json:"availabilityZone"`
	SubnetGroup      string                     `json:"subnetGroup"`
	Address          *ec2.AllocateAddressInput  `json:"address"`
	Gateway          *ec2.CreateNatGatewayInput `json:"gateway"`
}

// NewNetwork lays out the subnets of the network and returns its declaration.
// For each zone in order, for each subnet spec in order, the next block
// aligned on the subnet mask is allocated. A layout that does not fit the vpc
// block is an invalid parameter.
func NewNetwork(region string, spec stackv1alpha1.NetworkSpec) (*graph.Declaration, error) {
	prefix, err := netip.ParsePrefix(spec.CIDRBlock)
	if err != nil || !prefix.Addr().Is4() {
		return nil, config.InvalidParameter("network.cidrBlock", "%q is not an ipv4 prefix", spec.CIDRBlock)
	}
	if prefix.Masked() != prefix {
		return nil, config.InvalidParameter("network.cidrBlock", "%q has host bits set", spec.CIDRBlock)
	}
	if spec.ZoneCount < 1 || spec.ZoneCount > maxZones {
		return nil, config.InvalidParameter("network.zoneCount", "%d not in [1, %d]", spec.ZoneCount, maxZones)
	}
	if len(spec.Subnets) == 0 {
		return nil, config.InvalidParameter("network.subnets", "at least one subnet is required")
	}
	zones, err := availabilityZones(region, spec)
	if err != nil {
		return nil, err
	}

	groups := make([]SubnetGroup, 0, len(spec.Subnets))
	hasType := map[stackv1alpha1.SubnetType]bool{}
	for i, s := range spec.Subnets {
		switch s.Type {
		case stackv1alpha1.SubnetTypePublic, stackv1alpha1.SubnetTypePrivate, stackv1alpha1.SubnetTypeIsolated:
		default:
			return nil, config.InvalidParameter(fmt.Sprintf("network.subnets[%d].type", i), "unknown subnet type %q", s.Type)
		}
		if s.CIDRMask < prefix.Bits() || s.CIDRMask > maxSubnetMask {
			return nil, config.InvalidParameter(fmt.Sprintf("network.subnets[%d].cidrMask", i), "/%d not in [/%d, /%d]", s.CIDRMask, prefix.Bits(), maxSubnetMask)
		}
		hasType[s.Type] = true
		groups = append(groups, SubnetGroup{
			Name:     s.Name,
			Type:     string(s.Type),
			CIDRMask: s.CIDRMask,
			Subnets:  make([]*ec2.CreateSubnetInput, 0, len(zones)),
		})
	}

	start := uint64(ipv4ToUint32(prefix.Addr()))
	end := start + 1<<(32-prefix.Bits())
	next := start
	for z, zone := range zones {
		for i, s := range spec.Subnets {
			size := uint64(1) << (32 - s.CIDRMask)
			aligned := (next + size - 1) &^ (size - 1)
			if aligned+size > end {
				return nil, config.InvalidParameter("network.subnets", "subnet layout does not fit in %s", spec.CIDRBlock)
			}
			cidr := netip.PrefixFrom(uint32ToIPv4(uint32(aligned)), s.CIDRMask)
			groups[i].Subnets = append(groups[i].Subnets, &ec2.CreateSubnetInput{
				CidrBlock:         ptr.To(cidr.String()),
				AvailabilityZone:  ptr.To(zone),
				TagSpecifications: subnetTags(spec.Name, s, z+1),
			})
			next = aligned + size
		}
	}

	desc := &NetworkDescriptor{
		Vpc: &ec2.CreateVpcInput{
			CidrBlock:         ptr.To(spec.CIDRBlock),
			TagSpecifications: nameTags(ec2types.ResourceTypeVpc, spec.Name),
		},
		EnableDNSHostnames: spec.EnableDNSHostnames,
		AvailabilityZones:  zones,
		NATStrategy:        string(spec.NATStrategy),
		InternetGateway:    hasType[stackv1alpha1.SubnetTypePublic],
		SubnetGroups:       groups,
	}
	natGateways, err := natGateways(spec, zones, groups)
	if err != nil {
		return nil, err
	}
	desc.NATGateways = natGateways

	outputs := []string{OutputVPCID, OutputNATGatewayPublicIPs}
	for _, t := range []struct {
		subnetType stackv1alpha1.SubnetType
		output     string
	}{
		{stackv1alpha1.SubnetTypePublic, OutputPublicSubnetIDs},
		{stackv1alpha1.SubnetTypePrivate, OutputPrivateSubnetIDs},
		{stackv1alpha1.SubnetTypeIsolated, OutputIsolatedSubnetIDs},
	} {
		if hasType[t.subnetType] {
			outputs = append(outputs, t.output)
		}
	}
	return graph.New(TypeNetwork, spec.Name, graph.ProviderAWS, desc, outputs...), nil
}

func availabilityZones(region string, spec stackv1alpha1.NetworkSpec) ([]string, error) {
	if len(spec.AvailabilityZones) > 0 {
		if len(spec.AvailabilityZones) < spec.ZoneCount {
			return nil, config.InvalidParameter("network.availabilityZones", "%d zones listed, %d required", len(spec.AvailabilityZones), spec.ZoneCount)
		}
		return append([]string{}, spec.AvailabilityZones[:spec.ZoneCount]...), nil
	}
	if region == "" {
		return nil, config.InvalidParameter("region", "region is required")
	}
	zones := make([]string, 0, spec.ZoneCount)
	for i := 0; i < spec.ZoneCount; i++ {
		zones = append(zones, fmt.Sprintf("%s%c", region, 'a'+i))
	}
	return zones, nil
}

// natGateways places the gateways in the public subnets, one in the first
// zone for the single strategy or one per zone.
func natGateways(spec stackv1alpha1.NetworkSpec, zones []string, groups []SubnetGroup) ([]NATGateway, error) {
	var zoneCount int
	switch spec.NATStrategy {
	case stackv1alpha1.NATStrategyNone, "":
		return nil, nil
	case stackv1alpha1.NATStrategySingle:
		zoneCount = 1
	case stackv1alpha1.NATStrategyOnePerAz:
		zoneCount = len(zones)
	default:
		return nil, config.InvalidParameter("network.natStrategy", "unknown strategy %q", spec.NATStrategy)
	}
	var public *SubnetGroup
	for i := range groups {
		if groups[i].Type == string(stackv1alpha1.SubnetTypePublic) {
			public = &groups[i]
			break
		}
	}
	if public == nil {
		return nil, config.InvalidParameter("network.natStrategy", "nat gateways require a public subnet")
	}
	gws := make([]NATGateway, 0, zoneCount)
	for z := 0; z < zoneCount; z++ {
		name := fmt.Sprintf("%s-%d", spec.Name, z+1)
		gws = append(gws, NATGateway{
			Name:             name,
			AvailabilityZone: zones[z],
			SubnetGroup:      public.Name,
			Address: &ec2.AllocateAddressInput{
				Domain:            ec2types.DomainTypeVpc,
				TagSpecifications: nameTags(ec2types.ResourceTypeElasticIp, name),
			},
			Gateway: &ec2.CreateNatGatewayInput{
				ConnectivityType:  ec2types.ConnectivityTypePublic,
				TagSpecifications: nameTags(ec2types.ResourceTypeNatgateway, name),
			},
		})
	}
	return gws, nil
}

func subnetTags(network string, s stackv1alpha1.SubnetSpec, zoneIndex int) []ec2types.TagSpecification {
	tags := []ec2types.Tag{
		{Key: ptr.To(tagName), Value: ptr.To(fmt.Sprintf("%s-%s-%d", network, s.Name, zoneIndex))},
	}
	switch s.Type {
	case stackv1alpha1.SubnetTypePublic:
		tags = append(tags, ec2types.Tag{Key: ptr.To(tagELBRole), Value: ptr.To("1")})
	case stackv1alpha1.SubnetTypePrivate:
		tags = append(tags, ec2types.Tag{Key: ptr.To(tagInternalELBRole), Value: ptr.To("1")})
	}
	return []ec2types.TagSpecification{{ResourceType: ec2types.ResourceTypeSubnet, Tags: tags}}
}

func nameTags(resourceType ec2types.ResourceType, name string) []ec2types.TagSpecification {
	return []ec2types.TagSpecification{{
		ResourceType: resourceType,
		Tags:         []ec2types.Tag{{Key: ptr.To(tagName), Value: ptr.To(name)}},
	}}
}

func ipv4ToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uint32ToIPv4(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
