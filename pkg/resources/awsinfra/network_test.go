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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subnetCIDRs(g SubnetGroup) []string {
	l := []string{}
	for _, s := range g.Subnets {
		l = append(l, *s.CidrBlock)
	}
	return l
}

func subnetZones(g SubnetGroup) []string {
	l := []string{}
	for _, s := range g.Subnets {
		l = append(l, *s.AvailabilityZone)
	}
	return l
}

func TestNewNetwork(t *testing.T) {
	spec := stackv1alpha1.DefaultStack().Spec
	d, err := NewNetwork(spec.Region, spec.Network)
	require.NoError(t, err)

	assert.Equal(t, "awsx_vpc.responsive-example-eks-vpc", d.Address())
	assert.Equal(t, []string{OutputVPCID, OutputNATGatewayPublicIPs, OutputPublicSubnetIDs, OutputPrivateSubnetIDs}, d.Outputs)
	assert.False(t, d.HasOutput(OutputIsolatedSubnetIDs))

	desc, ok := d.Spec.(*NetworkDescriptor)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.0/16", *desc.Vpc.CidrBlock)
	assert.Equal(t, []string{"us-west-2a", "us-west-2b"}, desc.AvailabilityZones)
	assert.True(t, desc.InternetGateway)
	assert.True(t, desc.EnableDNSHostnames)
	require.Len(t, desc.SubnetGroups, 2)

	if diff := cmp.Diff([]string{"10.0.0.0/19", "10.0.128.0/19"}, subnetCIDRs(desc.SubnetGroups[0])); diff != "" {
		t.Errorf("public subnets -want, +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"10.0.64.0/18", "10.0.192.0/18"}, subnetCIDRs(desc.SubnetGroups[1])); diff != "" {
		t.Errorf("private subnets -want, +got:\n%s", diff)
	}
	assert.Equal(t, []string{"us-west-2a", "us-west-2b"}, subnetZones(desc.SubnetGroups[1]))

	require.Len(t, desc.NATGateways, 1)
	assert.Equal(t, "us-west-2a", desc.NATGateways[0].AvailabilityZone)
	assert.Equal(t, "public_frontend", desc.NATGateways[0].SubnetGroup)
}

func TestNewNetworkNATStrategy(t *testing.T) {
	cases := map[string]struct {
		strategy stackv1alpha1.NATStrategy
		want     int
	}{
		"None":     {strategy: stackv1alpha1.NATStrategyNone, want: 0},
		"Single":   {strategy: stackv1alpha1.NATStrategySingle, want: 1},
		"OnePerAz": {strategy: stackv1alpha1.NATStrategyOnePerAz, want: 2},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			spec := stackv1alpha1.DefaultStack().Spec
			spec.Network.NATStrategy = tc.strategy
			d, err := NewNetwork(spec.Region, spec.Network)
			require.NoError(t, err)
			assert.Len(t, d.Spec.(*NetworkDescriptor).NATGateways, tc.want)
		})
	}
}

func TestNewNetworkAlignment(t *testing.T) {
	spec := stackv1alpha1.NetworkSpec{
		Name:      "aligned",
		CIDRBlock: "10.1.0.0/16",
		ZoneCount: 3,
		Subnets: []stackv1alpha1.SubnetSpec{
			{Name: "small", Type: stackv1alpha1.SubnetTypeIsolated, CIDRMask: 24},
			{Name: "large", Type: stackv1alpha1.SubnetTypePrivate, CIDRMask: 20},
		},
	}
	d, err := NewNetwork("eu-west-1", spec)
	require.NoError(t, err)
	desc := d.Spec.(*NetworkDescriptor)
	assert.Equal(t, []string{"10.1.0.0/24", "10.1.32.0/24", "10.1.64.0/24"}, subnetCIDRs(desc.SubnetGroups[0]))
	assert.Equal(t, []string{"10.1.16.0/20", "10.1.48.0/20", "10.1.80.0/20"}, subnetCIDRs(desc.SubnetGroups[1]))
	assert.Equal(t, []string{"eu-west-1a", "eu-west-1b", "eu-west-1c"}, desc.AvailabilityZones)
	assert.False(t, desc.InternetGateway)
	assert.True(t, d.HasOutput(OutputIsolatedSubnetIDs))
}

func TestNewNetworkErrors(t *testing.T) {
	cases := map[string]struct {
		mutate func(s *stackv1alpha1.NetworkSpec)
		field  string
	}{
		"NotAPrefix": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.CIDRBlock = "10.0.0.0" },
			field:  "network.cidrBlock",
		},
		"IPv6": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.CIDRBlock = "fd00::/48" },
			field:  "network.cidrBlock",
		},
		"HostBits": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.CIDRBlock = "10.0.1.0/16" },
			field:  "network.cidrBlock",
		},
		"NoZones": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.ZoneCount = 0 },
			field:  "network.zoneCount",
		},
		"TooManyZones": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.ZoneCount = 7 },
			field:  "network.zoneCount",
		},
		"MaskBelowPrefix": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.Subnets[0].CIDRMask = 15 },
			field:  "network.subnets[0].cidrMask",
		},
		"MaskTooSmall": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.Subnets[1].CIDRMask = 29 },
			field:  "network.subnets[1].cidrMask",
		},
		"DoesNotFit": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.ZoneCount = 3 },
			field:  "network.subnets",
		},
		"UnknownType": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.Subnets[0].Type = "Dmz" },
			field:  "network.subnets[0].type",
		},
		"NATWithoutPublicSubnet": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.Subnets[0].Type = stackv1alpha1.SubnetTypeIsolated },
			field:  "network.natStrategy",
		},
		"NotEnoughZonesListed": {
			mutate: func(s *stackv1alpha1.NetworkSpec) { s.AvailabilityZones = []string{"us-west-2c"} },
			field:  "network.availabilityZones",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			spec := stackv1alpha1.DefaultStack().Spec
			tc.mutate(&spec.Network)
			_, err := NewNetwork(spec.Region, spec.Network)
			require.Error(t, err)
			var invalid *config.InvalidParameterError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestNewNetworkIsDeterministic(t *testing.T) {
	spec := stackv1alpha1.DefaultStack().Spec
	first, err := NewNetwork(spec.Region, spec.Network)
	require.NoError(t, err)
	second, err := NewNetwork(spec.Region, spec.Network)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
