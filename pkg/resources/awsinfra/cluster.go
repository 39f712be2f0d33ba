package awsinfra

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	"gopkg.in/yaml.v2"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	netutils "k8s.io/utils/net"
	"k8s.io/utils/ptr"
)

const (
	TypeCluster = "eks_cluster"

	OutputEndpoint             = "endpoint"
	OutputCertificateAuthority = "certificateAuthority"
	OutputOIDCIssuer           = "oidcIssuer"
	OutputOIDCProviderARN      = "oidcProviderArn"
	OutputKubeconfig           = "kubeconfig"

	AuthConfigMapName      = "aws-auth"
	AuthConfigMapNamespace = "kube-system"
	AuthConfigMapKey       = "mapRoles"

	nodeUsername = "system:node:{{EC2PrivateDNSName}}"
)

var nodeGroups = []string{"system:bootstrappers", "system:nodes"}

// ClusterDescriptor is the control plane, its managed node group and the
// aws-auth config map realising the role mappings. The control plane service
// role is provisioned together with the cluster and is not part of the input.
type ClusterDescriptor struct {
	Cluster                      *eks.CreateClusterInput   `json:"cluster"`
	NodeGroup                    *eks.CreateNodegroupInput `json:"nodeGroup"`
	NodeAssociatePublicIPAddress bool                      `json:"nodeAssociatePublicIpAddress"`
	CreateOIDCProvider           bool                      `json:"createOidcProvider"`
	Fargate                      bool                      `json:"fargate"`
	AuthConfigMap                *corev1.ConfigMap         `json:"authConfigMap"`
}

// RoleMapping is one entry of the aws-auth mapRoles document.
type RoleMapping struct {
	RoleARN  string   `yaml:"rolearn"`
	Username string   `yaml:"username"`
	Groups   []string `yaml:"groups,omitempty"`
}

type ClusterInput struct {
	Spec      stackv1alpha1.ClusterSpec
	Network   *graph.Declaration
	NodeRole  *graph.Declaration
	AdminRole *graph.Declaration
	// NodeRoleAttachments are applied before the node group is created
	NodeRoleAttachments []*graph.Declaration
}

// CheckSizing validates 0 <= min <= desired <= max and max >= 1.
func CheckSizing(minSize, desired, maxSize int32) error {
	switch {
	case minSize < 0:
		return config.InvalidParameter("cluster.minSize", "%d is negative", minSize)
	case maxSize < 1:
		return config.InvalidParameter("cluster.maxSize", "%d must be at least 1", maxSize)
	case minSize > maxSize:
		return config.InvalidParameter("cluster.minSize", "min %d above max %d", minSize, maxSize)
	case desired < minSize:
		return config.InvalidParameter("cluster.desiredCapacity", "desired %d below min %d", desired, minSize)
	case desired > maxSize:
		return config.InvalidParameter("cluster.desiredCapacity", "desired %d above max %d", desired, maxSize)
	}
	return nil
}

// NewCluster declares the eks cluster with its node group. Sizing is checked
// before anything is built.
func NewCluster(in ClusterInput) (*graph.Declaration, error) {
	spec := in.Spec
	if err := CheckSizing(spec.MinSize, spec.DesiredCapacity, spec.MaxSize); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		return nil, config.InvalidParameter("cluster.name", "name is required")
	}
	if spec.InstanceType == "" {
		return nil, config.InvalidParameter("cluster.instanceType", "instance type is required")
	}
	if spec.ServiceIPv4CIDR != "" && !netutils.IsIPv4CIDRString(spec.ServiceIPv4CIDR) {
		return nil, config.InvalidParameter("cluster.serviceIpv4Cidr", "%q is not an ipv4 cidr", spec.ServiceIPv4CIDR)
	}
	if in.Network == nil || in.Network.Type != TypeNetwork {
		return nil, config.InvalidParameter("cluster.network", "a network is required")
	}
	if in.NodeRole == nil || in.NodeRole.Type != TypeRole {
		return nil, config.InvalidParameter("cluster.nodeRole", "a node role is required")
	}

	clusterSubnets := []string{}
	for _, output := range []string{OutputPublicSubnetIDs, OutputPrivateSubnetIDs} {
		if in.Network.HasOutput(output) {
			clusterSubnets = append(clusterSubnets, in.Network.Ref(output))
		}
	}
	if len(clusterSubnets) == 0 {
		return nil, config.InvalidParameter("cluster.network", "network %s has no public or private subnets", in.Network.Name)
	}
	nodeSubnets := OutputPrivateSubnetIDs
	if spec.NodeAssociatePublicIPAddress || !in.Network.HasOutput(OutputPrivateSubnetIDs) {
		nodeSubnets = OutputPublicSubnetIDs
	}
	if !in.Network.HasOutput(nodeSubnets) {
		return nil, config.InvalidParameter("cluster.nodeAssociatePublicIpAddress", "network %s has no %s", in.Network.Name, nodeSubnets)
	}

	authConfigMap, err := authConfigMap(in)
	if err != nil {
		return nil, err
	}

	cluster := &eks.CreateClusterInput{
		Name: ptr.To(spec.Name),
		ResourcesVpcConfig: &ekstypes.VpcConfigRequest{
			SubnetIds:             clusterSubnets,
			EndpointPrivateAccess: ptr.To(spec.EndpointPrivateAccess),
			EndpointPublicAccess:  ptr.To(spec.EndpointPublicAccess),
		},
	}
	if spec.Version != "" {
		cluster.Version = ptr.To(spec.Version)
	}
	if spec.ServiceIPv4CIDR != "" {
		cluster.KubernetesNetworkConfig = &ekstypes.KubernetesNetworkConfigRequest{
			ServiceIpv4Cidr: ptr.To(spec.ServiceIPv4CIDR),
		}
	}

	desc := &ClusterDescriptor{
		Cluster: cluster,
		NodeGroup: &eks.CreateNodegroupInput{
			ClusterName:   ptr.To(spec.Name),
			NodegroupName: ptr.To(fmt.Sprintf("%s-nodes", spec.Name)),
			NodeRole:      ptr.To(in.NodeRole.Ref(OutputARN)),
			Subnets:       []string{in.Network.Ref(nodeSubnets)},
			InstanceTypes: []string{spec.InstanceType},
			ScalingConfig: &ekstypes.NodegroupScalingConfig{
				MinSize:     ptr.To(spec.MinSize),
				DesiredSize: ptr.To(spec.DesiredCapacity),
				MaxSize:     ptr.To(spec.MaxSize),
			},
		},
		NodeAssociatePublicIPAddress: spec.NodeAssociatePublicIPAddress,
		CreateOIDCProvider:           spec.CreateOIDCProvider,
		Fargate:                      spec.Fargate,
		AuthConfigMap:                authConfigMap,
	}

	outputs := []string{OutputName, OutputEndpoint, OutputCertificateAuthority, OutputOIDCIssuer, OutputKubeconfig}
	if spec.CreateOIDCProvider {
		outputs = append(outputs, OutputOIDCProviderARN)
	}
	d := graph.New(TypeCluster, spec.Name, graph.ProviderAWS, desc, outputs...)
	for _, a := range in.NodeRoleAttachments {
		d.DependsOn = append(d.DependsOn, a.Address())
	}
	return d, nil
}

// RoleMappings returns the mapRoles entries: the node role mapping used by
// the node group followed by the configured mappings.
func RoleMappings(in ClusterInput) ([]RoleMapping, error) {
	mappings := []RoleMapping{}
	hasNode := false
	for i, m := range in.Spec.RoleMappings {
		var role *graph.Declaration
		switch m.Role {
		case stackv1alpha1.RoleMappingAdmin:
			role = in.AdminRole
		case stackv1alpha1.RoleMappingNode:
			role = in.NodeRole
			hasNode = true
		default:
			return nil, config.InvalidParameter(fmt.Sprintf("cluster.roleMappings[%d].role", i), "unknown role %q", m.Role)
		}
		if role == nil {
			return nil, config.InvalidParameter(fmt.Sprintf("cluster.roleMappings[%d].role", i), "role %q is not declared", m.Role)
		}
		if m.Username == "" {
			return nil, config.InvalidParameter(fmt.Sprintf("cluster.roleMappings[%d].username", i), "username is required")
		}
		mappings = append(mappings, RoleMapping{
			RoleARN:  role.Ref(OutputARN),
			Username: m.Username,
			Groups:   m.Groups,
		})
	}
	if !hasNode {
		mappings = append([]RoleMapping{{
			RoleARN:  in.NodeRole.Ref(OutputARN),
			Username: nodeUsername,
			Groups:   nodeGroups,
		}}, mappings...)
	}
	return mappings, nil
}

func authConfigMap(in ClusterInput) (*corev1.ConfigMap, error) {
	mappings, err := RoleMappings(in)
	if err != nil {
		return nil, err
	}
	b, err := yaml.Marshal(mappings)
	if err != nil {
		return nil, err
	}
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       "ConfigMap",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      AuthConfigMapName,
			Namespace: AuthConfigMapNamespace,
		},
		Data: map[string]string{
			AuthConfigMapKey: string(b),
		},
	}, nil
}
