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

package v1alpha1

import (
	"reflect"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	Group   = "stack.kform.dev"
	Version = "v1alpha1"
)

var (
	SchemeGroupVersion = schema.GroupVersion{Group: Group, Version: Version}
	StackKind          = reflect.TypeOf(Stack{}).Name()
)

// Stack is the configuration input of a stack declaration: the network,
// identities, cluster and workloads that make up one environment.
type Stack struct {
	metav1.TypeMeta   `json:",inline" yaml:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Spec StackSpec `json:"spec,omitempty" yaml:"spec,omitempty"`
}

type StackSpec struct {
	// Region the cloud resources are declared in
	// +kubebuilder:validation:Required
	Region    string        `json:"region" yaml:"region"`
	Network   NetworkSpec   `json:"network" yaml:"network"`
	AdminRole AdminRoleSpec `json:"adminRole" yaml:"adminRole"`
	NodeRole  NodeRoleSpec  `json:"nodeRole" yaml:"nodeRole"`
	Cluster   ClusterSpec   `json:"cluster" yaml:"cluster"`
	Access    AccessSpec    `json:"access" yaml:"access"`
	// Namespace holding the workloads and their secret bundle
	Namespace string         `json:"namespace" yaml:"namespace"`
	Secret    SecretSpec     `json:"secret" yaml:"secret"`
	Workloads []WorkloadSpec `json:"workloads,omitempty" yaml:"workloads,omitempty"`
	// Bootstrap is optional; when set a config map with the bootstrap
	// properties and a bootstrap deployment mounting it are declared.
	Bootstrap *BootstrapSpec `json:"bootstrap,omitempty" yaml:"bootstrap,omitempty"`
	// Image describes how the application container image is built.
	Image ImageSpec `json:"image" yaml:"image"`
	// Validations are additional CEL rules evaluated against the spec,
	// exposed to the expression as `spec`.
	Validations []ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty"`
}

type NetworkSpec struct {
	Name string `json:"name" yaml:"name"`
	// +kubebuilder:default="10.0.0.0/16"
	CIDRBlock string `json:"cidrBlock" yaml:"cidrBlock"`
	// ZoneCount is the number of availability zones the subnets are spread over
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=6
	ZoneCount int `json:"zoneCount" yaml:"zoneCount"`
	// AvailabilityZones overrides the zone names, otherwise <region>a, <region>b, ...
	AvailabilityZones  []string     `json:"availabilityZones,omitempty" yaml:"availabilityZones,omitempty"`
	EnableDNSHostnames bool         `json:"enableDnsHostnames" yaml:"enableDnsHostnames"`
	NATStrategy        NATStrategy  `json:"natStrategy" yaml:"natStrategy"`
	Subnets            []SubnetSpec `json:"subnets" yaml:"subnets"`
}

// +kubebuilder:validation:Enum=None;Single;OnePerAz
type NATStrategy string

const (
	NATStrategyNone     NATStrategy = "None"
	NATStrategySingle   NATStrategy = "Single"
	NATStrategyOnePerAz NATStrategy = "OnePerAz"
)

// +kubebuilder:validation:Enum=Public;Private;Isolated
type SubnetType string

const (
	SubnetTypePublic   SubnetType = "Public"
	SubnetTypePrivate  SubnetType = "Private"
	SubnetTypeIsolated SubnetType = "Isolated"
)

type SubnetSpec struct {
	Name string     `json:"name" yaml:"name"`
	Type SubnetType `json:"type" yaml:"type"`
	// +kubebuilder:validation:Minimum=16
	// +kubebuilder:validation:Maximum=28
	CIDRMask int `json:"cidrMask" yaml:"cidrMask"`
}

type AdminRoleSpec struct {
	Name string `json:"name" yaml:"name"`
	// Principal is the AWS principal ARN allowed to assume the role
	Principal string            `json:"principal" yaml:"principal"`
	Tags      map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type NodeRoleSpec struct {
	Name string `json:"name" yaml:"name"`
	// Service is the service principal allowed to assume the role
	// +kubebuilder:default="ec2.amazonaws.com"
	Service           string                 `json:"service" yaml:"service"`
	PolicyAttachments []PolicyAttachmentSpec `json:"policyAttachments,omitempty" yaml:"policyAttachments,omitempty"`
}

type PolicyAttachmentSpec struct {
	Name      string `json:"name" yaml:"name"`
	PolicyARN string `json:"policyArn" yaml:"policyArn"`
}

type ClusterSpec struct {
	Name string `json:"name" yaml:"name"`
	// Version of kubernetes, empty selects the provider default
	Version                      string            `json:"version,omitempty" yaml:"version,omitempty"`
	InstanceType                 string            `json:"instanceType" yaml:"instanceType"`
	DesiredCapacity              int32             `json:"desiredCapacity" yaml:"desiredCapacity"`
	MinSize                      int32             `json:"minSize" yaml:"minSize"`
	MaxSize                      int32             `json:"maxSize" yaml:"maxSize"`
	NodeAssociatePublicIPAddress bool              `json:"nodeAssociatePublicIpAddress" yaml:"nodeAssociatePublicIpAddress"`
	CreateOIDCProvider           bool              `json:"createOidcProvider" yaml:"createOidcProvider"`
	EndpointPrivateAccess        bool              `json:"endpointPrivateAccess" yaml:"endpointPrivateAccess"`
	EndpointPublicAccess         bool              `json:"endpointPublicAccess" yaml:"endpointPublicAccess"`
	Fargate                      bool              `json:"fargate" yaml:"fargate"`
	ServiceIPv4CIDR              string            `json:"serviceIpv4Cidr" yaml:"serviceIpv4Cidr"`
	RoleMappings                 []RoleMappingSpec `json:"roleMappings,omitempty" yaml:"roleMappings,omitempty"`
}

// RoleMappingSpec maps one of the stack roles to a cluster user and groups.
type RoleMappingSpec struct {
	// +kubebuilder:validation:Enum=admin;node
	Role     string   `json:"role" yaml:"role"`
	Username string   `json:"username" yaml:"username"`
	Groups   []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

const (
	RoleMappingAdmin = "admin"
	RoleMappingNode  = "node"
)

type AccessSpec struct {
	ClusterRoleName string `json:"clusterRoleName" yaml:"clusterRoleName"`
	BindingName     string `json:"bindingName" yaml:"bindingName"`
	// Subject is the cluster user granted the cluster role
	Subject string `json:"subject" yaml:"subject"`
}

type SecretSpec struct {
	Name    string        `json:"name" yaml:"name"`
	Entries []SecretEntry `json:"entries" yaml:"entries"`
}

// SecretEntry maps a key of the secret bundle to a configuration key whose
// value is looked up at declaration time.
type SecretEntry struct {
	Key       string `json:"key" yaml:"key"`
	ConfigKey string `json:"configKey" yaml:"configKey"`
}

type WorkloadSpec struct {
	Name            string `json:"name" yaml:"name"`
	Image           string `json:"image" yaml:"image"`
	ImagePullPolicy string `json:"imagePullPolicy,omitempty" yaml:"imagePullPolicy,omitempty"`
	Replicas        int32  `json:"replicas" yaml:"replicas"`
	// Args is passed to the container as the ARGS env variable
	Args                          string       `json:"args,omitempty" yaml:"args,omitempty"`
	Env                           []EnvVarSpec `json:"env,omitempty" yaml:"env,omitempty"`
	TerminationGracePeriodSeconds *int64       `json:"terminationGracePeriodSeconds,omitempty" yaml:"terminationGracePeriodSeconds,omitempty"`
}

// EnvVarSpec is either a literal value or a pod field reference.
type EnvVarSpec struct {
	Name      string `json:"name" yaml:"name"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	FieldPath string `json:"fieldPath,omitempty" yaml:"fieldPath,omitempty"`
}

type BootstrapSpec struct {
	Name            string `json:"name" yaml:"name"`
	Image           string `json:"image" yaml:"image"`
	ImagePullPolicy string `json:"imagePullPolicy,omitempty" yaml:"imagePullPolicy,omitempty"`
	ConfigMapName   string `json:"configMapName" yaml:"configMapName"`
	// PropertiesFile is the key of the properties file in the config map
	PropertiesFile string `json:"propertiesFile" yaml:"propertiesFile"`
	// Properties is the content of the properties file
	Properties string `json:"properties" yaml:"properties"`
	MountPath  string `json:"mountPath" yaml:"mountPath"`
	// Args is passed to the container as the BOOTSTRAP_ARGS env variable
	Args string `json:"args,omitempty" yaml:"args,omitempty"`
}

type ImageSpec struct {
	// Image is the target image reference
	Image       string `json:"image" yaml:"image"`
	BaseImage   string `json:"baseImage,omitempty" yaml:"baseImage,omitempty"`
	JavaVersion int    `json:"javaVersion" yaml:"javaVersion"`
	MainClass   string `json:"mainClass,omitempty" yaml:"mainClass,omitempty"`
	// JVMFlags may reference build environment variables as ${env.NAME}
	JVMFlags        []string          `json:"jvmFlags,omitempty" yaml:"jvmFlags,omitempty"`
	Dependencies    []DependencySpec  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	FilePermissions map[string]string `json:"filePermissions,omitempty" yaml:"filePermissions,omitempty"`
}

type DependencySpec struct {
	Group    string `json:"group" yaml:"group"`
	Artifact string `json:"artifact" yaml:"artifact"`
	Version  string `json:"version" yaml:"version"`
	// +kubebuilder:validation:Enum=implementation;testImplementation;testRuntimeOnly
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// Coordinate returns group:artifact
func (r DependencySpec) Coordinate() string {
	return r.Group + ":" + r.Artifact
}

type ValidationRule struct {
	Rule    string `json:"rule" yaml:"rule"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}
