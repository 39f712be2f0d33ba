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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

const (
	DefaultStackName = "responsive-example"
	exampleImage     = "public.ecr.aws/x3k6i9w2/responsivedev/example-app"
)

// DefaultStack returns the responsive example environment: a two zone vpc
// with a single nat gateway, an eks cluster of m5.large nodes and the
// example and generator workloads sharing one secret bundle.
func DefaultStack() *Stack {
	return &Stack{
		TypeMeta: metav1.TypeMeta{
			APIVersion: SchemeGroupVersion.String(),
			Kind:       StackKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: DefaultStackName,
		},
		Spec: StackSpec{
			Region: "us-west-2",
			Network: NetworkSpec{
				Name:               "responsive-example-eks-vpc",
				CIDRBlock:          "10.0.0.0/16",
				ZoneCount:          2,
				EnableDNSHostnames: true,
				NATStrategy:        NATStrategySingle,
				Subnets: []SubnetSpec{
					{Name: "public_frontend", Type: SubnetTypePublic, CIDRMask: 19},
					{Name: "backend", Type: SubnetTypePrivate, CIDRMask: 18},
				},
			},
			AdminRole: AdminRoleSpec{
				Name:      "responsive-example-eks-cluster-admin",
				Principal: "arn:aws:iam::083511421557:root",
				Tags: map[string]string{
					"clusterAccess": "responsive-example-eks-cluster-admin-usr",
				},
			},
			NodeRole: NodeRoleSpec{
				Name:    "eks-node-access-role",
				Service: "ec2.amazonaws.com",
				PolicyAttachments: []PolicyAttachmentSpec{
					{Name: "cr-readonly", PolicyARN: "arn:aws:iam::aws:policy/AmazonEC2ContainerRegistryReadOnly"},
					{Name: "cni", PolicyARN: "arn:aws:iam::aws:policy/AmazonEKS_CNI_Policy"},
					{Name: "worker", PolicyARN: "arn:aws:iam::aws:policy/AmazonEKSWorkerNodePolicy"},
				},
			},
			Cluster: ClusterSpec{
				Name:                         "responsive-example-eks-cluster",
				InstanceType:                 "m5.large",
				DesiredCapacity:              2,
				MinSize:                      1,
				MaxSize:                      3,
				NodeAssociatePublicIPAddress: false,
				CreateOIDCProvider:           true,
				EndpointPrivateAccess:        true,
				EndpointPublicAccess:         true,
				ServiceIPv4CIDR:              "172.20.0.0/16",
				RoleMappings: []RoleMappingSpec{
					{
						Role:     RoleMappingAdmin,
						Username: "responsive:admin-usr",
						Groups:   []string{"responsive:admin-grp"},
					},
				},
			},
			Access: AccessSpec{
				ClusterRoleName: "clusterAdminRole",
				BindingName:     "clusterAdminRoleBinding",
				Subject:         "responsive:admin-usr",
			},
			Namespace: "responsive",
			Secret: SecretSpec{
				Name: "app-secrets",
				Entries: []SecretEntry{
					{Key: "__EXT_RESPONSIVE_MONGO_USERNAME", ConfigKey: "responsive_mongo_username"},
					{Key: "__EXT_RESPONSIVE_MONGO_PASSWORD", ConfigKey: "responsive_mongo_password"},
					{Key: "__EXT_RESPONSIVE_PLATFORM_API_KEY", ConfigKey: "responsive_platform_key"},
					{Key: "__EXT_RESPONSIVE_PLATFORM_SECRET", ConfigKey: "responsive_platform_secret"},
					{Key: "__EXT_RESPONSIVE_MONGO_ENDPOINT", ConfigKey: "responsive_mongo_hostname"},
					{Key: "KAFKA_API_KEY", ConfigKey: "kafka_api_key"},
					{Key: "KAFKA_API_SECRET", ConfigKey: "kafka_api_secret"},
				},
			},
			Workloads: []WorkloadSpec{
				{
					Name:            "example",
					Image:           exampleImage,
					ImagePullPolicy: "Always",
					Replicas:        1,
					Env: []EnvVarSpec{
						{Name: "POD_IP", FieldPath: "status.podIP"},
					},
				},
				{
					Name:                          "generator",
					Image:                         exampleImage,
					ImagePullPolicy:               "Always",
					Replicas:                      1,
					Args:                          "--generator",
					TerminationGracePeriodSeconds: ptr.To[int64](10),
					Env: []EnvVarSpec{
						{Name: "POD_IP", FieldPath: "status.podIP"},
					},
				},
			},
			Image: ImageSpec{
				Image:       "public.ecr.aws/j8q9y0n6/responsivedev/example-app",
				BaseImage:   "eclipse-temurin:17-jre",
				JavaVersion: 17,
				MainClass:   "dev.responsive.example.Main",
				JVMFlags: []string{
					"-javaagent:/usr/share/java/responsive-demoapp/opentelemetry-javaagent-1.25.0.jar",
					"-Dotel.metrics.exporter=otlp",
					"-Dotel.service.name=demoapp",
					"-Dotel.jmx.config=/otel-jmx.config",
					"-Dotel.exporter.otlp.metrics.headers=\"api-key=biz,secret=baz\"",
					"-Dotel.exporter.otlp.endpoint=${env.CONTROLLER_ENDPOINT}",
					"-Dotel.exporter.otlp.metrics.endpoint=${env.CONTROLLER_ENDPOINT}",
					"-Dotel.resource.attributes=responsiveApplicationId=responsive/responsive-demoapp",
					"-Dotel.metric.export.interval=10000",
					"-Dcom.sun.management.jmxremote=true",
					"-Dcom.sun.management.jmxremote.port=7192",
					"-Dcom.sun.management.jmxremote.authenticate=false",
					"-Dcom.sun.management.jmxremote.ssl=false",
					"-Dcom.sun.management.jmxremote.local.only=false",
					"-Dcom.sun.management.jmxremote.rmi.port=7192",
					"-Djava.rmi.server.hostname=${env.POD_IP}",
				},
				Dependencies: []DependencySpec{
					{Group: "org.apache.kafka", Artifact: "kafka-streams", Version: "3.4.0", Scope: "implementation"},
					{Group: "dev.responsive", Artifact: "kafka-client", Version: "0.2.0", Scope: "implementation"},
					{Group: "org.slf4j", Artifact: "slf4j-log4j12", Version: "2.0.5", Scope: "implementation"},
					{Group: "org.apache.logging.log4j", Artifact: "log4j-core", Version: "2.20.0", Scope: "implementation"},
					{Group: "io.opentelemetry.javaagent", Artifact: "opentelemetry-javaagent", Version: "1.25.0", Scope: "implementation"},
					{Group: "org.junit.jupiter", Artifact: "junit-jupiter-api", Version: "5.8.1", Scope: "testImplementation"},
					{Group: "org.junit.jupiter", Artifact: "junit-jupiter-engine", Version: "5.8.1", Scope: "testRuntimeOnly"},
				},
			},
		},
	}
}

// DefaultBootstrap returns the bootstrap job of the python flavour of the
// example. Properties are left empty and must be filled in by the caller.
func DefaultBootstrap() *BootstrapSpec {
	return &BootstrapSpec{
		Name:            "bootstrap",
		Image:           "public.ecr.aws/j8q9y0n6/responsiveinc/kafka-client-bootstrap:0.18.0",
		ImagePullPolicy: "Always",
		ConfigMapName:   "bootstrap-configmap",
		PropertiesFile:  "bootstrap.properties",
		MountPath:       "/etc/config",
		Args:            "-propertiesFile /etc/config/bootstrap.properties -name COUNT -changelogTopic responsive-example-COUNT-changelog",
	}
}
