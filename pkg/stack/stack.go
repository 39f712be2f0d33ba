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

package stack

import (
	"context"
	"fmt"

	"github.com/henderiw/logger/log"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/kform-dev/kstack/pkg/resources/awsinfra"
	"github.com/kform-dev/kstack/pkg/resources/kube"
	"github.com/kform-dev/kstack/pkg/rules"
	"github.com/pkg/errors"
)

const (
	ExportKubeconfig          = "kubeconfig"
	ExportVPCID               = "vpcId"
	ExportVPCPublicIPs        = "vpcPublicIps"
	ExportEKSName             = "eksName"
	ExportClusterAdminRoleARN = "clusterAdminRoleArn"
	ExportUpdateKubeCmd       = "updateKubeCmd"

	// BootstrapPropertiesKey is looked up when the bootstrap properties are
	// not part of the stack file.
	BootstrapPropertiesKey = "bootstrap_properties"
)

// RequiredKeys returns the configuration keys the stack needs a value for.
func RequiredKeys(s *stackv1alpha1.Stack) []string {
	keys := []string{}
	for _, e := range s.Spec.Secret.Entries {
		keys = append(keys, e.ConfigKey)
	}
	if s.Spec.Bootstrap != nil && s.Spec.Bootstrap.Properties == "" {
		keys = append(keys, BootstrapPropertiesKey)
	}
	return keys
}

// Build declares the stack. Missing configuration and invalid parameters are
// reported before anything is declared.
func Build(ctx context.Context, s *stackv1alpha1.Stack, src config.Source) (*graph.Graph, error) {
	log := log.FromContext(ctx).With("stack", s.GetName())

	values, err := config.Require(ctx, src, RequiredKeys(s)...)
	if err != nil {
		return nil, err
	}
	if err := rules.Validate(ctx, s); err != nil {
		return nil, err
	}
	if err := checkSecretEntries(s.Spec.Secret); err != nil {
		return nil, err
	}

	b := graph.NewBuilder(s.GetName())
	if err := declare(ctx, b, &s.Spec, values); err != nil {
		return nil, err
	}
	g, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range g.Warnings() {
		log.Warn(w)
	}
	log.Info("stack declared", "declarations", g.Len(), "exports", len(g.Exports()))
	return g, nil
}

// checkSecretEntries rejects secret keys that are used more than once, the
// later value would silently replace the earlier one.
func checkSecretEntries(spec stackv1alpha1.SecretSpec) error {
	seen := make(map[string]int, len(spec.Entries))
	for i, e := range spec.Entries {
		if j, ok := seen[e.Key]; ok {
			return config.InvalidParameter(fmt.Sprintf("secret.entries[%d].key", i), "duplicate key %q, already used by entry %d", e.Key, j)
		}
		seen[e.Key] = i
	}
	return nil
}

func declare(ctx context.Context, b *graph.Builder, spec *stackv1alpha1.StackSpec, values map[string]string) error {
	network, err := awsinfra.NewNetwork(spec.Region, spec.Network)
	if err != nil {
		return err
	}
	b.Add(ctx, network)

	admin, err := awsinfra.NewRole(spec.AdminRole.Name, awsinfra.PrincipalAWS, spec.AdminRole.Principal, spec.AdminRole.Tags)
	if err != nil {
		return errors.Wrap(err, "admin role")
	}
	b.Add(ctx, admin)

	node, err := awsinfra.NewRole(spec.NodeRole.Name, awsinfra.PrincipalService, spec.NodeRole.Service, nil)
	if err != nil {
		return errors.Wrap(err, "node role")
	}
	b.Add(ctx, node)

	attachments := make([]*graph.Declaration, 0, len(spec.NodeRole.PolicyAttachments))
	for _, a := range spec.NodeRole.PolicyAttachments {
		d, err := awsinfra.NewRolePolicyAttachment(a.Name, node, a.PolicyARN)
		if err != nil {
			return err
		}
		attachments = append(attachments, b.Add(ctx, d))
	}

	cluster, err := awsinfra.NewCluster(awsinfra.ClusterInput{
		Spec:                spec.Cluster,
		Network:             network,
		NodeRole:            node,
		AdminRole:           admin,
		NodeRoleAttachments: attachments,
	})
	if err != nil {
		return err
	}
	b.Add(ctx, cluster)

	provider, err := kube.NewProvider(spec.Cluster.Name, cluster, awsinfra.OutputKubeconfig)
	if err != nil {
		return err
	}
	b.Add(ctx, provider)

	role, err := kube.NewClusterAdminRole(provider, spec.Access.ClusterRoleName)
	if err != nil {
		return err
	}
	b.Add(ctx, role)
	binding, err := kube.NewClusterRoleBinding(provider, spec.Access.BindingName, role, spec.Access.Subject)
	if err != nil {
		return err
	}
	b.Add(ctx, binding)

	ns, err := kube.NewNamespace(provider, spec.Namespace)
	if err != nil {
		return err
	}
	b.Add(ctx, ns)

	data := make(map[string]string, len(spec.Secret.Entries))
	for _, e := range spec.Secret.Entries {
		data[e.Key] = values[e.ConfigKey]
	}
	secret, err := kube.NewSecret(provider, ns, spec.Secret.Name, data)
	if err != nil {
		return err
	}
	b.Add(ctx, secret)

	for _, w := range spec.Workloads {
		d, err := kube.NewDeployment(provider, kube.DeploymentInput{
			Workload:  w,
			Namespace: ns,
			Secret:    secret,
		})
		if err != nil {
			return err
		}
		b.Add(ctx, d)
	}

	if spec.Bootstrap != nil {
		if err := declareBootstrap(ctx, b, provider, ns, spec.Bootstrap, values); err != nil {
			return err
		}
	}

	b.Export(ctx, ExportKubeconfig, cluster.Ref(awsinfra.OutputKubeconfig))
	b.Export(ctx, ExportVPCID, network.Ref(awsinfra.OutputVPCID))
	b.Export(ctx, ExportVPCPublicIPs, network.Ref(awsinfra.OutputNATGatewayPublicIPs))
	b.Export(ctx, ExportEKSName, cluster.Ref(awsinfra.OutputName))
	b.Export(ctx, ExportClusterAdminRoleARN, admin.Ref(awsinfra.OutputARN))
	b.Export(ctx, ExportUpdateKubeCmd, UpdateKubeCmd(cluster.Ref(awsinfra.OutputName), admin.Ref(awsinfra.OutputARN)))
	return nil
}

func declareBootstrap(ctx context.Context, b *graph.Builder, provider, ns *graph.Declaration, spec *stackv1alpha1.BootstrapSpec, values map[string]string) error {
	properties := spec.Properties
	if properties == "" {
		properties = values[BootstrapPropertiesKey]
	}
	cm, err := kube.NewConfigMap(provider, ns, spec.ConfigMapName, map[string]string{
		spec.PropertiesFile: properties,
	})
	if err != nil {
		return err
	}
	b.Add(ctx, cm)
	d, err := kube.NewDeployment(provider, kube.DeploymentInput{
		Workload: stackv1alpha1.WorkloadSpec{
			Name:            spec.Name,
			Image:           spec.Image,
			ImagePullPolicy: spec.ImagePullPolicy,
			Replicas:        1,
			Args:            spec.Args,
		},
		Namespace: ns,
		ConfigMap: cm,
		MountPath: spec.MountPath,
		ArgsEnv:   kube.EnvBootstrapArgs,
	})
	if err != nil {
		return err
	}
	b.Add(ctx, d)
	return nil
}

// UpdateKubeCmd returns the command fetching the cluster credentials with the
// admin role.
func UpdateKubeCmd(clusterName, roleARN string) string {
	return fmt.Sprintf("aws eks update-kubeconfig --name %s --role-arn %s", clusterName, roleARN)
}
