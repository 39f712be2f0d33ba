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

package kube

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/utils/ptr"
)

const testPassword = "s3cr3t-plaintext"

type fixture struct {
	builder  *graph.Builder
	provider *graph.Declaration
	ns       *graph.Declaration
}

func newFixture(ctx context.Context, t *testing.T) *fixture {
	t.Helper()
	b := graph.NewBuilder("kube")
	cluster := b.Add(ctx, graph.New("eks_cluster", "c1", graph.ProviderAWS, map[string]string{"name": "c1"}, "name", "kubeconfig"))
	provider, err := NewProvider("c1", cluster, "kubeconfig")
	require.NoError(t, err)
	b.Add(ctx, provider)
	ns, err := NewNamespace(provider, "responsive")
	require.NoError(t, err)
	b.Add(ctx, ns)
	return &fixture{builder: b, provider: provider, ns: ns}
}

func TestNewProvider(t *testing.T) {
	cluster := graph.New("eks_cluster", "c1", graph.ProviderAWS, nil, "name")
	_, err := NewProvider("c1", cluster, "kubeconfig")
	var invalid *config.InvalidParameterError
	assert.True(t, errors.As(err, &invalid))

	cluster.Outputs = append(cluster.Outputs, "kubeconfig")
	d, err := NewProvider("c1", cluster, "kubeconfig")
	require.NoError(t, err)
	assert.Equal(t, cluster.Ref("kubeconfig"), d.Spec.(*ProviderDescriptor).Kubeconfig)
}

func TestClusterAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx, t)

	role, err := NewClusterAdminRole(f.provider, "clusterAdminRole")
	require.NoError(t, err)
	assert.True(t, role.HighPrivilege)
	cr := role.Spec.(*rbacv1.ClusterRole)
	assert.Equal(t, []rbacv1.PolicyRule{{APIGroups: []string{"*"}, Resources: []string{"*"}, Verbs: []string{"*"}}}, cr.Rules)
	assert.Equal(t, "true", cr.Annotations[graph.AnnotationKeyHighPrivilege])
	f.builder.Add(ctx, role)

	binding, err := NewClusterRoleBinding(f.provider, "clusterAdminRoleBinding", role, "responsive:admin-usr")
	require.NoError(t, err)
	assert.True(t, binding.HighPrivilege)
	crb := binding.Spec.(*rbacv1.ClusterRoleBinding)
	assert.Equal(t, rbacv1.RoleRef{APIGroup: "rbac.authorization.k8s.io", Kind: "ClusterRole", Name: role.Ref(OutputName)}, crb.RoleRef)
	assert.Equal(t, []rbacv1.Subject{{Kind: "User", APIGroup: "rbac.authorization.k8s.io", Name: "responsive:admin-usr"}}, crb.Subjects)
	f.builder.Add(ctx, binding)

	g, err := f.builder.Build(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Warnings(), 2)
	assert.Equal(t, []string{"kubernetes_provider.c1", "rbac_cluster_role.clusterAdminRole"}, g.Dependencies(binding.Address()))

	_, err = NewClusterRoleBinding(f.provider, "binding", f.ns, "user")
	assert.Error(t, err)
	_, err = NewClusterRoleBinding(f.provider, "binding", role, "")
	assert.Error(t, err)
}

func TestNewNamespace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx, t)
	assert.Equal(t, []string{"kubernetes_provider.c1"}, f.ns.DependsOn)

	_, err := NewNamespace(f.provider, "Not_A_Label")
	assert.Error(t, err)
	_, err = NewNamespace(nil, "responsive")
	assert.Error(t, err)
}

func TestNewSecret(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx, t)

	d, err := NewSecret(f.provider, f.ns, "app-secrets", map[string]string{
		"__EXT_RESPONSIVE_MONGO_PASSWORD": testPassword,
	})
	require.NoError(t, err)
	assert.True(t, d.Sensitive)
	secret := d.Spec.(*corev1.Secret)
	assert.Equal(t, corev1.SecretTypeOpaque, secret.Type)
	assert.Equal(t, f.ns.Ref(OutputName), secret.Namespace)

	b, err := json.Marshal(d.Spec)
	require.NoError(t, err)
	assert.NotContains(t, string(b), testPassword)
	assert.Contains(t, string(b), base64.StdEncoding.EncodeToString([]byte(testPassword)))

	f.builder.Add(ctx, d)
	_, err = f.builder.Build(ctx)
	require.NoError(t, err)

	_, err = NewSecret(f.provider, f.ns, "app-secrets", map[string]string{"bad key": testPassword})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testPassword)
}

func TestNewConfigMap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx, t)
	d, err := NewConfigMap(f.provider, f.ns, "bootstrap-configmap", map[string]string{"bootstrap.properties": "a=b\n"})
	require.NoError(t, err)
	assert.Equal(t, "kubernetes_config_map.bootstrap-configmap", d.Address())
	assert.False(t, d.Sensitive)

	_, err = NewConfigMap(f.provider, nil, "bootstrap-configmap", nil)
	assert.Error(t, err)
}

func TestNewDeployment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx, t)
	secret, err := NewSecret(f.provider, f.ns, "app-secrets", map[string]string{"KAFKA_API_KEY": "key"})
	require.NoError(t, err)
	f.builder.Add(ctx, secret)
	cm, err := NewConfigMap(f.provider, f.ns, "bootstrap-configmap", map[string]string{"bootstrap.properties": ""})
	require.NoError(t, err)
	f.builder.Add(ctx, cm)

	cases := map[string]struct {
		input       DeploymentInput
		wantEnv     []corev1.EnvVar
		wantGrace   *int64
		wantVolumes int
		wantDeps    []string
	}{
		"Example": {
			input: DeploymentInput{
				Workload:  stackv1alpha1.DefaultStack().Spec.Workloads[0],
				Namespace: f.ns,
				Secret:    secret,
			},
			wantEnv: []corev1.EnvVar{
				{Name: "POD_IP", ValueFrom: &corev1.EnvVarSource{FieldRef: &corev1.ObjectFieldSelector{FieldPath: "status.podIP"}}},
			},
			wantDeps: []string{"kubernetes_namespace.responsive", "kubernetes_provider.c1", "kubernetes_secret.app-secrets"},
		},
		"Generator": {
			input: DeploymentInput{
				Workload:  stackv1alpha1.DefaultStack().Spec.Workloads[1],
				Namespace: f.ns,
				Secret:    secret,
			},
			wantEnv: []corev1.EnvVar{
				{Name: "POD_IP", ValueFrom: &corev1.EnvVarSource{FieldRef: &corev1.ObjectFieldSelector{FieldPath: "status.podIP"}}},
				{Name: "ARGS", Value: "--generator"},
			},
			wantGrace: ptr.To[int64](10),
			wantDeps:  []string{"kubernetes_namespace.responsive", "kubernetes_provider.c1", "kubernetes_secret.app-secrets"},
		},
		"Bootstrap": {
			input: DeploymentInput{
				Workload: stackv1alpha1.WorkloadSpec{
					Name:     "bootstrap",
					Image:    "public.ecr.aws/j8q9y0n6/responsiveinc/kafka-client-bootstrap:0.18.0",
					Replicas: 1,
					Args:     "-propertiesFile /etc/config/bootstrap.properties",
				},
				Namespace: f.ns,
				ConfigMap: cm,
				MountPath: "/etc/config",
				ArgsEnv:   EnvBootstrapArgs,
			},
			wantEnv: []corev1.EnvVar{
				{Name: "BOOTSTRAP_ARGS", Value: "-propertiesFile /etc/config/bootstrap.properties"},
			},
			wantVolumes: 1,
			wantDeps:    []string{"kubernetes_config_map.bootstrap-configmap", "kubernetes_namespace.responsive", "kubernetes_provider.c1"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d, err := NewDeployment(f.provider, tc.input)
			require.NoError(t, err)
			deployment := d.Spec.(*appsv1.Deployment)
			pod := deployment.Spec.Template.Spec
			require.Len(t, pod.Containers, 1)
			if diff := cmp.Diff(tc.wantEnv, pod.Containers[0].Env); diff != "" {
				t.Errorf("env -want, +got:\n%s", diff)
			}
			assert.Equal(t, tc.wantGrace, pod.TerminationGracePeriodSeconds)
			assert.Len(t, pod.Volumes, tc.wantVolumes)
			assert.Equal(t, tc.input.Workload.Name+"-container", pod.Containers[0].Name)
			assert.Equal(t, map[string]string{"app": tc.input.Workload.Name}, deployment.Spec.Selector.MatchLabels)

			f.builder.Add(ctx, d)
			g, err := f.builder.Build(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDeps, g.Dependencies(d.Address()))
		})
	}
}

func TestNewDeploymentErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx, t)
	workload := stackv1alpha1.DefaultStack().Spec.Workloads[0]

	cases := map[string]struct {
		mutate func(in *DeploymentInput)
	}{
		"NoImage":            {mutate: func(in *DeploymentInput) { in.Workload.Image = "" }},
		"NegativeReplicas":   {mutate: func(in *DeploymentInput) { in.Workload.Replicas = -1 }},
		"NoNamespace":        {mutate: func(in *DeploymentInput) { in.Namespace = nil }},
		"SecretIsNotASecret": {mutate: func(in *DeploymentInput) { in.Secret = f.ns }},
		"ValueAndFieldPath": {mutate: func(in *DeploymentInput) {
			in.Workload.Env = []stackv1alpha1.EnvVarSpec{{Name: "X", Value: "1", FieldPath: "status.podIP"}}
		}},
		"BadEnvName": {mutate: func(in *DeploymentInput) {
			in.Workload.Env = []stackv1alpha1.EnvVarSpec{{Name: "1X", Value: "1"}}
		}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := DeploymentInput{Workload: workload, Namespace: f.ns}
			in.Workload.Env = append([]stackv1alpha1.EnvVarSpec{}, workload.Env...)
			tc.mutate(&in)
			_, err := NewDeployment(f.provider, in)
			var invalid *config.InvalidParameterError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}
