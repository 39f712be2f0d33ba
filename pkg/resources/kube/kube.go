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
	"fmt"
	"strings"

	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
)

const (
	TypeProvider           = "kubernetes_provider"
	TypeClusterRole        = "rbac_cluster_role"
	TypeClusterRoleBinding = "rbac_cluster_role_binding"
	TypeNamespace          = "kubernetes_namespace"
	TypeSecret             = "kubernetes_secret"
	TypeConfigMap          = "kubernetes_config_map"
	TypeDeployment         = "kubernetes_deployment"

	OutputName = "name"
	OutputUID  = "uid"
	OutputID   = "id"

	labelKeyApp = "app"
)

// ProviderDescriptor binds kubernetes declarations to the cluster the
// kubeconfig points at.
type ProviderDescriptor struct {
	Cluster    string `json:"cluster"`
	Kubeconfig string `json:"kubeconfig"`
}

// NewProvider declares the kubernetes provider of a cluster. The cluster must
// expose a kubeconfig output.
func NewProvider(name string, cluster *graph.Declaration, kubeconfigOutput string) (*graph.Declaration, error) {
	if cluster == nil || !cluster.HasOutput(kubeconfigOutput) {
		return nil, config.InvalidParameter("provider.cluster", "a cluster with a %s output is required", kubeconfigOutput)
	}
	return graph.New(TypeProvider, name, graph.ProviderKubernetes, &ProviderDescriptor{
		Cluster:    cluster.Address(),
		Kubeconfig: cluster.Ref(kubeconfigOutput),
	}, OutputID), nil
}

// newObject returns a kubernetes declaration bound to the provider.
func newObject(provider *graph.Declaration, typ, name string, obj any, outputs ...string) (*graph.Declaration, error) {
	if provider == nil || provider.Type != TypeProvider {
		return nil, config.InvalidParameter(fmt.Sprintf("%s.%s.provider", typ, name), "a kubernetes provider is required")
	}
	d := graph.New(typ, name, graph.ProviderKubernetes, obj, outputs...)
	d.DependsOn = []string{provider.Address()}
	return d, nil
}

func validateName(field, name string, validate func(string) []string) error {
	if errs := validate(name); len(errs) > 0 {
		return config.InvalidParameter(field, "%q: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

func namespaceRef(field string, ns *graph.Declaration) (string, error) {
	if ns == nil || ns.Type != TypeNamespace {
		return "", config.InvalidParameter(field, "a namespace is required")
	}
	return ns.Ref(OutputName), nil
}

func appLabels(name string) map[string]string {
	return map[string]string{labelKeyApp: name}
}
