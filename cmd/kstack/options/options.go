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

package options

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/henderiw/logger/log"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/fsys"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/kform-dev/kstack/pkg/inventory"
	"github.com/kform-dev/kstack/pkg/inventory/policy"
	"github.com/kform-dev/kstack/pkg/stack"
	"github.com/pkg/errors"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	cliinventory "sigs.k8s.io/cli-utils/pkg/inventory"
	"sigs.k8s.io/yaml"
)

const DefaultStackFile = "stack.yaml"

// Options are the global flags shared by the subcommands.
type Options struct {
	StackFile  string
	ValuesFile string
	EnvPrefix  string
	// OwnershipPolicy applies to config map records
	OwnershipPolicy string
	// KubeClient replaces the client built from ConfigFlags when set
	KubeClient  kubernetes.Interface
	ConfigFlags *genericclioptions.ConfigFlags
	IOStreams   genericclioptions.IOStreams
}

func New(ioStreams genericclioptions.IOStreams) *Options {
	return &Options{
		StackFile:       DefaultStackFile,
		EnvPrefix:       config.DefaultEnvPrefix,
		OwnershipPolicy: policy.Name(cliinventory.PolicyMustMatch),
		ConfigFlags:     genericclioptions.NewConfigFlags(true),
		IOStreams:       ioStreams,
	}
}

// FileFS returns a disk file system rooted at the directory of path and the
// name of the file within it.
func FileFS(path string) (fsys.FS, string, error) {
	return fsys.ForFile(path)
}

// ReadFile reads a file given on the command line, "-" reads stdin.
func (r *Options) ReadFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(r.IOStreams.In)
	}
	fs, name, err := FileFS(path)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(name)
}

func (r *Options) LoadStack(ctx context.Context) (*stackv1alpha1.Stack, error) {
	log := log.FromContext(ctx)
	if !fsys.FileExists(r.StackFile) {
		return nil, fmt.Errorf("stack file %s not found, run kstack init to create one", r.StackFile)
	}
	b, err := r.ReadFile(r.StackFile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read stack file %s", r.StackFile)
	}
	s := &stackv1alpha1.Stack{}
	if err := yaml.UnmarshalStrict(b, s); err != nil {
		return nil, errors.Wrapf(err, "cannot parse stack file %s", r.StackFile)
	}
	if s.Kind != stackv1alpha1.StackKind || s.APIVersion != stackv1alpha1.SchemeGroupVersion.String() {
		return nil, fmt.Errorf("stack file %s: expecting %s %s, got %s %s",
			r.StackFile, stackv1alpha1.SchemeGroupVersion.String(), stackv1alpha1.StackKind, s.APIVersion, s.Kind)
	}
	log.Debug("stack loaded", "file", r.StackFile, "name", s.GetName())
	return s, nil
}

// Source returns the configuration source: the values file when given,
// then the environment.
func (r *Options) Source(ctx context.Context) (config.Source, error) {
	chain := config.Chain{}
	if r.ValuesFile != "" {
		fs, name, err := FileFS(r.ValuesFile)
		if err != nil {
			return nil, err
		}
		src, err := config.NewFileSource(fs, name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, src)
	}
	chain = append(chain, config.NewEnvSource(r.EnvPrefix))
	return chain, nil
}

// BuildStructure declares the graph with placeholder values, the values file
// and the environment are not read.
func (r *Options) BuildStructure(ctx context.Context) (*stackv1alpha1.Stack, *graph.Graph, error) {
	s, err := r.LoadStack(ctx)
	if err != nil {
		return nil, nil, err
	}
	g, err := stack.Build(ctx, s, config.PlaceholderSource{})
	if err != nil {
		return nil, nil, err
	}
	return s, g, nil
}

// Build loads the stack and the configuration and declares the graph.
func (r *Options) Build(ctx context.Context) (*stackv1alpha1.Stack, *graph.Graph, error) {
	s, err := r.LoadStack(ctx)
	if err != nil {
		return nil, nil, err
	}
	src, err := r.Source(ctx)
	if err != nil {
		return nil, nil, err
	}
	g, err := stack.Build(ctx, s, src)
	if err != nil {
		return nil, nil, err
	}
	return s, g, nil
}

// Storage returns the record storage: a file, or a config map given as
// namespace/name in the cluster of the kubeconfig flags.
func (r *Options) Storage(recordFile, kubeRecord string) (inventory.Storage, error) {
	switch {
	case recordFile != "" && kubeRecord != "":
		return nil, fmt.Errorf("record file and kube record are mutually exclusive")
	case recordFile != "":
		fs, name, err := FileFS(recordFile)
		if err != nil {
			return nil, err
		}
		return inventory.NewFileStorage(fs, name), nil
	case kubeRecord != "":
		namespace, name, ok := strings.Cut(kubeRecord, "/")
		if !ok || namespace == "" || name == "" {
			return nil, fmt.Errorf("kube record must be NAMESPACE/NAME, got %q", kubeRecord)
		}
		client, err := r.kubeClient()
		if err != nil {
			return nil, err
		}
		p, err := policy.Parse(r.OwnershipPolicy)
		if err != nil {
			return nil, err
		}
		storage := inventory.NewConfigMapStorage(client, namespace, name)
		storage.Policy = p
		return storage, nil
	default:
		return nil, nil
	}
}

func (r *Options) kubeClient() (kubernetes.Interface, error) {
	if r.KubeClient != nil {
		return r.KubeClient, nil
	}
	restConfig, err := r.ConfigFlags.ToRESTConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restConfig)
}

// ReadOutputs reads the outputs resolved by the provisioning engine, a yaml
// map of address to output name to value.
func (r *Options) ReadOutputs(path string) (graph.Outputs, error) {
	b, err := r.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read outputs %s", path)
	}
	outputs := graph.Outputs{}
	if err := yaml.Unmarshal(b, &outputs); err != nil {
		return nil, errors.Wrapf(err, "cannot parse outputs %s", path)
	}
	return outputs, nil
}
