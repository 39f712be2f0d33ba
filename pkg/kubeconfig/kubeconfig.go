package kubeconfig

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/kform-dev/kstack/pkg/render/refrender"
	"github.com/kform-dev/kstack/pkg/resources/awsinfra"
	"github.com/kform-dev/kstack/pkg/stack"
	"github.com/pkg/errors"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/yaml"
)

const (
	execAPIVersion = "client.authentication.k8s.io/v1beta1"
	execCommand    = "aws"
)

// Input are the resolved values a kubeconfig is built from.
type Input struct {
	ClusterName string
	Endpoint    string
	// CertificateAuthority is base64 encoded, as returned by eks
	CertificateAuthority string
	// RoleARN is assumed by the token command when set
	RoleARN string
	Region  string
}

// FromOutputs collects the input of the cluster in the graph from the
// outputs resolved by the provisioning engine.
func FromOutputs(g *graph.Graph, outputs graph.Outputs, region string) (Input, error) {
	clusters := g.DeclarationsOfType(awsinfra.TypeCluster)
	if len(clusters) != 1 {
		return Input{}, fmt.Errorf("expecting 1 cluster declaration, got %d", len(clusters))
	}
	cluster := clusters[0]
	values := outputs[cluster.Address()]
	in := Input{
		ClusterName:          values[awsinfra.OutputName],
		Endpoint:             values[awsinfra.OutputEndpoint],
		CertificateAuthority: values[awsinfra.OutputCertificateAuthority],
		Region:               region,
	}
	if in.ClusterName == "" {
		in.ClusterName = cluster.Name
	}
	for _, export := range g.Exports() {
		if export.Name != stack.ExportClusterAdminRoleARN {
			continue
		}
		resolved := true
		arn := refrender.Substitute(export.Template, func(ref refrender.Reference) (string, bool) {
			v, ok := outputs[ref.Address][ref.Output]
			resolved = resolved && ok
			return v, ok
		})
		if resolved {
			in.RoleARN = arn
		}
	}
	return in, nil
}

// New returns a kubeconfig with a single context that authenticates through
// `aws eks get-token`.
func New(in Input) (*clientcmdapi.Config, error) {
	if in.ClusterName == "" {
		return nil, errors.New("cluster name is required")
	}
	if in.Endpoint == "" {
		return nil, errors.Errorf("cluster %s: endpoint is required", in.ClusterName)
	}
	caData, err := base64.StdEncoding.DecodeString(in.CertificateAuthority)
	if err != nil {
		return nil, errors.Wrapf(err, "cluster %s: invalid certificate authority", in.ClusterName)
	}

	args := []string{"eks", "get-token", "--cluster-name", in.ClusterName}
	if in.Region != "" {
		args = append(args, "--region", in.Region)
	}
	if in.RoleARN != "" {
		args = append(args, "--role-arn", in.RoleARN)
	}

	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[in.ClusterName] = &clientcmdapi.Cluster{
		Server:                   in.Endpoint,
		CertificateAuthorityData: caData,
	}
	cfg.AuthInfos[in.ClusterName] = &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:      execAPIVersion,
			Command:         execCommand,
			Args:            args,
			InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
		},
	}
	cfg.Contexts[in.ClusterName] = &clientcmdapi.Context{
		Cluster:  in.ClusterName,
		AuthInfo: in.ClusterName,
	}
	cfg.CurrentContext = in.ClusterName
	return cfg, nil
}

// Merge adds the current context of newCfg with its cluster and user to
// existing, replacing entries with the same names, and selects it.
func Merge(existing, newCfg *clientcmdapi.Config) (*clientcmdapi.Config, error) {
	if newCfg == nil || newCfg.CurrentContext == "" {
		return nil, errors.New("input kubeconfig has no current context")
	}
	newCtx, ok := newCfg.Contexts[newCfg.CurrentContext]
	if !ok {
		return nil, errors.Errorf("current context %q not found in kubeconfig", newCfg.CurrentContext)
	}
	cluster, ok := newCfg.Clusters[newCtx.Cluster]
	if !ok {
		return nil, errors.Errorf("referenced cluster %q not found", newCtx.Cluster)
	}
	user, ok := newCfg.AuthInfos[newCtx.AuthInfo]
	if !ok {
		return nil, errors.Errorf("referenced user %q not found", newCtx.AuthInfo)
	}
	if existing == nil {
		existing = clientcmdapi.NewConfig()
	}
	existing.Clusters[newCtx.Cluster] = cluster.DeepCopy()
	existing.AuthInfos[newCtx.AuthInfo] = user.DeepCopy()
	existing.Contexts[newCfg.CurrentContext] = newCtx.DeepCopy()
	existing.CurrentContext = newCfg.CurrentContext
	return existing, nil
}

// Print prints cfg to writer in yaml or json.
func Print(w io.Writer, cfg *clientcmdapi.Config, format string) error {
	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return errors.Wrap(err, "serialize kubeconfig")
	}
	if format == "json" {
		j, err := yaml.YAMLToJSON(data)
		if err != nil {
			return errors.Wrap(err, "convert to json")
		}
		_, err = w.Write(j)
		return err
	}
	_, err = w.Write(data)
	return err
}
