package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/kform-dev/kstack/cmd/kstack/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
)

const testValues = `responsive_mongo_username: mongo-user-plain
responsive_mongo_password: mongo-password-plain
responsive_platform_key: platform-key-plain
responsive_platform_secret: platform-secret-plain
responsive_mongo_hostname: mongo-host-plain
kafka_api_key: kafka-key-plain
kafka_api_secret: kafka-secret-plain
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWith(t, nil, args...)
}

func runWith(t *testing.T, client kubernetes.Interface, args ...string) (string, error) {
	t.Helper()
	ioStreams, _, out, _ := genericclioptions.NewTestIOStreams()
	opts := options.New(ioStreams)
	opts.KubeClient = client
	cmd := newMain(context.Background(), opts)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	stackFile := filepath.Join(dir, "stack.yaml")
	valuesFile := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(valuesFile, []byte(testValues), 0600))
	global := []string{"--stack", stackFile, "--values", valuesFile}

	_, err := run(t, "init", dir)
	require.NoError(t, err)
	assert.FileExists(t, stackFile)
	_, err = run(t, "init", dir)
	assert.Error(t, err, "existing stack file is not overwritten")

	out, err := run(t, append([]string{"graph"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "level 0:")
	assert.Contains(t, out, "awsx_vpc.responsive-example-eks-vpc")
	assert.Contains(t, out, "[high-privilege]")

	out, err = run(t, append([]string{"render"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "kind: Declaration")
	assert.NotContains(t, out, "mongo-password-plain")

	outDir := filepath.Join(dir, "out") + "/"
	_, err = run(t, append([]string{"render", "-o", outDir}, global...)...)
	require.NoError(t, err)
	files, err := filepath.Glob(filepath.Join(dir, "out", "*.yaml"))
	require.NoError(t, err)
	assert.Len(t, files, 15)

	recordFile := filepath.Join(dir, "record.yaml")
	_, err = run(t, append([]string{"render", "-o", filepath.Join(dir, "graph.yaml"), "--record", recordFile}, global...)...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "graph.yaml"))
	assert.FileExists(t, recordFile)

	out, err = run(t, append([]string{"diff", "--record", recordFile, "--exit-code"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "0 to create, 0 to update, 0 to delete")

	out, err = run(t, append([]string{"diff", "--against", filepath.Join(dir, "graph.yaml"), "--exit-code"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "0 to create, 0 to update, 0 to delete")
	assert.NotContains(t, out, "export")

	_, err = run(t, append([]string{"diff", "--against", recordFile}, global...)...)
	assert.ErrorContains(t, err, "has no name")

	_, err = run(t, append([]string{"diff"}, global...)...)
	assert.Error(t, err)

	out, err = run(t, append([]string{"exports"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "eksName: ${eks_cluster.responsive-example-eks-cluster.name}")

	out, err = run(t, append([]string{"image"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "entrypoint:")
	assert.Contains(t, out, "dev.responsive.example.Main")

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version:")
}

func TestMissingStackFile(t *testing.T) {
	_, err := run(t, "graph", "--stack", filepath.Join(t.TempDir(), "stack.yaml"))
	assert.ErrorContains(t, err, "kstack init")
}

func TestRenderOwnedByOtherStack(t *testing.T) {
	dir := t.TempDir()
	stackFile := filepath.Join(dir, "stack.yaml")
	valuesFile := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(valuesFile, []byte(testValues), 0600))
	_, err := run(t, "init", dir)
	require.NoError(t, err)

	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "kstack-inventory",
			Namespace: "default",
			Labels:    map[string]string{invv1alpha1.InventoryLabelKey: "other-stack"},
		},
	})
	outFile := filepath.Join(dir, "graph.yaml")
	_, err = runWith(t, client, "render", "--stack", stackFile, "--values", valuesFile,
		"-o", outFile, "--kube-record", "default/kstack-inventory")
	assert.ErrorContains(t, err, "owned by stack other-stack")
	assert.NoFileExists(t, outFile)

	cm, err := client.CoreV1().ConfigMaps("default").Get(context.Background(), "kstack-inventory", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "other-stack", cm.Labels[invv1alpha1.InventoryLabelKey])
}

func TestKubeconfigWithoutValues(t *testing.T) {
	dir := t.TempDir()
	stackFile := filepath.Join(dir, "stack.yaml")
	outputsFile := filepath.Join(dir, "outputs.yaml")
	_, err := run(t, "init", dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(outputsFile, []byte(`eks_cluster.responsive-example-eks-cluster:
  name: responsive-example-eks-cluster-1a2b
  endpoint: https://abc.gr7.us-west-2.eks.amazonaws.com
  certificateAuthority: Y2EtZGF0YQ==
aws_iam_role.responsive-example-eks-cluster-admin:
  arn: arn:aws:iam::083511421557:role/responsive-example-eks-cluster-admin
`), 0600))

	out, err := run(t, "kubeconfig", "--stack", stackFile, "--outputs", outputsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "server: https://abc.gr7.us-west-2.eks.amazonaws.com")
	assert.Contains(t, out, "--role-arn")
	assert.Contains(t, out, "current-context: responsive-example-eks-cluster-1a2b")
}
