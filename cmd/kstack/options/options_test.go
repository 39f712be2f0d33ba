package options

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

func TestStorage(t *testing.T) {
	cases := map[string]struct {
		recordFile  string
		kubeRecord  string
		wantNil     bool
		expectedErr bool
	}{
		"None": {
			wantNil: true,
		},
		"File": {
			recordFile: "record.yaml",
		},
		"Both": {
			recordFile:  "record.yaml",
			kubeRecord:  "ns/name",
			expectedErr: true,
		},
		"InvalidKubeRecord": {
			kubeRecord:  "name",
			expectedErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ioStreams, _, _, _ := genericclioptions.NewTestIOStreams()
			storage, err := New(ioStreams).Storage(tc.recordFile, tc.kubeRecord)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantNil, storage == nil)
		})
	}
}

func TestReadOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eks_cluster.c1:\n  name: c1-1a2b\n"), 0644))

	ioStreams, _, _, _ := genericclioptions.NewTestIOStreams()
	outputs, err := New(ioStreams).ReadOutputs(path)
	require.NoError(t, err)
	assert.Equal(t, graph.Outputs{"eks_cluster.c1": {"name": "c1-1a2b"}}, outputs)
}

func TestReadStdin(t *testing.T) {
	ioStreams, in, _, _ := genericclioptions.NewTestIOStreams()
	in.WriteString("a: b\n")
	b, err := New(ioStreams).ReadFile("-")
	require.NoError(t, err)
	assert.Equal(t, "a: b\n", string(b))
}

func TestLoadStackWrongKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apiVersion: v1\nkind: ConfigMap\n"), 0644))
	ioStreams, _, _, _ := genericclioptions.NewTestIOStreams()
	opts := New(ioStreams)
	opts.StackFile = path
	_, err := opts.LoadStack(context.Background())
	assert.ErrorContains(t, err, "expecting")
}
