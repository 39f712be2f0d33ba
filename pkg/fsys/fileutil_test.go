package fsys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	tmp := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(tmp, "stack.yaml"), []byte("a: b\n"), 0644))

	cases := map[string]struct {
		elems       []string
		expectedErr bool
	}{
		"Nested": {
			elems: []string{tmp, "out", "graph"},
		},
		"Existing": {
			elems: []string{tmp},
		},
		"File": {
			elems:       []string{tmp, "stack.yaml"},
			expectedErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := EnsureDir(context.Background(), tc.elems...)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.DirExists(t, filepath.Join(tc.elems...))
		})
	}
}

func TestFileExists(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "stack.yaml")
	assert.NoError(t, os.WriteFile(file, []byte("a: b\n"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(tmp))
	assert.False(t, FileExists(filepath.Join(tmp, "missing.yaml")))
}

func TestForFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "values.yaml")
	assert.NoError(t, os.WriteFile(file, []byte("region: eu-west-1\n"), 0644))

	fs, name, err := ForFile(file)
	require.NoError(t, err)
	assert.Equal(t, "values.yaml", name)
	b, err := fs.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "region: eu-west-1\n", string(b))

	assert.NoError(t, fs.WriteFile("graph.yaml", []byte("x: y\n"), 0644))
	assert.FileExists(t, filepath.Join(tmp, "graph.yaml"))
}
