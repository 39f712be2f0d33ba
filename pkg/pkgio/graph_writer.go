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

package pkgio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/henderiw/logger/log"
	"github.com/kform-dev/kstack/pkg/fsys"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/pkg/errors"
	"sigs.k8s.io/kustomize/kyaml/kio"
	"sigs.k8s.io/kustomize/kyaml/yaml"
)

// GraphWriter writes the declarations of a graph in dependency order.
type GraphWriter struct {
	Type OutputSink
	// Could be a file or directory
	Path string
	// Fsys is used by the file and directory sinks
	Fsys fsys.FS
	// Writer is used by the stdout and memory sinks
	Writer io.Writer
}

func (r *GraphWriter) Write(ctx context.Context, g *graph.Graph) error {
	log := log.FromContext(ctx).With("type", r.Type, "path", r.Path)
	nodes, err := Nodes(g)
	if err != nil {
		return err
	}

	switch r.Type {
	case OutputSink_None:
		return nil
	case OutputSink_StdOut, OutputSink_Memory:
		if r.Writer == nil {
			return fmt.Errorf("cannot write graph %s, no writer", g.Name())
		}
		return kio.ByteWriter{Writer: r.Writer}.Write(nodes)
	case OutputSink_File:
		buf := &bytes.Buffer{}
		if err := (kio.ByteWriter{Writer: buf}).Write(nodes); err != nil {
			return err
		}
		if err := r.Fsys.WriteFile(r.Path, buf.Bytes(), 0644); err != nil {
			return errors.Wrapf(err, "cannot write graph %s", g.Name())
		}
		log.Debug("written", "declarations", len(nodes))
		return nil
	case OutputSink_Dir:
		// every declaration is an individual file, the prefix keeps the order
		if err := r.Fsys.MkdirAll(r.Path); err != nil {
			return err
		}
		for i, rn := range nodes {
			out, err := rn.String()
			if err != nil {
				return err
			}
			fileName := filepath.Join(r.Path, fmt.Sprintf("%03d_%s.yaml", i, rn.GetName()))
			if err := r.Fsys.WriteFile(fileName, []byte(out), 0644); err != nil {
				return errors.Wrapf(err, "cannot write declaration %s", rn.GetName())
			}
		}
		log.Debug("written", "declarations", len(nodes))
		return nil
	default:
		return fmt.Errorf("unsupported output sink %d", r.Type)
	}
}

// Nodes returns the declaration manifests in topological order.
func Nodes(g *graph.Graph) ([]*yaml.RNode, error) {
	nodes := make([]*yaml.RNode, 0, g.Len())
	for _, d := range g.Declarations() {
		m, err := d.Manifest()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot render %s", d.Address())
		}
		rn, err := yaml.FromMap(m)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot render %s", d.Address())
		}
		nodes = append(nodes, rn)
	}
	return nodes, nil
}
