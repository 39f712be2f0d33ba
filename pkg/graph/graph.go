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

package graph

import (
	"context"
	"io"
	"strings"

	"github.com/kform-dev/kstack/pkg/dag"
	"github.com/kform-dev/kstack/pkg/render/refrender"
	"github.com/pkg/errors"
)

// Graph is the result of a build: declarations with their dependency edges in
// a deterministic topological order.
type Graph struct {
	name         string
	dag          dag.DAG[*Declaration]
	declarations map[string]*Declaration
	order        []string
	levels       [][]string
	exports      []Export
	warnings     []string
}

// Outputs are output values resolved by the provisioning engine, keyed by
// address and output name.
type Outputs map[string]map[string]string

func (r *Graph) Name() string { return r.name }

func (r *Graph) Get(address string) (*Declaration, bool) {
	if address == dag.Root {
		return nil, false
	}
	d, err := r.dag.GetVertex(address)
	return d, err == nil
}

func (r *Graph) Len() int { return len(r.declarations) }

// Declarations returns the declarations in topological order.
func (r *Graph) Declarations() []*Declaration {
	decls := make([]*Declaration, 0, len(r.order))
	for _, address := range r.order {
		decls = append(decls, r.declarations[address])
	}
	return decls
}

// DeclarationsOfType returns the declarations of a type in topological order.
func (r *Graph) DeclarationsOfType(typ string) []*Declaration {
	decls := []*Declaration{}
	for _, d := range r.Declarations() {
		if d.Type == typ {
			decls = append(decls, d)
		}
	}
	return decls
}

// Levels groups the addresses in levels that can be applied concurrently.
func (r *Graph) Levels() [][]string {
	levels := make([][]string, 0, len(r.levels))
	for _, level := range r.levels {
		levels = append(levels, append([]string{}, level...))
	}
	return levels
}

// Dependencies returns the addresses the given address depends on.
func (r *Graph) Dependencies(address string) []string {
	d, ok := r.declarations[address]
	if !ok {
		return nil
	}
	return d.Dependencies()
}

// Dependents returns the addresses depending on the given address.
func (r *Graph) Dependents(address string) []string {
	return r.dag.GetDownVertexes(address)
}

func (r *Graph) Exports() []Export {
	return append([]Export{}, r.exports...)
}

func (r *Graph) Warnings() []string {
	return append([]string{}, r.warnings...)
}

// Print writes the transitively reduced dependency graph.
func (r *Graph) Print(ctx context.Context, w io.Writer) error {
	d, err := r.newDAG(ctx)
	if err != nil {
		return err
	}
	d.TransitiveReduction(ctx)
	d.Print(w, r.name)
	return nil
}

// Resolve substitutes resolved output values into the exports. Every
// reference must have a value.
func (r *Graph) Resolve(outputs Outputs) (map[string]string, error) {
	resolved := make(map[string]string, len(r.exports))
	for _, export := range r.exports {
		missing := []string{}
		resolved[export.Name] = refrender.Substitute(export.Template, func(ref refrender.Reference) (string, bool) {
			v, ok := outputs[ref.Address][ref.Output]
			if !ok {
				missing = append(missing, ref.String())
			}
			return v, ok
		})
		if len(missing) > 0 {
			return nil, errors.Errorf("export %s: unresolved outputs %s", export.Name, strings.Join(missing, ", "))
		}
	}
	return resolved, nil
}
