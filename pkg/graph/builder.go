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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/henderiw/logger/log"
	"github.com/henderiw/store"
	"github.com/henderiw/store/memory"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/dag"
	"github.com/kform-dev/kstack/pkg/recorder"
	"github.com/kform-dev/kstack/pkg/recorder/diag"
	"github.com/kform-dev/kstack/pkg/render/refrender"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Builder collects declarations in declaration order. A declaration can only
// reference outputs of declarations added before it, so the resulting graph
// has no forward references. Problems are recorded and reported together by
// Build.
type Builder struct {
	name         string
	declarations store.Storer[*Declaration]
	order        []string
	exports      []Export
	recorder     recorder.Recorder[diag.Diagnostic]
}

type Export struct {
	Name     string `json:"name" yaml:"name"`
	Template string `json:"template" yaml:"template"`
}

func NewBuilder(name string) *Builder {
	return &Builder{
		name:         name,
		declarations: memory.NewStore[*Declaration](),
		order:        []string{},
		exports:      []Export{},
		recorder:     recorder.New[diag.Diagnostic](),
	}
}

// Add validates and registers the declaration. It returns the declaration so
// callers can chain Ref on it.
func (r *Builder) Add(ctx context.Context, d *Declaration) *Declaration {
	log := log.FromContext(ctx)
	address := d.Address()
	if err := r.add(ctx, d); err != nil {
		r.recorder.Record(diag.DiagFromErrWithContext(address, err))
		return d
	}
	if d.HighPrivilege {
		log.Warn("high privilege declaration, review required", "address", address)
		r.recorder.Record(diag.DiagWarnfWithContext(address, "high privilege declaration, review required"))
	}
	log.Debug("declared", "address", address, "dependencies", d.dependencies)
	return d
}

func (r *Builder) add(ctx context.Context, d *Declaration) error {
	if !typeExpr.MatchString(d.Type) {
		return config.InvalidParameter(d.Type, "invalid declaration type %q", d.Type)
	}
	if !nameExpr.MatchString(d.Name) {
		return config.InvalidParameter(d.Address(), "invalid declaration name %q, expecting %s", d.Name, nameExpr.String())
	}
	if d.Provider == "" {
		return errors.New("provider is required")
	}
	address := d.Address()
	if _, err := r.declarations.Get(ctx, store.ToKey(address)); err == nil {
		return errors.New("duplicate declaration")
	}

	b, err := json.Marshal(d.Spec)
	if err != nil {
		return errors.Wrap(err, "cannot marshal spec")
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return errors.Wrap(err, "cannot unmarshal spec")
	}
	// only tokens minted by Ref are references, the rest is literal text
	renderer := refrender.New()
	published, err := renderer.Render(ctx, x)
	if err != nil {
		return errors.Wrap(err, "cannot render references")
	}
	if b, err = json.Marshal(published); err != nil {
		return errors.Wrap(err, "cannot marshal rendered spec")
	}

	deps := sets.New[string]()
	refs := renderer.GetReferences(ctx).UnsortedList()
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	for _, ref := range refs {
		if err := r.checkReference(ctx, ref); err != nil {
			return err
		}
		deps.Insert(ref.Address)
	}
	for _, dependsOn := range d.DependsOn {
		if _, err := r.declarations.Get(ctx, store.ToKey(dependsOn)); err != nil {
			return errors.Errorf("depends on %s which is not declared before it", dependsOn)
		}
		deps.Insert(dependsOn)
	}
	if deps.Has(address) {
		return errors.New("declaration references itself")
	}

	sum := sha256.Sum256(b)
	d.canonical = b
	d.hash = hex.EncodeToString(sum[:])
	d.references = refs
	d.dependencies = sets.List(deps)

	if err := r.declarations.Create(ctx, store.ToKey(address), d); err != nil {
		return errors.Wrap(err, "cannot store declaration")
	}
	r.order = append(r.order, address)
	return nil
}

func (r *Builder) checkReference(ctx context.Context, ref refrender.Reference) error {
	dep, err := r.declarations.Get(ctx, store.ToKey(ref.Address))
	if err != nil {
		return errors.Errorf("reference %s: %s is not declared before it", ref, ref.Address)
	}
	if !dep.HasOutput(ref.Output) {
		return errors.Errorf("reference %s: %s has no output %q", ref, ref.Address, ref.Output)
	}
	return nil
}

// Export records a named value for downstream consumers. The template may
// embed references; exports of sensitive declarations are rejected.
func (r *Builder) Export(ctx context.Context, name, template string) {
	for _, ref := range refrender.FindTokens(template) {
		if err := r.checkReference(ctx, ref); err != nil {
			r.recorder.Record(diag.DiagFromErrWithContext("export "+name, err))
			return
		}
		dep, _ := r.declarations.Get(ctx, store.ToKey(ref.Address))
		if dep.Sensitive {
			r.recorder.Record(diag.DiagErrorfWithContext("export "+name, "references sensitive declaration %s", ref.Address))
			return
		}
	}
	r.exports = append(r.exports, Export{Name: name, Template: refrender.Publish(template)})
}

// Warnings returns the warnings recorded so far.
func (r *Builder) Warnings() []string {
	return r.recorder.Get().Warnings()
}

// Build returns the immutable graph or all recorded errors.
func (r *Builder) Build(ctx context.Context) (*Graph, error) {
	if r.recorder.Get().HasError() {
		return nil, r.recorder.Get().Error()
	}
	g := &Graph{
		name:         r.name,
		declarations: map[string]*Declaration{},
		exports:      append([]Export{}, r.exports...),
		warnings:     r.Warnings(),
	}
	r.declarations.List(ctx, func(ctx context.Context, key store.Key, d *Declaration) {
		g.declarations[key.Name] = d
	})

	d, err := g.newDAG(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := d.TopologicalLevels(ctx)
	if err != nil {
		return nil, err
	}
	g.dag = d
	g.levels = levels
	for _, level := range levels {
		g.order = append(g.order, level...)
	}
	return g, nil
}

func (r *Graph) newDAG(ctx context.Context) (dag.DAG[*Declaration], error) {
	d := dag.New[*Declaration]()
	if err := d.AddVertex(ctx, dag.Root, nil); err != nil {
		return nil, err
	}
	for address, decl := range r.declarations {
		if err := d.AddVertex(ctx, address, decl); err != nil {
			return nil, err
		}
	}
	for address, decl := range r.declarations {
		if len(decl.dependencies) == 0 {
			d.Connect(ctx, dag.Root, address)
			continue
		}
		for _, dep := range decl.dependencies {
			d.Connect(ctx, dep, address)
		}
	}
	return d, nil
}
