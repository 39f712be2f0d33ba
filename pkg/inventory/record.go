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

package inventory

import (
	"github.com/google/uuid"
	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// NewRecord returns the declared state of the graph. Secret values of
// sensitive declarations are replaced by their digest. An empty run id is
// replaced by a random one.
func NewRecord(g *graph.Graph, runID string) (*invv1alpha1.Record, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	record := &invv1alpha1.Record{
		Stack:        g.Name(),
		RunID:        runID,
		Declarations: make(map[string]invv1alpha1.DeclarationRecord, g.Len()),
		Exports:      map[string]string{},
	}
	for _, d := range g.Declarations() {
		manifest, err := d.Manifest()
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %s", d.Address())
		}
		if d.Sensitive {
			if err := maskSecretData(manifest); err != nil {
				return nil, errors.Wrapf(err, "mask %s", d.Address())
			}
		}
		b, err := yaml.Marshal(manifest)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s", d.Address())
		}
		dr := invv1alpha1.DeclarationRecord{
			Type:      d.Type,
			Provider:  d.Provider,
			Hash:      d.Hash(),
			Sensitive: d.Sensitive,
			Manifest:  string(b),
		}
		if deps := d.Dependencies(); len(deps) > 0 {
			dr.Dependencies = deps
		}
		record.Declarations[d.Address()] = dr
	}
	for _, e := range g.Exports() {
		record.Exports[e.Name] = e.Template
	}
	return record, nil
}
