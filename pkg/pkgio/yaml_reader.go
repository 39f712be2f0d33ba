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
	"io"
	"strings"

	"github.com/henderiw/store"
	"github.com/henderiw/store/memory"
	"github.com/pkg/errors"
	"sigs.k8s.io/kustomize/kyaml/yaml"
)

// YAMLReader reads a rendered declaration stream. Documents are keyed by
// their metadata name, the declaration address.
type YAMLReader struct {
	Reader io.Reader

	// Path of the file the user is reading
	Path string

	// allows the consumer to specify its own data store
	DataStore store.Storer[*yaml.RNode]
}

func (r *YAMLReader) Read(ctx context.Context) (store.Storer[*yaml.RNode], []string, error) {
	datastore := r.DataStore
	if datastore == nil {
		datastore = memory.NewStore[*yaml.RNode]()
	}

	input := &bytes.Buffer{}
	if _, err := io.Copy(input, r.Reader); err != nil {
		return datastore, nil, err
	}

	// Replace the ending \r\n (line ending used in windows) with \n and then split it into multiple YAML documents
	// if it contains document separators (---)
	values, err := SplitDocuments(strings.ReplaceAll(input.String(), "\r\n", "\n"))
	if err != nil {
		return datastore, nil, err
	}
	order := []string{}
	for i := range values {
		// the Split used above will eat the tail '\n' from each resource. This may affect the
		// literal string value since '\n' is meaningful in it.
		if i != len(values)-1 {
			values[i] += "\n"
		}
		if strings.TrimSpace(values[i]) == "" {
			continue
		}
		rn, err := yaml.Parse(values[i])
		if err != nil {
			return datastore, nil, errors.Wrapf(err, "%s: document %d", r.Path, i)
		}
		name := rn.GetName()
		if name == "" {
			return datastore, nil, errors.Errorf("%s: document %d has no name", r.Path, i)
		}
		if _, err := datastore.Get(ctx, store.ToKey(name)); err == nil {
			return datastore, nil, errors.Errorf("%s: duplicate document %s", r.Path, name)
		}
		if err := datastore.Create(ctx, store.ToKey(name), rn); err != nil {
			return datastore, nil, errors.Wrapf(err, "%s: document %d", r.Path, i)
		}
		order = append(order, name)
	}
	return datastore, order, nil
}
