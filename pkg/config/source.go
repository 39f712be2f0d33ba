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

package config

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/henderiw/logger/log"
	"github.com/kform-dev/kstack/pkg/fsys"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"sigs.k8s.io/yaml"
)

const DefaultEnvPrefix = "KSTACK_CONFIG_"

// Source provides configuration values by key. Values may be secret and
// must never be logged.
type Source interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
}

// MapSource is an in memory source.
type MapSource map[string]string

func (r MapSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	v, ok := r[key]
	return v, ok, nil
}

// PlaceholderSource has a value for every key, the key in angle brackets. It
// declares a stack when only its structure is used.
type PlaceholderSource struct{}

func (PlaceholderSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	return "<" + key + ">", true, nil
}

// EnvSource looks up a key as <prefix><KEY> in the environment, the key
// upper cased with dots and dashes replaced by underscores.
type EnvSource struct {
	Prefix    string
	LookupEnv func(string) (string, bool)
}

func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{Prefix: prefix, LookupEnv: os.LookupEnv}
}

func (r *EnvSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	v, ok := r.LookupEnv(EnvName(r.Prefix, key))
	return v, ok, nil
}

func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// NewFileSource reads a flat yaml map of values from the file system.
func NewFileSource(fsys fsys.FS, path string) (MapSource, error) {
	b, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read values file %s", path)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, errors.Wrapf(err, "cannot parse values file %s", path)
	}
	return MapSource(values), nil
}

// Chain tries each source in order; the first source holding the key wins.
type Chain []Source

func (r Chain) Lookup(ctx context.Context, key string) (string, bool, error) {
	for _, src := range r {
		if src == nil {
			continue
		}
		v, ok, err := src.Lookup(ctx, key)
		if err != nil {
			return "", false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Require looks up all keys and returns their values. When one or more keys
// are missing a *MissingError listing all of them is returned.
func Require(ctx context.Context, src Source, keys ...string) (map[string]string, error) {
	log := log.FromContext(ctx)
	values := map[string]string{}
	missing := []string{}
	for _, key := range lo.Uniq(keys) {
		v, ok, err := src.Lookup(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "lookup %s", key)
		}
		if !ok || v == "" {
			missing = append(missing, key)
			continue
		}
		log.Debug("configuration resolved", "key", key)
		values[key] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingError{Keys: missing}
	}
	return values, nil
}
