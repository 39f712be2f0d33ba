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
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/kform-dev/kstack/pkg/fsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequire(t *testing.T) {
	env := map[string]string{
		"KSTACK_CONFIG_KAFKA_API_KEY": "from-env",
	}
	src := Chain{
		MapSource{"responsive_mongo_username": "mongo"},
		&EnvSource{Prefix: DefaultEnvPrefix, LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}},
	}

	cases := map[string]struct {
		keys        []string
		want        map[string]string
		missingKeys []string
	}{
		"AllPresent": {
			keys: []string{"responsive_mongo_username", "kafka_api_key"},
			want: map[string]string{
				"responsive_mongo_username": "mongo",
				"kafka_api_key":             "from-env",
			},
		},
		"Duplicates": {
			keys: []string{"kafka_api_key", "kafka_api_key"},
			want: map[string]string{"kafka_api_key": "from-env"},
		},
		"MissingReportedTogether": {
			keys:        []string{"kafka_api_secret", "responsive_mongo_username", "responsive_mongo_password"},
			missingKeys: []string{"kafka_api_secret", "responsive_mongo_password"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Require(context.Background(), src, tc.keys...)
			if len(tc.missingKeys) > 0 {
				var missing *MissingError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, tc.missingKeys, missing.Keys)
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "KSTACK_CONFIG_RESPONSIVE_MONGO_HOSTNAME", EnvName(DefaultEnvPrefix, "responsive_mongo_hostname"))
	assert.Equal(t, "X_A_B_C", EnvName("X_", "a.b-c"))
}

func TestFileSource(t *testing.T) {
	fs := fsys.NewMemFS("", fstest.MapFS{
		"values.yaml": {Data: []byte("kafka_api_key: abc\nkafka_api_secret: \"s3cr3t\"\n")},
		"bad.yaml":    {Data: []byte("- a\n- b\n")},
	})
	src, err := NewFileSource(fs, "values.yaml")
	assert.NoError(t, err)
	v, ok, err := src.Lookup(context.Background(), "kafka_api_secret")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s3cr3t", v)

	_, err = NewFileSource(fs, "bad.yaml")
	assert.Error(t, err)
	_, err = NewFileSource(fs, "missing.yaml")
	assert.Error(t, err)
}

func TestPlaceholderSource(t *testing.T) {
	values, err := Require(context.Background(), PlaceholderSource{}, "kafka_api_key", "kafka_api_secret")
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"kafka_api_key":    "<kafka_api_key>",
		"kafka_api_secret": "<kafka_api_secret>",
	}, values)
}
