package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

const (
	digestPrefix = "sha256:"
	digestLength = 16

	sensitiveMask       = "***"
	sensitiveMaskBefore = "*** (before)"
	sensitiveMaskAfter  = "*** (after)"
)

// secretFields hold the secret values of a sensitive declaration.
var secretFields = [][]string{
	{"spec", "properties", "data"},
	{"spec", "properties", "stringData"},
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return digestPrefix + hex.EncodeToString(sum[:])[:digestLength]
}

// maskSecretData replaces the secret values of the manifest by their digest
// so changes can be detected without storing the values.
func maskSecretData(manifest map[string]any) error {
	for _, fields := range secretFields {
		data, ok, err := unstructured.NestedMap(manifest, fields...)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for k, v := range data {
			data[k] = digest(fmt.Sprint(v))
		}
		if err := unstructured.SetNestedMap(manifest, data, fields...); err != nil {
			return err
		}
	}
	return nil
}

// Masker hides the secret digests of two versions of a sensitive manifest.
// Values that did not change are shown as ***, changed values as
// *** (before) and *** (after).
type Masker struct {
	from map[string]any
	to   map[string]any
}

func NewMasker(from, to string) (*Masker, error) {
	r := &Masker{}
	var err error
	if r.from, err = parseManifest(from); err != nil {
		return nil, err
	}
	if r.to, err = parseManifest(to); err != nil {
		return nil, err
	}
	return r, nil
}

func parseManifest(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	m := map[string]any{}
	if err := yaml.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Masker) Run() error {
	for _, fields := range secretFields {
		from, _, err := unstructured.NestedMap(r.from, fields...)
		if err != nil {
			return err
		}
		to, _, err := unstructured.NestedMap(r.to, fields...)
		if err != nil {
			return err
		}
		for k := range from {
			if _, ok := to[k]; ok && from[k] == to[k] {
				from[k] = sensitiveMask
				continue
			}
			from[k] = sensitiveMaskBefore
		}
		for k := range to {
			if v, ok := from[k]; ok && v == sensitiveMask {
				to[k] = sensitiveMask
				continue
			}
			to[k] = sensitiveMaskAfter
		}
		if from != nil {
			if err := unstructured.SetNestedMap(r.from, from, fields...); err != nil {
				return err
			}
		}
		if to != nil {
			if err := unstructured.SetNestedMap(r.to, to, fields...); err != nil {
				return err
			}
		}
	}
	return nil
}

// From returns the masked previous manifest.
func (r *Masker) From() (string, error) {
	return render(r.from)
}

// To returns the masked new manifest.
func (r *Masker) To() (string, error) {
	return render(r.to)
}

func render(m map[string]any) (string, error) {
	if m == nil {
		return "", nil
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
