package inventory

import (
	"context"
	"io"

	"github.com/henderiw/store"
	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/kform-dev/kstack/pkg/pkgio"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// RecordFromStream returns the declared state of a rendered declaration
// stream, secret values masked the way NewRecord does. A stream holds no
// exports.
func RecordFromStream(ctx context.Context, reader io.Reader, path string) (*invv1alpha1.Record, error) {
	datastore, order, err := (&pkgio.YAMLReader{Reader: reader, Path: path}).Read(ctx)
	if err != nil {
		return nil, err
	}
	record := &invv1alpha1.Record{
		Declarations: make(map[string]invv1alpha1.DeclarationRecord, len(order)),
		Exports:      map[string]string{},
	}
	for _, address := range order {
		rn, err := datastore.Get(ctx, store.ToKey(address))
		if err != nil {
			return nil, errors.Wrapf(err, "%s: %s", path, address)
		}
		if rn.GetKind() != graph.DeclarationKind {
			return nil, errors.Errorf("%s: %s is a %s, expecting %s", path, address, rn.GetKind(), graph.DeclarationKind)
		}
		manifest, err := rn.Map()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: %s", path, address)
		}
		annotations := rn.GetAnnotations()
		dr := invv1alpha1.DeclarationRecord{
			Type:      annotations[graph.AnnotationKeyType],
			Provider:  annotations[graph.AnnotationKeyProvider],
			Hash:      annotations[graph.AnnotationKeyHash],
			Sensitive: annotations[graph.AnnotationKeySensitive] == "true",
		}
		if dr.Sensitive {
			if err := maskSecretData(manifest); err != nil {
				return nil, errors.Wrapf(err, "mask %s", address)
			}
		}
		deps, _, err := unstructured.NestedStringSlice(manifest, "spec", "dependsOn")
		if err != nil {
			return nil, errors.Wrapf(err, "%s: %s", path, address)
		}
		if len(deps) > 0 {
			dr.Dependencies = deps
		}
		b, err := yaml.Marshal(manifest)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s", address)
		}
		dr.Manifest = string(b)
		record.Declarations[address] = dr
	}
	return record, nil
}
