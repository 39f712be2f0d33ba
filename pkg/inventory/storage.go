package inventory

import (
	"context"

	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/kform-dev/kstack/pkg/fsys"
	"github.com/pkg/errors"
)

// Storage keeps the record of the last render. Load returns nil when nothing
// was stored yet.
type Storage interface {
	Load(ctx context.Context) (*invv1alpha1.Record, error)
	// Check reports whether the record of stack may replace the loaded one.
	Check(stack string) error
	Store(ctx context.Context, record *invv1alpha1.Record) error
}

// NewFileStorage stores the record as a yaml file.
func NewFileStorage(fsys fsys.FS, path string) Storage {
	return &fileStorage{fsys: fsys, path: path}
}

type fileStorage struct {
	fsys fsys.FS
	path string
}

func (r *fileStorage) Load(ctx context.Context) (*invv1alpha1.Record, error) {
	if !r.fsys.Exists(r.path) {
		return nil, nil
	}
	b, err := r.fsys.ReadFile(r.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read record %s", r.path)
	}
	record, err := invv1alpha1.UnmarshalRecord(b)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshal record %s", r.path)
	}
	return record, nil
}

// Check always succeeds, the record file belongs to whoever passes it.
func (r *fileStorage) Check(stack string) error { return nil }

func (r *fileStorage) Store(ctx context.Context, record *invv1alpha1.Record) error {
	b, err := invv1alpha1.MarshalRecord(record)
	if err != nil {
		return err
	}
	return errors.Wrapf(r.fsys.WriteFile(r.path, b, 0644), "write record %s", r.path)
}
