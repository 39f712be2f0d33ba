package v1alpha1

import (
	"gopkg.in/yaml.v2"
)

// RecordDataKey is the config map key holding the marshaled record.
const RecordDataKey = "record"

func MarshalRecord(r *Record) ([]byte, error) {
	return yaml.Marshal(r)
}

func UnmarshalRecord(b []byte) (*Record, error) {
	r := &Record{}
	if err := yaml.Unmarshal(b, r); err != nil {
		return nil, err
	}
	if r.Declarations == nil {
		r.Declarations = map[string]DeclarationRecord{}
	}
	return r, nil
}
