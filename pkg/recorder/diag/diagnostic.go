package diag

import (
	"github.com/kform-dev/kstack/pkg/recorder"
)

var _ recorder.Record = &Diagnostic{}

type Diagnostic struct {
	Severity recorder.Severity
	Detail   string
	// Context is the address or field the diagnostic applies to
	Context string
	Err     error
}

func (r Diagnostic) GetSeverity() recorder.Severity {
	return r.Severity
}

func (r Diagnostic) GetDetail() string {
	return r.Detail
}

func (r Diagnostic) GetContext() string {
	return r.Context
}

func (r Diagnostic) Unwrap() error {
	return r.Err
}
