package recorder

import (
	"errors"
	"fmt"
)

type Records interface {
	HasError() bool
	Error() error
	Warnings() []string
}

type records[T Record] []T

func (r records[T]) HasError() bool {
	for _, d := range r {
		if d.GetSeverity() == Severity_ERROR {
			return true
		}
	}
	return false
}

// Error joins all error records, nil when there are none.
func (r records[T]) Error() error {
	var err error
	for _, d := range r {
		if d.GetSeverity() == Severity_ERROR {
			err = errors.Join(err, recordError(d))
		}
	}
	return err
}

func (r records[T]) Warnings() []string {
	warnings := []string{}
	for _, d := range r {
		if d.GetSeverity() == Severity_WARNING {
			warnings = append(warnings, recordError(d).Error())
		}
	}
	return warnings
}

// recordError keeps the wrapped error of a record, if any, so callers can
// still match typed errors on the joined result.
func recordError(d Record) error {
	if w, ok := any(d).(interface{ Unwrap() error }); ok && w.Unwrap() != nil {
		if d.GetContext() == "" {
			return w.Unwrap()
		}
		return fmt.Errorf("%s: %w", d.GetContext(), w.Unwrap())
	}
	if d.GetContext() == "" {
		return errors.New(d.GetDetail())
	}
	return fmt.Errorf("%s: %s", d.GetContext(), d.GetDetail())
}
