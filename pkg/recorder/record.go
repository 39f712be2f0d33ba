package recorder

import "fmt"

// Record is one diagnostic of a build. The context is the address or the
// configuration field the record applies to.
type Record interface {
	GetSeverity() Severity
	GetDetail() string
	GetContext() string
}

type Severity int

const (
	Severity_NONE Severity = iota
	Severity_WARNING
	Severity_ERROR
)

var severityNames = map[Severity]string{
	Severity_NONE:    "none",
	Severity_WARNING: "warning",
	Severity_ERROR:   "error",
}

func (d Severity) String() string {
	if s, ok := severityNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Severity(%d)", int(d))
}
