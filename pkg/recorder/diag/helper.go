package diag

import (
	"fmt"

	"github.com/kform-dev/kstack/pkg/recorder"
)

// DiagFromErr returns an empty diagnostic for a nil error, the recorder
// drops those.
func DiagFromErr(err error) Diagnostic {
	return DiagFromErrWithContext("", err)
}

func DiagFromErrWithContext(ctx string, err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	return Diagnostic{
		Severity: recorder.Severity_ERROR,
		Detail:   err.Error(),
		Context:  ctx,
		Err:      err,
	}
}

func DiagErrorf(format string, a ...any) Diagnostic {
	return DiagErrorfWithContext("", format, a...)
}

func DiagErrorfWithContext(ctx string, format string, a ...any) Diagnostic {
	return Diagnostic{
		Severity: recorder.Severity_ERROR,
		Detail:   fmt.Sprintf(format, a...),
		Context:  ctx,
	}
}

func DiagWarnfWithContext(ctx string, format string, a ...any) Diagnostic {
	return Diagnostic{
		Severity: recorder.Severity_WARNING,
		Detail:   fmt.Sprintf(format, a...),
		Context:  ctx,
	}
}
