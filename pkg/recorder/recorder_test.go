package recorder_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kform-dev/kstack/pkg/recorder"
	"github.com/kform-dev/kstack/pkg/recorder/diag"
	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("sentinel")

func TestRecords(t *testing.T) {
	cases := map[string]struct {
		diags      []diag.Diagnostic
		hasError   bool
		errString  string
		warnings   []string
		isSentinel bool
	}{
		"Empty": {
			warnings: []string{},
		},
		"NilError": {
			diags:    []diag.Diagnostic{diag.DiagFromErr(nil)},
			warnings: []string{},
		},
		"WarningOnly": {
			diags: []diag.Diagnostic{
				diag.DiagWarnfWithContext("rbac_cluster_role.admin", "high privilege"),
			},
			warnings: []string{"rbac_cluster_role.admin: high privilege"},
		},
		"Errors": {
			diags: []diag.Diagnostic{
				diag.DiagErrorf("first"),
				diag.DiagFromErrWithContext("spec.cluster", errSentinel),
			},
			hasError:   true,
			errString:  "first\nspec.cluster: sentinel",
			warnings:   []string{},
			isSentinel: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := recorder.New[diag.Diagnostic]()
			for _, d := range tc.diags {
				rec.Record(d)
			}
			records := rec.Get()
			assert.Equal(t, tc.hasError, records.HasError())
			assert.Equal(t, tc.warnings, records.Warnings())
			if !tc.hasError {
				assert.NoError(t, records.Error())
				return
			}
			assert.EqualError(t, records.Error(), tc.errString)
			assert.Equal(t, tc.isSentinel, errors.Is(records.Error(), errSentinel))

			var buf bytes.Buffer
			rec.Print(&buf)
			assert.Equal(t, "error: first\nerror: spec.cluster: sentinel\n", buf.String())
		})
	}
}
