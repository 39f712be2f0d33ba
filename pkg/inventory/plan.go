package inventory

import (
	"fmt"
	"io"

	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"k8s.io/apimachinery/pkg/util/sets"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoop   Action = "no-op"
)

type Change struct {
	Address string
	Action  Action
	// Diff is the unified diff of the manifests, secret values masked
	Diff string
}

// Plan lists the changes between the stored and the new declared state.
type Plan struct {
	Changes       []Change
	ExportChanges []string
}

// NewPlan compares two records. A nil previous record plans the creation of
// every declaration.
func NewPlan(from, to *invv1alpha1.Record) (*Plan, error) {
	if from == nil {
		from = &invv1alpha1.Record{}
	}
	if to == nil {
		to = &invv1alpha1.Record{}
	}
	addresses := sets.New(from.Addresses()...).Insert(to.Addresses()...)

	p := &Plan{Changes: []Change{}, ExportChanges: []string{}}
	for _, address := range sets.List(addresses) {
		before, hasBefore := from.Declarations[address]
		after, hasAfter := to.Declarations[address]
		change := Change{Address: address}
		switch {
		case !hasBefore:
			change.Action = ActionCreate
		case !hasAfter:
			change.Action = ActionDelete
		case before.Hash == after.Hash && before.Manifest == after.Manifest:
			change.Action = ActionNoop
		default:
			change.Action = ActionUpdate
		}
		if change.Action != ActionNoop {
			diff, err := manifestDiff(address, before, after)
			if err != nil {
				return nil, errors.Wrapf(err, "diff %s", address)
			}
			change.Diff = diff
		}
		p.Changes = append(p.Changes, change)
	}

	exports := sets.KeySet(from.Exports).Union(sets.KeySet(to.Exports))
	for _, name := range sets.List(exports) {
		if from.Exports[name] != to.Exports[name] {
			p.ExportChanges = append(p.ExportChanges, name)
		}
	}
	return p, nil
}

func manifestDiff(address string, before, after invv1alpha1.DeclarationRecord) (string, error) {
	a, b := before.Manifest, after.Manifest
	if before.Sensitive || after.Sensitive {
		masker, err := NewMasker(a, b)
		if err != nil {
			return "", err
		}
		if err := masker.Run(); err != nil {
			return "", err
		}
		if a, err = masker.From(); err != nil {
			return "", err
		}
		if b, err = masker.To(); err != nil {
			return "", err
		}
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "a/" + address,
		ToFile:   "b/" + address,
		Context:  3,
	})
}

func (r *Plan) HasChanges() bool {
	for _, c := range r.Changes {
		if c.Action != ActionNoop {
			return true
		}
	}
	return len(r.ExportChanges) > 0
}

// Count returns the number of changes per action.
func (r *Plan) Count() map[Action]int {
	count := map[Action]int{}
	for _, c := range r.Changes {
		count[c.Action]++
	}
	return count
}

func (r *Plan) Print(w io.Writer) {
	for _, c := range r.Changes {
		if c.Action == ActionNoop {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", c.Action, c.Address)
		if c.Diff != "" {
			fmt.Fprint(w, c.Diff)
		}
	}
	for _, name := range r.ExportChanges {
		fmt.Fprintf(w, "export %s changed\n", name)
	}
	count := r.Count()
	fmt.Fprintf(w, "plan: %d to create, %d to update, %d to delete, %d unchanged\n",
		count[ActionCreate], count[ActionUpdate], count[ActionDelete], count[ActionNoop])
}
