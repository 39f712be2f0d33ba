package policy

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/cli-utils/pkg/inventory"
)

// policyNames are the flag values of the cli-utils inventory policies.
var policyNames = map[inventory.Policy]string{
	inventory.PolicyMustMatch:          "MustMatch",
	inventory.PolicyAdoptIfNoInventory: "AdoptIfNoInventory",
	inventory.PolicyAdoptAll:           "AdoptAll",
}

// Name returns the flag value of p.
func Name(p inventory.Policy) string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Parse is case insensitive.
func Parse(s string) (inventory.Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return inventory.PolicyMustMatch, errors.Errorf("unknown ownership policy %q", s)
}

// OwnershipError is returned when a stored record is owned by another stack.
type OwnershipError struct {
	Owner string
	Stack string
}

func (r *OwnershipError) Error() string {
	if r.Owner == "" {
		return fmt.Sprintf("stored record has no owner, stack %s can not adopt it", r.Stack)
	}
	return fmt.Sprintf("stored record is owned by stack %s, not %s", r.Owner, r.Stack)
}

// stackInfo is the inventory of a stack, its id is the stack name.
type stackInfo struct {
	namespace string
	stack     string
}

var _ inventory.Info = stackInfo{}

func (r stackInfo) Namespace() string            { return r.namespace }
func (r stackInfo) Name() string                 { return r.stack }
func (r stackInfo) ID() string                   { return r.stack }
func (r stackInfo) Strategy() inventory.Strategy { return inventory.LabelStrategy }

// Check returns an *OwnershipError when stack may not overwrite a stored
// record owned by owner under policy p; an empty owner means the record has
// none.
func Check(p inventory.Policy, owner, stack string) error {
	obj := &unstructured.Unstructured{}
	if owner != "" {
		obj.SetAnnotations(map[string]string{inventory.OwningInventoryKey: owner})
	}
	ok, _ := inventory.CanApply(stackInfo{stack: stack}, obj, p)
	if !ok {
		return &OwnershipError{Owner: owner, Stack: stack}
	}
	return nil
}
