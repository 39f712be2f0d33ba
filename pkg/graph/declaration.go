/*
Copyright 2024 Nokia.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package graph

import (
	"encoding/json"
	"regexp"

	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/render/refrender"
)

const (
	ProviderAWS        = "aws"
	ProviderKubernetes = "kubernetes"

	DeclarationKind = "Declaration"

	AnnotationKeyType          = "stack.kform.dev/type"
	AnnotationKeyProvider      = "stack.kform.dev/provider"
	AnnotationKeyHash          = "stack.kform.dev/hash"
	AnnotationKeyHighPrivilege = "stack.kform.dev/high-privilege"
	AnnotationKeySensitive     = "stack.kform.dev/sensitive"
)

var (
	typeExpr = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	// names follow the object names of the declarations, dns subdomains
	// and rbac names with colons included
	nameExpr = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]*$`)
)

// Declaration is the immutable descriptor of one resource. Outputs are
// resolved by the provisioning engine; other declarations consume them
// through the placeholders returned by Ref.
type Declaration struct {
	Type     string
	Name     string
	Provider string
	// Spec must marshal to json; references minted by Ref in its string
	// fields become dependencies.
	Spec    any
	Outputs []string
	// DependsOn lists addresses that must be applied before this
	// declaration without an output being consumed.
	DependsOn []string
	// Sensitive declarations carry secret material, exports can not
	// reference them.
	Sensitive bool
	// HighPrivilege declarations are flagged for review.
	HighPrivilege bool

	// set by the builder
	dependencies []string
	references   []refrender.Reference
	canonical    []byte
	hash         string
}

func New(typ, name, provider string, spec any, outputs ...string) *Declaration {
	return &Declaration{
		Type:     typ,
		Name:     name,
		Provider: provider,
		Spec:     spec,
		Outputs:  outputs,
	}
}

func Address(typ, name string) string {
	return typ + "." + name
}

func (r *Declaration) Address() string {
	return Address(r.Type, r.Name)
}

// Ref returns a reference to one of the outputs of the declaration, to be
// embedded in the spec of a declaration added later. The builder publishes
// it as a ${address.output} placeholder.
func (r *Declaration) Ref(output string) string {
	return refrender.Reference{Address: r.Address(), Output: output}.Token()
}

func (r *Declaration) HasOutput(output string) bool {
	for _, o := range r.Outputs {
		if o == output {
			return true
		}
	}
	return false
}

// Dependencies returns the sorted addresses this declaration depends on.
func (r *Declaration) Dependencies() []string {
	return append([]string{}, r.dependencies...)
}

func (r *Declaration) References() []refrender.Reference {
	return append([]refrender.Reference{}, r.references...)
}

// Hash is the sha256 of the canonical json of the published spec.
func (r *Declaration) Hash() string {
	return r.hash
}

// Object returns a generic copy of the spec.
func (r *Declaration) Object() (map[string]any, error) {
	obj := map[string]any{}
	if err := json.Unmarshal(r.canonical, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Manifest returns the declaration as a KRM resource.
func (r *Declaration) Manifest() (map[string]any, error) {
	obj, err := r.Object()
	if err != nil {
		return nil, err
	}
	annotations := map[string]any{
		AnnotationKeyType:     r.Type,
		AnnotationKeyProvider: r.Provider,
		AnnotationKeyHash:     r.hash,
	}
	if r.HighPrivilege {
		annotations[AnnotationKeyHighPrivilege] = "true"
	}
	if r.Sensitive {
		annotations[AnnotationKeySensitive] = "true"
	}
	spec := map[string]any{
		"type":       r.Type,
		"name":       r.Name,
		"provider":   r.Provider,
		"properties": obj,
	}
	if len(r.Outputs) > 0 {
		spec["outputs"] = toAnySlice(r.Outputs)
	}
	if len(r.dependencies) > 0 {
		spec["dependsOn"] = toAnySlice(r.dependencies)
	}
	return map[string]any{
		"apiVersion": stackv1alpha1.SchemeGroupVersion.String(),
		"kind":       DeclarationKind,
		"metadata": map[string]any{
			"name":        r.Address(),
			"annotations": annotations,
		},
		"spec": spec,
	}, nil
}

func toAnySlice(s []string) []any {
	l := make([]any, 0, len(s))
	for _, v := range s {
		l = append(l, v)
	}
	return l
}
