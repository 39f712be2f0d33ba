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

package rules

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/henderiw/logger/log"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/recorder"
	"github.com/kform-dev/kstack/pkg/recorder/diag"
	"k8s.io/apimachinery/pkg/runtime"
)

const specVar = "spec"

// Builtin are evaluated for every stack before the user supplied rules.
var Builtin = []stackv1alpha1.ValidationRule{
	{
		Rule:    "spec.cluster.minSize >= 0 && spec.cluster.maxSize >= 1",
		Message: "cluster sizing requires minSize >= 0 and maxSize >= 1",
	},
	{
		Rule:    "spec.cluster.minSize <= spec.cluster.desiredCapacity && spec.cluster.desiredCapacity <= spec.cluster.maxSize",
		Message: "cluster sizing must satisfy minSize <= desiredCapacity <= maxSize",
	},
	{
		Rule:    "spec.network.zoneCount >= 1 && spec.network.zoneCount <= 6",
		Message: "network zoneCount must be between 1 and 6",
	},
	{
		Rule:    "!has(spec.secret.entries) || spec.secret.entries.all(e, e.key.matches('^[A-Za-z_][A-Za-z0-9_]*$'))",
		Message: "secret keys must be valid environment variable names",
	},
	{
		Rule:    "!has(spec.workloads) || spec.workloads.all(w, w.replicas >= 0)",
		Message: "workload replicas can not be negative",
	},
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(specVar, cel.DynType),
		cel.HomogeneousAggregateLiterals(),
		cel.EagerlyValidateDeclarations(true),
		cel.DefaultUTCTimeZone(true),
	)
}

// Validate evaluates the builtin rules followed by the rules of the stack.
// All failing rules are reported together as invalid parameter errors.
func Validate(ctx context.Context, stack *stackv1alpha1.Stack) error {
	rules := append([]stackv1alpha1.ValidationRule{}, Builtin...)
	rules = append(rules, stack.Spec.Validations...)
	return Evaluate(ctx, &stack.Spec, rules)
}

func Evaluate(ctx context.Context, spec *stackv1alpha1.StackSpec, rules []stackv1alpha1.ValidationRule) error {
	log := log.FromContext(ctx)

	obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(spec)
	if err != nil {
		return err
	}
	// nil slices and maps convert to null, drop them so has() guards hold
	pruneNulls(obj)
	env, err := newEnv()
	if err != nil {
		return err
	}

	rec := recorder.New[diag.Diagnostic]()
	for _, rule := range rules {
		ok, err := eval(env, rule.Rule, obj)
		if err != nil {
			log.Debug("rule evaluation failed", "rule", rule.Rule, "error", err)
			rec.Record(diag.DiagFromErr(config.InvalidParameter(specVar, "rule %q: %s", rule.Rule, err.Error())))
			continue
		}
		if !ok {
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("failed rule %q", rule.Rule)
			}
			rec.Record(diag.DiagFromErr(config.InvalidParameter(specVar, "%s", msg)))
		}
	}
	return rec.Get().Error()
}

func pruneNulls(obj map[string]any) {
	for k, v := range obj {
		switch v := v.(type) {
		case nil:
			delete(obj, k)
		case map[string]any:
			pruneNulls(v)
		case []any:
			for _, e := range v {
				if m, ok := e.(map[string]any); ok {
					pruneNulls(m)
				}
			}
		}
	}
}

func eval(env *cel.Env, expr string, obj map[string]any) (bool, error) {
	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return false, iss.Err()
	}
	prog, err := env.Program(ast, cel.EvalOptions(cel.OptOptimize))
	if err != nil {
		return false, err
	}
	val, _, err := prog.Eval(map[string]any{specVar: obj})
	if err != nil {
		return false, err
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned non-bool value: %v", val.Value())
	}
	return b, nil
}
