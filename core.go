// Copyright 2018-2026, the glom authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package glom

import (
	"fmt"
	"reflect"

	"github.com/mahmoud/glom/internal/logging"
)

// Glomiter is the extension protocol: any value with a Glomit method is
// accepted as a spec anywhere, and evaluation is fully delegated to it.
// Every built-in specifier type (Coalesce, Match, Assign, Iter, ...) is
// implemented through this same interface; there is no second plugin
// mechanism.
type Glomiter interface {
	Glomit(target any, scope *Scope) (any, error)
}

// sentinel is a unique, identity-compared marker value.
type sentinel struct{ name string }

func (s *sentinel) String() string { return s.name }

var (
	// Skip , returned from a sub-spec inside Each (or used as a record
	// value), omits the current element or entry from the output.
	Skip = &sentinel{"Skip"}
	// Stop, returned from a sub-spec inside Each, truncates iteration
	// immediately, excluding the current element.
	Stop = &sentinel{"Stop"}
)

// Chain applies its sub-specs left to right, each consuming the previous
// one's output. Every step runs in its own child scope, so nothing leaks
// between sibling steps except through the shared globals.
type Chain []any

// EachSpec iterates the target and applies a sub-spec per element. See
// Each.
type EachSpec struct {
	spec any
}

// Each builds the sequence template: iterate the target through the
// registry and evaluate spec against every element. Sub-spec results of
// Skip are omitted; Stop truncates the iteration.
func Each(spec any) *EachSpec {
	return &EachSpec{spec: spec}
}

func (e *EachSpec) String() string { return fmt.Sprintf("Each(%s)", bbrepr(e.spec)) }

// evaluate is the recursive dispatcher. Extension objects get full
// delegation; everything else goes through the scope's active mode.
func evaluate(target, spec any, scope *Scope) (any, error) {
	if scope.depth > scope.maxDepth {
		return nil, &RecursionLimitError{Limit: scope.maxDepth}
	}
	logging.V(9).Infof("glom: depth %d: %T spec against %T target", scope.depth, spec, target)
	if g, ok := spec.(Glomiter); ok {
		return delegate(g, target, scope)
	}
	return scope.mode(target, spec, scope)
}

// delegate invokes an extension object, converting a panicking extension
// into a traced TransformError rather than unwinding the caller.
func delegate(g Glomiter, target any, scope *Scope) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &TransformError{Panic: p, Func: g}
		}
	}()
	return g.Glomit(target, scope)
}

// autoMode is the default interpretation: path expressions resolve,
// chains fold, sequence and record templates recurse, transformers run,
// and plain scalars stand for themselves.
func autoMode(target, spec any, scope *Scope) (any, error) {
	switch sp := spec.(type) {
	case *Expr:
		return sp.resolve(target, scope)
	case Path:
		return sp.Expr().resolve(target, scope)
	case string:
		p, err := ParsePath(sp)
		if err != nil {
			return nil, &BadSpecError{Spec: spec, Msg: fmt.Sprintf("invalid path %q: %v", sp, err)}
		}
		return p.Expr().resolve(target, scope)
	case Chain:
		return evalChainSpec(target, sp, scope)
	case *EachSpec:
		return evalEachSpec(target, sp, scope)
	case nil:
		return nil, nil
	}

	rv := reflect.ValueOf(spec)
	switch rv.Kind() {
	case reflect.Map:
		return evalRecordSpec(target, rv, scope)
	case reflect.Func:
		return invokeCallable(spec, target)
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		// plain literals evaluate to themselves
		return spec, nil
	case reflect.Slice, reflect.Array:
		return nil, &BadSpecError{Spec: spec,
			Msg: fmt.Sprintf("a bare %T is ambiguous as a spec; use glom.Each for iteration or glom.Chain for a pipeline", spec)}
	}
	return nil, &BadSpecError{Spec: spec}
}

// evalChainSpec left-folds the chain: result starts as the target and each
// sub-spec consumes the previous result.
func evalChainSpec(target any, chain Chain, scope *Scope) (any, error) {
	result := target
	for i, sub := range chain {
		var err error
		result, err = scope.EvalAt(i, result, sub)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func evalEachSpec(target any, each *EachSpec, scope *Scope) (any, error) {
	iterate, err := scope.registry().iterateFunc(target, scope)
	if err != nil {
		return nil, err
	}
	seq, err := iterate(target)
	if err != nil {
		return nil, err
	}
	out := []any{}
	i := -1
	for el := range seq {
		i++
		v, err := scope.EvalAt(i, el, each.spec)
		if err != nil {
			return nil, err
		}
		if v == Skip {
			continue
		}
		if v == Stop {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// evalRecordSpec evaluates a map spec: every key- and value-spec runs
// against the same target, never against each other's results. Literal
// keys pass through; spec-like keys are evaluated. When two evaluated
// keys collide, the last write wins.
func evalRecordSpec(target any, specMap reflect.Value, scope *Scope) (any, error) {
	out := map[any]any{}
	stringKeys := true
	it := specMap.MapRange()
	for it.Next() {
		keySpec := it.Key().Interface()
		valSpec := it.Value().Interface()

		key := keySpec
		if isSpeclike(keySpec) {
			k, err := scope.Eval(target, keySpec)
			if err != nil {
				return nil, err
			}
			key = k
		}
		val, err := scope.EvalAt(key, target, valSpec)
		if err != nil {
			return nil, err
		}
		if val == Skip {
			continue
		}
		if _, ok := key.(string); !ok {
			stringKeys = false
		}
		// a nil key is a valid map[any]any entry; an uncomparable one is not
		if key != nil && !reflect.TypeOf(key).Comparable() {
			return nil, &BadSpecError{Spec: keySpec,
				Msg: fmt.Sprintf("record key evaluated to uncomparable %T", key)}
		}
		out[key] = val
	}
	if stringKeys {
		sm := make(map[string]any, len(out))
		for k, v := range out {
			sm[k.(string)] = v
		}
		return sm, nil
	}
	return out, nil
}

// isSpeclike reports whether v is evaluated when found in a spec position
// that otherwise holds literals (call arguments, record keys). Strings are
// deliberately literal in those positions.
func isSpeclike(v any) bool {
	switch v.(type) {
	case *Expr, Path, Chain, *EachSpec, Glomiter:
		return true
	}
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

// invokeCallable applies fn to args through reflection, with fast paths
// for the common transformer shapes. Panics become TransformErrors;
// nothing is swallowed.
func invokeCallable(fn any, args ...any) (res any, err error) {
	switch f := fn.(type) {
	case func(any) (any, error):
		if len(args) == 1 {
			defer recoverTransform(fn, &err)
			return f(args[0])
		}
	case func(any) any:
		if len(args) == 1 {
			defer recoverTransform(fn, &err)
			return f(args[0]), nil
		}
	}

	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, &BadSpecError{Spec: fn, Msg: fmt.Sprintf("cannot call non-function %T", fn)}
	}
	t := rv.Type()
	if t.IsVariadic() {
		if len(args) < t.NumIn()-1 {
			return nil, &BadSpecError{Spec: fn,
				Msg: fmt.Sprintf("%T needs at least %d args, got %d", fn, t.NumIn()-1, len(args))}
		}
	} else if len(args) != t.NumIn() {
		return nil, &BadSpecError{Spec: fn,
			Msg: fmt.Sprintf("%T needs %d args, got %d", fn, t.NumIn(), len(args))}
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var want reflect.Type
		if t.IsVariadic() && i >= t.NumIn()-1 {
			want = t.In(t.NumIn() - 1).Elem()
		} else {
			want = t.In(i)
		}
		av, cerr := coerceValue(a, want)
		if cerr != nil {
			return nil, &BadSpecError{Spec: fn,
				Msg: fmt.Sprintf("argument %d: %v", i, cerr)}
		}
		in[i] = av
	}

	defer recoverTransform(fn, &err)
	outs := rv.Call(in)
	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outValue(outs[0]), nil
	default:
		last := outs[len(outs)-1]
		if last.Type() == errType {
			if !last.IsNil() {
				return nil, last.Interface().(error)
			}
			if len(outs) == 2 {
				return outValue(outs[0]), nil
			}
		}
		vals := make([]any, 0, len(outs))
		for _, o := range outs {
			vals = append(vals, outValue(o))
		}
		return vals, nil
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func outValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func recoverTransform(fn any, err *error) {
	if p := recover(); p != nil {
		*err = &TransformError{Panic: p, Func: fn}
	}
}
