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
)

// FillSpec switches its subtree to fill interpretation. See Fill.
type FillSpec struct {
	spec any
}

// Fill installs fill mode for its sub-spec: container literals become
// templates filled element by element (maps evaluate both keys and
// values, slices evaluate every element), expressions and functions still
// evaluate, and everything else (strings included) stands for itself.
// Fill mode stays active for the whole subtree until Auto restores the
// default dispatch.
func Fill(spec any) *FillSpec { return &FillSpec{spec: spec} }

// Glomit implements Glomiter.
func (f *FillSpec) Glomit(target any, scope *Scope) (any, error) {
	scope.SetMode(fillMode)
	return scope.Eval(target, f.spec)
}

func (f *FillSpec) String() string { return fmt.Sprintf("Fill(%s)", bbrepr(f.spec)) }

// AutoSpec restores the default interpretation. See Auto.
type AutoSpec struct {
	spec any
}

// Auto restores the default dispatch for its sub-spec, undoing an
// enclosing Fill or Match for that subtree.
func Auto(spec any) *AutoSpec { return &AutoSpec{spec: spec} }

// Glomit implements Glomiter.
func (a *AutoSpec) Glomit(target any, scope *Scope) (any, error) {
	scope.SetMode(autoMode)
	return scope.Eval(target, a.spec)
}

func (a *AutoSpec) String() string { return fmt.Sprintf("Auto(%s)", bbrepr(a.spec)) }

// fillMode treats container-literal specs as templates to populate rather
// than instructions to reshape.
func fillMode(target, spec any, scope *Scope) (any, error) {
	switch sp := spec.(type) {
	case *Expr:
		return sp.resolve(target, scope)
	case Path:
		return sp.Expr().resolve(target, scope)
	case Chain:
		return evalChainSpec(target, sp, scope)
	case *EachSpec:
		return evalEachSpec(target, sp, scope)
	}

	rv := reflect.ValueOf(spec)
	switch rv.Kind() {
	case reflect.Map:
		out := map[any]any{}
		stringKeys := true
		it := rv.MapRange()
		for it.Next() {
			k, err := scope.Eval(target, it.Key().Interface())
			if err != nil {
				return nil, err
			}
			v, err := scope.EvalAt(k, target, it.Value().Interface())
			if err != nil {
				return nil, err
			}
			if _, ok := k.(string); !ok {
				stringKeys = false
			}
			// a nil key is a valid map[any]any entry; an uncomparable one is not
			if k != nil && !reflect.TypeOf(k).Comparable() {
				return nil, &BadSpecError{Spec: it.Key().Interface(),
					Msg: fmt.Sprintf("template key evaluated to uncomparable %T", k)}
			}
			out[k] = v
		}
		if stringKeys {
			sm := make(map[string]any, len(out))
			for k, v := range out {
				sm[k.(string)] = v
			}
			return sm, nil
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := scope.EvalAt(i, target, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case reflect.Func:
		return invokeCallable(spec, target)
	}
	// in fill mode, everything else (strings included) is literal
	return spec, nil
}
