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

	"github.com/spf13/cast"
)

// elements drains the registry iteration of target into a slice.
func elements(target any, scope *Scope) ([]any, error) {
	itf, err := scope.registry().iterateFunc(target, scope)
	if err != nil {
		return nil, err
	}
	seq, err := itf(target)
	if err != nil {
		return nil, err
	}
	var out []any
	for el := range seq {
		out = append(out, el)
	}
	return out, nil
}

// FlattenSpec concatenates an iterable of iterables. See Flatten.
type FlattenSpec struct {
	deep bool
}

// Flatten concatenates the target's elements, each itself iterable, into
// one []any, one level deep.
func Flatten() *FlattenSpec { return &FlattenSpec{} }

// Deep flattens recursively: non-iterable descendants surface in order,
// any depth of nesting collapses. Strings count as scalars.
func (f *FlattenSpec) Deep() *FlattenSpec {
	out := *f
	out.deep = true
	return &out
}

// Glomit implements Glomiter.
func (f *FlattenSpec) Glomit(target any, scope *Scope) (any, error) {
	els, err := elements(target, scope)
	if err != nil {
		return nil, err
	}
	out := []any{}
	for _, el := range els {
		if err := f.appendFlat(&out, el, scope); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *FlattenSpec) appendFlat(out *[]any, el any, scope *Scope) error {
	sub, err := elements(el, scope)
	if err != nil {
		if f.deep {
			*out = append(*out, el)
			return nil
		}
		return err
	}
	if !f.deep {
		*out = append(*out, sub...)
		return nil
	}
	for _, s := range sub {
		if err := f.appendFlat(out, s, scope); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlattenSpec) String() string {
	if f.deep {
		return "Flatten().Deep()"
	}
	return "Flatten()"
}

// MergeSpec combines an iterable of maps. See Merge.
type MergeSpec struct{}

// Merge combines the target, an iterable of maps, into one
// map[any]any (map[string]any when every key is a string). Later maps
// win on key collisions.
func Merge() MergeSpec { return MergeSpec{} }

// Glomit implements Glomiter.
func (MergeSpec) Glomit(target any, scope *Scope) (any, error) {
	els, err := elements(target, scope)
	if err != nil {
		return nil, err
	}
	out := map[any]any{}
	stringKeys := true
	for _, el := range els {
		rv := deref(reflect.ValueOf(el))
		if rv.Kind() != reflect.Map {
			return nil, &BadSpecError{Spec: MergeSpec{}, Msg: fmt.Sprintf("Merge needs maps, got %T", el)}
		}
		it := rv.MapRange()
		for it.Next() {
			k := it.Key().Interface()
			if _, ok := k.(string); !ok {
				stringKeys = false
			}
			out[k] = it.Value().Interface()
		}
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

func (MergeSpec) String() string { return "Merge()" }

// SumSpec totals an iterable of numbers. See Sum.
type SumSpec struct{}

// Sum totals the target's elements as float64. Elements coerce loosely,
// so mixed int and float sequences work; a non-numeric element is an
// error.
func Sum() SumSpec { return SumSpec{} }

// Glomit implements Glomiter.
func (SumSpec) Glomit(target any, scope *Scope) (any, error) {
	els, err := elements(target, scope)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, el := range els {
		f, cerr := cast.ToFloat64E(el)
		if cerr != nil {
			return nil, &BadSpecError{Spec: SumSpec{}, Msg: fmt.Sprintf("cannot sum %s: %v", bbrepr(el), cerr)}
		}
		total += f
	}
	return total, nil
}

func (SumSpec) String() string { return "Sum()" }

// FoldSpec is the general reduction. See Fold.
type FoldSpec struct {
	init func() any
	op   func(acc, el any) (any, error)
}

// Fold reduces the target's elements with op, starting from a fresh
// init() accumulator per evaluation.
func Fold(init func() any, op func(acc, el any) (any, error)) *FoldSpec {
	return &FoldSpec{init: init, op: op}
}

// Glomit implements Glomiter.
func (f *FoldSpec) Glomit(target any, scope *Scope) (any, error) {
	els, err := elements(target, scope)
	if err != nil {
		return nil, err
	}
	acc := f.init()
	for _, el := range els {
		acc, err = f.op(acc, el)
		if err != nil {
			if IsGlomError(err) {
				return nil, err
			}
			return nil, &BadSpecError{Spec: f, Msg: fmt.Sprintf("fold failed: %v", err)}
		}
	}
	return acc, nil
}

func (f *FoldSpec) String() string { return "Fold()" }
