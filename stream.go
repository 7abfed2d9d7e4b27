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
	"iter"
	"reflect"
)

type stageKind int

const (
	stageMap stageKind = iota
	stageFilter
	stageUnique
	stageLimit
	stageSlice
	stageChunked
	stageFlatten
)

type iterStage struct {
	kind        stageKind
	spec        any
	n           int
	start, stop int
}

type iterTerminal int

const (
	termNone iterTerminal = iota
	termFirst
	termAll
)

// IterSpec is a lazy, composable pipeline over the target's elements.
// See Iter.
type IterSpec struct {
	spec   any
	has    bool
	stages []iterStage
	term   iterTerminal
}

// Iter builds a streaming spec over the target's element sequence.
// The optional spec evaluates against each element as it is pulled, with
// Skip dropping the element and Stop ending the stream, exactly as in
// Each, but lazily. Stage methods derive extended pipelines without
// mutating the receiver.
//
// Without a terminal stage (First, All) the result of evaluation is an
// iter.Seq2[any, error]: elements stream on demand and an evaluation
// failure arrives as the final pair's error.
func Iter(spec ...any) *IterSpec {
	if len(spec) > 1 {
		panic(&BadSpecError{Msg: fmt.Sprintf("Iter takes at most one spec, got %d", len(spec))})
	}
	it := &IterSpec{}
	if len(spec) == 1 {
		it.spec, it.has = spec[0], true
	}
	return it
}

func (it *IterSpec) derive(st iterStage) *IterSpec {
	out := *it
	out.stages = make([]iterStage, len(it.stages), len(it.stages)+1)
	copy(out.stages, it.stages)
	out.stages = append(out.stages, st)
	return &out
}

// Map evaluates spec against each element, streaming the results. Skip
// and Stop keep their control meanings.
func (it *IterSpec) Map(spec any) *IterSpec {
	return it.derive(iterStage{kind: stageMap, spec: spec})
}

// Filter keeps the elements that match pattern, with full match-mode
// semantics: types, predicates, M comparisons, and literals all work.
// Non-matching elements are dropped silently.
func (it *IterSpec) Filter(pattern any) *IterSpec {
	return it.derive(iterStage{kind: stageFilter, spec: pattern})
}

// Unique drops elements already seen. Comparable elements dedupe by
// value; uncomparable ones fall back to their printed representation.
func (it *IterSpec) Unique() *IterSpec {
	return it.derive(iterStage{kind: stageUnique})
}

// Limit ends the stream after n elements.
func (it *IterSpec) Limit(n int) *IterSpec {
	return it.derive(iterStage{kind: stageLimit, n: n})
}

// Slice streams the elements in position range [start, stop).
func (it *IterSpec) Slice(start, stop int) *IterSpec {
	return it.derive(iterStage{kind: stageSlice, start: start, stop: stop})
}

// Chunked groups the stream into []any chunks of size n; the final chunk
// may be short.
func (it *IterSpec) Chunked(n int) *IterSpec {
	if n <= 0 {
		panic(&BadSpecError{Msg: fmt.Sprintf("chunk size must be positive, got %d", n)})
	}
	return it.derive(iterStage{kind: stageChunked, n: n})
}

// Flatten streams each element's own elements, one level deep.
func (it *IterSpec) Flatten() *IterSpec {
	return it.derive(iterStage{kind: stageFlatten})
}

// First makes the pipeline terminal: evaluation returns the first
// streamed element, or an error when the stream is empty. Combine with
// Coalesce for a default.
func (it *IterSpec) First() *IterSpec {
	out := *it
	out.term = termFirst
	return &out
}

// All makes the pipeline terminal: evaluation drains the stream into a
// []any.
func (it *IterSpec) All() *IterSpec {
	out := *it
	out.term = termAll
	return &out
}

// Glomit implements Glomiter.
func (it *IterSpec) Glomit(target any, scope *Scope) (any, error) {
	itf, err := scope.registry().iterateFunc(target, scope)
	if err != nil {
		return nil, err
	}
	seq, err := itf(target)
	if err != nil {
		return nil, err
	}

	src := it.source(seq, scope)
	for _, st := range it.stages {
		src = applyStage(st, src, scope)
	}

	switch it.term {
	case termFirst:
		for v, serr := range src {
			if serr != nil {
				return nil, serr
			}
			return v, nil
		}
		return nil, matchErrorf(ValueMismatch, "no elements in iterable %s", target)
	case termAll:
		out := []any{}
		for v, serr := range src {
			if serr != nil {
				return nil, serr
			}
			out = append(out, v)
		}
		return out, nil
	}
	return src, nil
}

func (it *IterSpec) source(seq iter.Seq[any], scope *Scope) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for el := range seq {
			v := el
			if it.has {
				res, err := scope.Eval(el, it.spec)
				if err != nil {
					yield(nil, err)
					return
				}
				if res == Skip {
					continue
				}
				if res == Stop {
					return
				}
				v = res
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func applyStage(st iterStage, src iter.Seq2[any, error], scope *Scope) iter.Seq2[any, error] {
	switch st.kind {
	case stageMap:
		return func(yield func(any, error) bool) {
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				res, merr := scope.Eval(v, st.spec)
				if merr != nil {
					yield(nil, merr)
					return
				}
				if res == Skip {
					continue
				}
				if res == Stop {
					return
				}
				if !yield(res, nil) {
					return
				}
			}
		}
	case stageFilter:
		pattern := Match(st.spec)
		return func(yield func(any, error) bool) {
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				if _, merr := scope.Eval(v, pattern); merr != nil {
					if !IsGlomError(merr) {
						yield(nil, merr)
						return
					}
					continue
				}
				if !yield(v, nil) {
					return
				}
			}
		}
	case stageUnique:
		return func(yield func(any, error) bool) {
			seen := map[any]bool{}
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				key := uniqueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
				if !yield(v, nil) {
					return
				}
			}
		}
	case stageLimit:
		return func(yield func(any, error) bool) {
			count := 0
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				if count >= st.n {
					return
				}
				count++
				if !yield(v, nil) {
					return
				}
			}
		}
	case stageSlice:
		return func(yield func(any, error) bool) {
			i := 0
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				if i >= st.stop {
					return
				}
				if i >= st.start {
					if !yield(v, nil) {
						return
					}
				}
				i++
			}
		}
	case stageChunked:
		return func(yield func(any, error) bool) {
			buf := make([]any, 0, st.n)
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				buf = append(buf, v)
				if len(buf) == st.n {
					if !yield(buf, nil) {
						return
					}
					buf = make([]any, 0, st.n)
				}
			}
			if len(buf) > 0 {
				yield(buf, nil)
			}
		}
	case stageFlatten:
		return func(yield func(any, error) bool) {
			for v, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				itf, ferr := scope.registry().iterateFunc(v, scope)
				if ferr != nil {
					yield(nil, ferr)
					return
				}
				sub, serr := itf(v)
				if serr != nil {
					yield(nil, serr)
					return
				}
				for el := range sub {
					if !yield(el, nil) {
						return
					}
				}
			}
		}
	}
	return src
}

// uniqueKey produces a dedupe key: the value itself when comparable,
// otherwise its printed form.
func uniqueKey(v any) any {
	if v == nil {
		return nil
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%#v", v)
}

func (it *IterSpec) String() string {
	s := "Iter"
	if it.has {
		s = fmt.Sprintf("Iter(%s)", bbrepr(it.spec))
	}
	return fmt.Sprintf("%s{%d stages}", s, len(it.stages))
}
