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
	"io"
	"os"
)

// ValSpec carries a literal value through evaluation untouched. See Val.
type ValSpec struct {
	v any
}

// Val marks v as a literal: it evaluates to itself no matter the target.
// Use it to embed strings (which would otherwise be read as paths) or
// container values verbatim in a spec.
func Val(v any) ValSpec { return ValSpec{v: v} }

// Glomit implements Glomiter.
func (v ValSpec) Glomit(_ any, _ *Scope) (any, error) { return v.v, nil }

func (v ValSpec) String() string { return fmt.Sprintf("Val(%s)", bbrepr(v.v)) }

// CoalesceSpec tries alternatives in order. See Coalesce.
type CoalesceSpec struct {
	alts           []any
	defaultVal     any
	hasDefault     bool
	defaultFactory func() any
	skipIf         func(any) bool
}

// Coalesce evaluates each alternative spec against the target, in order,
// returning the first result that neither errors nor is skipped. If every
// alternative fails, a CoalesceError enumerates the per-branch errors in
// declared order, unless a default is configured.
func Coalesce(alts ...any) *CoalesceSpec {
	return &CoalesceSpec{alts: alts}
}

// Default supplies the value returned when every alternative fails.
func (c *CoalesceSpec) Default(v any) *CoalesceSpec {
	out := *c
	out.defaultVal, out.hasDefault = v, true
	return &out
}

// DefaultFactory is Default with a freshly-constructed value per failure,
// for mutable defaults like empty maps.
func (c *CoalesceSpec) DefaultFactory(f func() any) *CoalesceSpec {
	out := *c
	out.defaultFactory = f
	return &out
}

// SkipIf treats successful results matching pred as failures, moving on
// to the next alternative.
func (c *CoalesceSpec) SkipIf(pred func(any) bool) *CoalesceSpec {
	out := *c
	out.skipIf = pred
	return &out
}

// Glomit implements Glomiter.
func (c *CoalesceSpec) Glomit(target any, scope *Scope) (any, error) {
	errs := make([]error, 0, len(c.alts))
	for _, alt := range c.alts {
		res, err := scope.Eval(target, alt)
		if err != nil {
			if !IsGlomError(err) {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}
		if res == Skip || (c.skipIf != nil && c.skipIf(res)) {
			errs = append(errs, matchErrorf(ValueMismatch, "result skipped"))
			continue
		}
		return res, nil
	}
	if c.defaultFactory != nil {
		return c.defaultFactory(), nil
	}
	if c.hasDefault {
		return c.defaultVal, nil
	}
	return nil, &CoalesceError{
		Specs:  c.alts,
		Errs:   errs,
		Target: target,
		Path:   scope.Path(),
	}
}

func (c *CoalesceSpec) String() string {
	parts := make([]string, len(c.alts))
	for i, a := range c.alts {
		parts[i] = bbrepr(a)
	}
	return fmt.Sprintf("Coalesce(%s)", joinTrunc(parts))
}

// InspectSpec echoes evaluation around an inner spec. See Inspect.
type InspectSpec struct {
	spec any
	w    io.Writer
}

// Inspect is a debugging passthrough: it prints the path, target, and
// spec on the way in and the result (or error) on the way out, then
// behaves exactly as its inner spec. Output goes to stderr by default.
func Inspect(spec any) *InspectSpec {
	return &InspectSpec{spec: spec, w: os.Stderr}
}

// WriteTo redirects the echo output.
func (in *InspectSpec) WriteTo(w io.Writer) *InspectSpec {
	out := *in
	out.w = w
	return &out
}

// Glomit implements Glomiter.
func (in *InspectSpec) Glomit(target any, scope *Scope) (any, error) {
	fmt.Fprintf(in.w, "---\n")
	fmt.Fprintf(in.w, "path:   %s\n", renderPathSegments(scope.Path()))
	fmt.Fprintf(in.w, "target: %s\n", bbrepr(target))
	fmt.Fprintf(in.w, "spec:   %s\n", bbrepr(in.spec))
	res, err := scope.Eval(target, in.spec)
	if err != nil {
		fmt.Fprintf(in.w, "error:  %v\n", err)
		return nil, err
	}
	fmt.Fprintf(in.w, "output: %s\n", bbrepr(res))
	return res, nil
}

// InvokeSpec calls a function with evaluated arguments. See Invoke.
type InvokeSpec struct {
	fn   any
	args []any
}

// Invoke builds a call spec: fn is applied to args, where spec-like args
// (paths, Exprs, extension objects, functions) are first evaluated against
// the current target and everything else passes through as a literal.
func Invoke(fn any, args ...any) *InvokeSpec {
	return &InvokeSpec{fn: fn, args: args}
}

// Glomit implements Glomiter.
func (iv *InvokeSpec) Glomit(target any, scope *Scope) (any, error) {
	evaled := make([]any, len(iv.args))
	for i, a := range iv.args {
		if isSpeclike(a) {
			v, err := scope.Eval(target, a)
			if err != nil {
				return nil, err
			}
			evaled[i] = v
		} else {
			evaled[i] = a
		}
	}
	return invokeCallable(iv.fn, evaled...)
}

func (iv *InvokeSpec) String() string { return fmt.Sprintf("Invoke(%T)", iv.fn) }

// LetSpec binds a scope variable around an inner spec. See Let.
type LetSpec struct {
	name  string
	val   any
	inner any
}

// Let evaluates valSpec against the target, binds the result to name in
// the current frame, and returns the target unchanged. The binding is
// visible to this spec's descendants only; sibling steps of an enclosing
// Chain never observe it. Use In to evaluate a sub-spec within the
// binding's visibility.
func Let(name string, valSpec any) *LetSpec {
	return &LetSpec{name: name, val: valSpec, inner: T}
}

// In sets the spec evaluated with the binding in scope; its result
// becomes the Let's result.
func (l *LetSpec) In(spec any) *LetSpec {
	out := *l
	out.inner = spec
	return &out
}

// Glomit implements Glomiter.
func (l *LetSpec) Glomit(target any, scope *Scope) (any, error) {
	v, err := scope.Eval(target, l.val)
	if err != nil {
		return nil, err
	}
	scope.Let(l.name, v)
	return scope.Eval(target, l.inner)
}

func (l *LetSpec) String() string { return fmt.Sprintf("Let(%q, %s)", l.name, bbrepr(l.val)) }

// SetGlobalSpec writes into the shared namespace. See SetGlobal.
type SetGlobalSpec struct {
	name string
	val  any
}

// SetGlobal evaluates valSpec against the target and stores the result in
// the per-call shared namespace under name, then passes the target
// through unchanged. Unlike Let, the write is visible to every scope of
// the same top-level call, including sibling steps evaluated later.
func SetGlobal(name string, valSpec any) *SetGlobalSpec {
	return &SetGlobalSpec{name: name, val: valSpec}
}

// Glomit implements Glomiter.
func (g *SetGlobalSpec) Glomit(target any, scope *Scope) (any, error) {
	v, err := scope.Eval(target, g.val)
	if err != nil {
		return nil, err
	}
	scope.SetGlobal(g.name, v)
	return target, nil
}

func (g *SetGlobalSpec) String() string { return fmt.Sprintf("SetGlobal(%q, %s)", g.name, bbrepr(g.val)) }

// refPrefix namespaces Ref bindings within scope vars so they cannot
// collide with Let bindings.
const refPrefix = "\x00ref:"

// RefSpec names a spec so that it can reference itself. See Ref.
type RefSpec struct {
	name string
	spec any
	has  bool
}

// Ref supports recursive specs through explicit fixed-point construction:
// Ref("node", spec) binds spec under the name and evaluates it, while a
// bare Ref("node") anywhere beneath re-evaluates the named spec against
// the current target. Direct self-reference is impossible to build in a
// finite spec value; Ref is the supported way to express it. Runaway
// recursion is cut off by the per-call depth bound.
func Ref(name string, spec ...any) *RefSpec {
	if len(spec) > 1 {
		panic(&BadSpecError{Msg: fmt.Sprintf("Ref takes at most one spec, got %d", len(spec))})
	}
	r := &RefSpec{name: name}
	if len(spec) == 1 {
		r.spec, r.has = spec[0], true
	}
	return r
}

// Glomit implements Glomiter.
func (r *RefSpec) Glomit(target any, scope *Scope) (any, error) {
	key := refPrefix + r.name
	if r.has {
		scope.Let(key, r.spec)
		return scope.Eval(target, r.spec)
	}
	spec, ok := scope.Lookup(key)
	if !ok {
		return nil, &BadSpecError{Spec: r, Msg: fmt.Sprintf("no spec named %q bound by an enclosing Ref", r.name)}
	}
	return scope.Eval(target, spec)
}

func (r *RefSpec) String() string {
	if r.has {
		return fmt.Sprintf("Ref(%q, %s)", r.name, bbrepr(r.spec))
	}
	return fmt.Sprintf("Ref(%q)", r.name)
}

func joinTrunc(parts []string) string {
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += ", "
		}
		joined += p
	}
	return truncate(joined, traceLineWidth)
}
