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
	"hash/fnv"
	"reflect"
	"strconv"
	"strings"
)

// exprOp enumerates the step kinds an expression chain may contain.
type exprOp uint8

const (
	opAttr exprOp = iota // attribute access: struct field or method
	opItem               // item access: map key or sequence index
	opCall               // invocation of the value reached so far
	opSlice              // sub-sequence of the value reached so far
	opStar               // wildcard: fan out one level
	opDeepStar           // wildcard: fan out recursively, any depth
)

// exprRoot says what an expression chain starts from.
type exprRoot uint8

const (
	rootT exprRoot = iota // the current target
	rootS                 // the current scope's bindings
)

// sliceBounds holds the operands of a slice step. Nil means "open" on that
// side; Step nil means 1.
type sliceBounds struct {
	Start, Stop, Step *int
}

type exprStep struct {
	op  exprOp
	arg any // opAttr: string; opItem: any; opCall: []any; opSlice: sliceBounds
}

// Expr is an immutable, lazily-recorded chain of symbolic access steps
// against an abstract root. Exprs are specs: evaluating one resolves its
// steps, in order, against the current target (or the current scope, for
// S-rooted chains). Deriving a new step never mutates the receiver, so
// sub-expressions can be shared and interned freely.
//
// T and S are the two roots; all other Exprs descend from them:
//
//	glom.T.Attr("address").K("city")    // target.address["city"]
//	glom.S.K("cache")                   // the scope binding named "cache"
type Expr struct {
	root  exprRoot
	steps []exprStep
}

// T is the root expression standing for the current target.
var T = &Expr{root: rootT}

// S is the root expression standing for the current scope. Item steps on S
// read scope bindings by name; the reserved first key "globals" reaches the
// per-call shared namespace.
var S = &Expr{root: rootS}

// G is shorthand for the shared-globals namespace: G.K("x") reads the
// global named "x".
var G = S.K("globals")

// globalsKey is the reserved S item that resolves to the shared namespace.
const globalsKey = "globals"

// derive returns a new Expr with one step appended. The receiver's step
// slice is copied, never aliased, to keep derived chains independent.
func (e *Expr) derive(s exprStep) *Expr {
	steps := make([]exprStep, len(e.steps), len(e.steps)+1)
	copy(steps, e.steps)
	return &Expr{root: e.root, steps: append(steps, s)}
}

// Attr derives an attribute-access step: a struct field (or, failing that,
// a method) named name.
func (e *Expr) Attr(name string) *Expr {
	return e.derive(exprStep{op: opAttr, arg: name})
}

// K derives an item-access step with an arbitrary key: a map key, or a
// sequence index when key is an integer.
func (e *Expr) K(key any) *Expr {
	return e.derive(exprStep{op: opItem, arg: key})
}

// Idx derives an item-access step with an integer index. Negative indices
// count from the end of the sequence.
func (e *Expr) Idx(i int) *Expr {
	return e.derive(exprStep{op: opItem, arg: i})
}

// Call derives an invocation step. The value reached so far must be
// callable; args may themselves be specs, evaluated against the current
// target when the call runs.
func (e *Expr) Call(args ...any) *Expr {
	return e.derive(exprStep{op: opCall, arg: args})
}

// Range derives a slice step covering [start, stop) of the sequence
// reached so far. Negative bounds count from the end; use End for an open
// upper bound.
func (e *Expr) Range(start, stop int) *Expr {
	return e.derive(exprStep{op: opSlice, arg: sliceBounds{Start: &start, Stop: &stop}})
}

// RangeStep is Range with an explicit stride. A negative stride walks the
// sequence backwards.
func (e *Expr) RangeStep(start, stop, step int) *Expr {
	if step == 0 {
		panic(&BadSpecError{Msg: "slice step cannot be zero"})
	}
	return e.derive(exprStep{op: opSlice, arg: sliceBounds{Start: &start, Stop: &stop, Step: &step}})
}

// End marks an open upper bound for Range.
const End = int(^uint(0) >> 1)

// Star derives a single-level wildcard step: the chain fans out across
// every child of the value reached so far, and the remaining steps apply
// to each child, dropping the ones that fail.
func (e *Expr) Star() *Expr {
	return e.derive(exprStep{op: opStar})
}

// DeepStar derives a recursive wildcard step: like Star, but fanning out
// across every descendant at any depth.
func (e *Expr) DeepStar() *Expr {
	return e.derive(exprStep{op: opDeepStar})
}

// Extend composes rel onto base. rel must be target-rooted, meaning
// "relative to whatever base resolves to"; composing a scope-rooted chain
// where a relative one is required is a construction-time error, caught
// here rather than at evaluation.
func Extend(base, rel *Expr) (*Expr, error) {
	if rel.root != rootT {
		return nil, &BadSpecError{Spec: rel,
			Msg: fmt.Sprintf("cannot extend %s with scope-rooted %s: extension must be target-rooted", base, rel)}
	}
	steps := make([]exprStep, 0, len(base.steps)+len(rel.steps))
	steps = append(steps, base.steps...)
	steps = append(steps, rel.steps...)
	return &Expr{root: base.root, steps: steps}, nil
}

// MustExtend is Extend, panicking on composition errors. Intended for
// statically-known chains.
func MustExtend(base, rel *Expr) *Expr {
	e, err := Extend(base, rel)
	if err != nil {
		panic(err)
	}
	return e
}

// Len reports the number of steps in the chain.
func (e *Expr) Len() int { return len(e.steps) }

// Equal reports structural equality: same root, same steps in the same
// order.
func (e *Expr) Equal(o *Expr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.root != o.root || len(e.steps) != len(o.steps) {
		return false
	}
	for i := range e.steps {
		if e.steps[i].op != o.steps[i].op {
			return false
		}
		if !reflect.DeepEqual(e.steps[i].arg, o.steps[i].arg) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal.
func (e *Expr) Hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|", e.root)
	for _, st := range e.steps {
		fmt.Fprintf(h, "%d:%v|", st.op, st.arg)
	}
	return h.Sum64()
}

func (e *Expr) String() string {
	var sb strings.Builder
	switch e.root {
	case rootS:
		sb.WriteString("S")
	default:
		sb.WriteString("T")
	}
	for _, st := range e.steps {
		switch st.op {
		case opAttr:
			sb.WriteByte('.')
			sb.WriteString(st.arg.(string))
		case opItem:
			fmt.Fprintf(&sb, "[%s]", bbrepr(st.arg))
		case opCall:
			args := st.arg.([]any)
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = bbrepr(a)
			}
			fmt.Fprintf(&sb, "(%s)", strings.Join(parts, ", "))
		case opSlice:
			sb.WriteString(renderSlice(st.arg.(sliceBounds)))
		case opStar:
			sb.WriteString(".*")
		case opDeepStar:
			sb.WriteString(".**")
		}
	}
	return sb.String()
}

func renderSlice(b sliceBounds) string {
	var sb strings.Builder
	sb.WriteByte('[')
	if b.Start != nil {
		sb.WriteString(strconv.Itoa(*b.Start))
	}
	sb.WriteByte(':')
	if b.Stop != nil && *b.Stop != End {
		sb.WriteString(strconv.Itoa(*b.Stop))
	}
	if b.Step != nil {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(*b.Step))
	}
	sb.WriteByte(']')
	return sb.String()
}

// resolve evaluates the chain against target within scope. An empty chain
// resolves to the unchanged target (or the scope, for S).
func (e *Expr) resolve(target any, scope *Scope) (any, error) {
	var cur any
	switch e.root {
	case rootS:
		cur = scope
	default:
		cur = target
	}
	return e.resolveFrom(cur, 0, target, scope)
}

// resolveFrom applies steps[from:] to cur. It recurses at wildcard steps so
// that the remaining chain maps over each fanned-out child.
func (e *Expr) resolveFrom(cur any, from int, target any, scope *Scope) (any, error) {
	for i := from; i < len(e.steps); i++ {
		st := e.steps[i]
		switch st.op {
		case opStar, opDeepStar:
			kids, err := expandChildren(cur, st.op == opDeepStar, scope)
			if err != nil {
				return nil, newPathAccessError(err, e, i, nil)
			}
			out := make([]any, 0, len(kids))
			for _, kid := range kids {
				v, verr := e.resolveFrom(kid, i+1, target, scope)
				if verr != nil {
					continue // wildcard drops children the tail can't reach
				}
				out = append(out, v)
			}
			return out, nil
		default:
			next, err := e.applyStep(cur, i, target, scope)
			if err != nil {
				return nil, err
			}
			cur = next
		}
	}
	return cur, nil
}

// resolvePrefix evaluates only the first n steps, for callers (like Assign)
// that need the parent of the terminal step.
func (e *Expr) resolvePrefix(target any, scope *Scope, n int) (any, error) {
	var cur any
	switch e.root {
	case rootS:
		cur = scope
	default:
		cur = target
	}
	trimmed := &Expr{root: e.root, steps: e.steps[:n]}
	return trimmed.resolveFrom(cur, 0, target, scope)
}

func (e *Expr) applyStep(cur any, i int, target any, scope *Scope) (any, error) {
	st := e.steps[i]
	switch st.op {
	case opAttr, opItem:
		key := st.arg
		// S-rooted chains read the scope itself before regular access
		// rules take over.
		if sc, ok := cur.(*Scope); ok {
			return resolveScopeItem(sc, key, e, i)
		}
		next, err := scope.registry().getItem(cur, key, scope)
		if err != nil {
			var keys []any
			if kf, kerr := scope.registry().keysFunc(cur, scope); kerr == nil {
				keys, _ = kf(cur)
			}
			return nil, newPathAccessError(err, e, i, keys)
		}
		return next, nil
	case opCall:
		args := st.arg.([]any)
		evaled := make([]any, len(args))
		for j, a := range args {
			if isSpeclike(a) {
				v, err := scope.Eval(target, a)
				if err != nil {
					return nil, err
				}
				evaled[j] = v
			} else {
				evaled[j] = a
			}
		}
		res, err := invokeCallable(cur, evaled...)
		if err != nil {
			return nil, newPathAccessError(err, e, i, nil)
		}
		return res, nil
	case opSlice:
		res, err := sliceSequence(cur, st.arg.(sliceBounds))
		if err != nil {
			return nil, newPathAccessError(err, e, i, nil)
		}
		return res, nil
	}
	return nil, newPathAccessError(fmt.Errorf("unknown step op %d", st.op), e, i, nil)
}

func resolveScopeItem(sc *Scope, key any, e *Expr, i int) (any, error) {
	name, ok := key.(string)
	if !ok {
		return nil, newPathAccessError(fmt.Errorf("scope keys are strings, not %T", key), e, i, nil)
	}
	if name == globalsKey {
		return sc.Globals(), nil
	}
	v, ok := sc.Lookup(name)
	if !ok {
		return nil, newPathAccessError(fmt.Errorf("no binding named %q in scope", name), e, i, sc.boundNames())
	}
	return v, nil
}

// expandChildren collects the one-level (or, when deep, every-descendant)
// children of v for wildcard fan-out. Maps contribute their values in
// sorted-key order; sequences contribute their elements in order. Scalars
// have no children.
func expandChildren(v any, deep bool, scope *Scope) ([]any, error) {
	var kids []any
	itf, err := scope.registry().iterateFunc(v, scope)
	if err != nil {
		return nil, nil // scalar: nothing to fan out across
	}
	seq, err := itf(v)
	if err != nil {
		return nil, err
	}
	for el := range seq {
		kids = append(kids, el)
	}
	if !deep {
		return kids, nil
	}
	all := make([]any, 0, len(kids))
	for _, kid := range kids {
		all = append(all, kid)
		sub, err := expandChildren(kid, true, scope)
		if err != nil {
			return nil, err
		}
		all = append(all, sub...)
	}
	return all, nil
}

// sliceSequence applies Python-style slice semantics to a Go sequence:
// negative bounds count from the end, out-of-range bounds clamp, and a
// negative stride walks backwards. Strings slice by rune and return a
// string; everything else returns []any.
func sliceSequence(v any, b sliceBounds) (any, error) {
	if s, ok := v.(string); ok {
		runes := []rune(s)
		elems := make([]any, len(runes))
		for i, r := range runes {
			elems[i] = r
		}
		picked, err := sliceIndices(len(elems), b)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		for _, i := range picked {
			sb.WriteRune(elems[i].(rune))
		}
		return sb.String(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot slice %T", v)
	}
	picked, err := sliceIndices(rv.Len(), b)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(picked))
	for _, i := range picked {
		out = append(out, rv.Index(i).Interface())
	}
	return out, nil
}

// sliceIndices computes the element indices selected by b over a sequence
// of length n.
func sliceIndices(n int, b sliceBounds) ([]int, error) {
	step := 1
	if b.Step != nil {
		step = *b.Step
	}
	if step == 0 {
		return nil, fmt.Errorf("slice step cannot be zero")
	}
	norm := func(idx int, def int) int {
		if idx == End {
			return def
		}
		if idx < 0 {
			idx += n
		}
		return idx
	}
	var start, stop int
	if step > 0 {
		start, stop = 0, n
	} else {
		start, stop = n-1, -1
	}
	if b.Start != nil {
		start = norm(*b.Start, start)
	}
	if b.Stop != nil {
		stop = norm(*b.Stop, stop)
	}
	clamp := func(idx int) int {
		if idx < 0 {
			if step > 0 {
				return 0
			}
			return -1
		}
		if idx > n {
			return n
		}
		return idx
	}
	start, stop = clamp(start), clamp(stop)
	var out []int
	if step > 0 {
		for i := start; i < stop && i < n; i += step {
			if i >= 0 {
				out = append(out, i)
			}
		}
	} else {
		if start >= n {
			start = n - 1
		}
		for i := start; i > stop && i >= 0; i += step {
			if i < n {
				out = append(out, i)
			}
		}
	}
	return out, nil
}
