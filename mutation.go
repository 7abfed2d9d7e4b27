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
)

// specPathExpr normalizes the path argument accepted by Assign and
// Delete: a dotted string, a Path, or a target-rooted Expr. Malformed or
// scope-rooted paths panic, Must-style, so bad mutation specs fail at
// construction rather than deep inside an evaluation.
func specPathExpr(path any) *Expr {
	var e *Expr
	switch p := path.(type) {
	case *Expr:
		e = p
	case Path:
		e = p.Expr()
	case string:
		e = MustParsePath(p).Expr()
	default:
		panic(&BadSpecError{Spec: path, Msg: fmt.Sprintf("path must be a string, Path, or *Expr, not %T", path)})
	}
	if e.root != rootT {
		panic(&BadSpecError{Spec: e, Msg: "mutation paths must be target-rooted"})
	}
	if len(e.steps) == 0 {
		panic(&BadSpecError{Spec: e, Msg: "cannot mutate the target itself; the path needs at least one segment"})
	}
	return e
}

// mutationSeg extracts the plain key of step i, rejecting call, slice and
// wildcard steps, which have no single destination to write.
func mutationSeg(e *Expr, i int) (any, error) {
	st := e.steps[i]
	if st.op != opAttr && st.op != opItem {
		return nil, fmt.Errorf("segment %d of %s is not a key or index", i, e)
	}
	return st.arg, nil
}

// AssignSpec writes a value into the target at a fixed path. See Assign.
type AssignSpec struct {
	expr    *Expr
	val     any
	missing func() any
}

// Assign evaluates valueSpec against the target and writes the result at
// path, mutating the target in place and passing it through as the
// result. path may be a dotted string, a Path, or a target-rooted Expr
// of key and index steps; anything else panics at construction.
//
// The write itself goes through the assign operation registered for the
// parent container's type, so registered extensions participate.
func Assign(path, valueSpec any) *AssignSpec {
	return &AssignSpec{expr: specPathExpr(path), val: valueSpec}
}

// Missing supplies a constructor for absent intermediate containers:
// when resolving the path's parent fails partway, each missing level is
// created with f and linked in before the final write.
func (a *AssignSpec) Missing(f func() any) *AssignSpec {
	out := *a
	out.missing = f
	return &out
}

// Glomit implements Glomiter.
func (a *AssignSpec) Glomit(target any, scope *Scope) (any, error) {
	v, err := scope.Eval(target, a.val)
	if err != nil {
		return nil, err
	}

	n := a.expr.Len()
	lastSeg, err := mutationSeg(a.expr, n-1)
	if err != nil {
		return nil, &PathAssignError{Err: err, Expr: a.expr, Seg: a.expr.steps[n-1].arg}
	}

	parent, perr := a.expr.resolvePrefix(target, scope, n-1)
	if perr != nil {
		if a.missing == nil {
			return nil, &PathAssignError{Err: perr, Expr: a.expr, Seg: lastSeg}
		}
		parent, perr = a.backfill(target, scope, n-1)
		if perr != nil {
			return nil, perr
		}
	}

	if err := registryAssign(scope, parent, lastSeg, v); err != nil {
		return nil, &PathAssignError{Err: err, Expr: a.expr, Seg: lastSeg}
	}
	return target, nil
}

// backfill walks back to the deepest resolvable prefix, then creates one
// container per missing level with the Missing factory, linking each into
// its parent, and returns the parent of the final segment.
func (a *AssignSpec) backfill(target any, scope *Scope, upto int) (any, error) {
	depth := upto
	var parent any
	for ; depth > 0; depth-- {
		p, err := a.expr.resolvePrefix(target, scope, depth)
		if err == nil {
			parent = p
			break
		}
	}
	if depth == 0 {
		parent = target
	}
	for i := depth; i < upto; i++ {
		seg, err := mutationSeg(a.expr, i)
		if err != nil {
			return nil, &PathAssignError{Err: err, Expr: a.expr, Seg: a.expr.steps[i].arg}
		}
		child := a.missing()
		if err := registryAssign(scope, parent, seg, child); err != nil {
			return nil, &PathAssignError{Err: err, Expr: a.expr, Seg: seg}
		}
		parent = child
	}
	return parent, nil
}

func registryAssign(scope *Scope, parent, key, value any) error {
	fn, err := scope.registry().assignFunc(parent, scope)
	if err != nil {
		return err
	}
	return fn(parent, key, value)
}

func (a *AssignSpec) String() string {
	return fmt.Sprintf("Assign(%s, %s)", a.expr, bbrepr(a.val))
}

// DeleteSpec removes the value at a fixed path. See Delete.
type DeleteSpec struct {
	expr          *Expr
	ignoreMissing bool
}

// Delete removes the value at path from the target, mutating it in place
// and passing the target through as the result. path follows the same
// rules as Assign's. A path whose final segment is absent raises a
// PathDeleteError unless IgnoreMissing is set.
func Delete(path any) *DeleteSpec {
	return &DeleteSpec{expr: specPathExpr(path)}
}

// IgnoreMissing makes deletion of an already-absent final segment a
// no-op instead of an error. Failure to resolve the path's parent still
// errors.
func (d *DeleteSpec) IgnoreMissing() *DeleteSpec {
	out := *d
	out.ignoreMissing = true
	return &out
}

// Glomit implements Glomiter.
func (d *DeleteSpec) Glomit(target any, scope *Scope) (any, error) {
	n := d.expr.Len()
	lastSeg, err := mutationSeg(d.expr, n-1)
	if err != nil {
		return nil, &PathDeleteError{Err: err, Expr: d.expr, Seg: d.expr.steps[n-1].arg}
	}

	parent, err := d.expr.resolvePrefix(target, scope, n-1)
	if err != nil {
		return nil, &PathDeleteError{Err: err, Expr: d.expr, Seg: lastSeg}
	}

	fn, err := scope.registry().deleteFunc(parent, scope)
	if err != nil {
		return nil, &PathDeleteError{Err: err, Expr: d.expr, Seg: lastSeg}
	}
	if err := fn(parent, lastSeg); err != nil {
		if d.ignoreMissing {
			return target, nil
		}
		return nil, &PathDeleteError{Err: err, Expr: d.expr, Seg: lastSeg}
	}
	return target, nil
}

func (d *DeleteSpec) String() string { return fmt.Sprintf("Delete(%s)", d.expr) }

// AssignTo writes value at path within target immediately, without
// building a spec pipeline. Options apply as in GlomWith.
func AssignTo(target any, path, value any, opts ...Option) (any, error) {
	return GlomWith(target, Assign(path, Val(value)), opts...)
}

// DeleteAt removes the value at path within target immediately, without
// building a spec pipeline. Options apply as in GlomWith.
func DeleteAt(target any, path any, opts ...Option) (any, error) {
	return GlomWith(target, Delete(path), opts...)
}
