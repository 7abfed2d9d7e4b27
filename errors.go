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
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// GlomError is satisfied by every domain error this package raises, so a
// caller can distinguish evaluation failures from programming errors with a
// single errors.As or IsGlomError check.
type GlomError interface {
	error
	isGlomError()
}

// glomError is embedded by every concrete error type to mark it as part of
// the domain taxonomy.
type glomError struct{}

func (glomError) isGlomError() {}

// IsGlomError reports whether any error in err's chain originates from this
// package's evaluation machinery.
func IsGlomError(err error) bool {
	var ge GlomError
	return errors.As(err, &ge)
}

// PathAccessError is raised when a step of a path expression cannot be
// resolved against the value it reached. It carries the failing step's
// position, the whole expression, and the low-level cause.
type PathAccessError struct {
	glomError

	Err  error // the underlying cause
	Expr *Expr // the expression being resolved
	Part int   // index of the failing step

	suggestion string
}

func (e *PathAccessError) Error() string {
	msg := fmt.Sprintf("could not access %s, part %d of %s, got error: %v",
		renderStepArg(e.Expr, e.Part), e.Part, e.Expr, e.Err)
	if e.suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.suggestion)
	}
	return msg
}

func (e *PathAccessError) Unwrap() error { return e.Err }

func renderStepArg(e *Expr, part int) string {
	if e == nil || part < 0 || part >= len(e.steps) {
		return "?"
	}
	return bbrepr(e.steps[part].arg)
}

// newPathAccessError builds a PathAccessError, computing a nearest-key
// suggestion when the failing container's keys are enumerable and one of
// them is close to the requested key.
func newPathAccessError(cause error, expr *Expr, part int, keys []any) *PathAccessError {
	pae := &PathAccessError{Err: cause, Expr: expr, Part: part}
	if expr == nil || part < 0 || part >= len(expr.steps) {
		return pae
	}
	want, ok := expr.steps[part].arg.(string)
	if !ok || want == "" {
		return pae
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, k := range keys {
		ks, ok := k.(string)
		if !ok || ks == want {
			continue
		}
		d := levenshtein.DistanceForStrings([]rune(want), []rune(ks), levenshtein.DefaultOptions)
		if d < bestDist {
			best, bestDist = ks, d
		}
	}
	if bestDist <= maxSuggestDistance {
		pae.suggestion = best
	}
	return pae
}

// maxSuggestDistance bounds how fuzzy a "did you mean" suggestion may be.
const maxSuggestDistance = 2

// UnsupportedOpError is raised when no operation of the needed kind is
// registered for a target's type, and no registered ancestor (interface or
// kind default) covers it either.
type UnsupportedOpError struct {
	glomError

	Op   OpKind
	Type reflect.Type
	Path []any // the accumulated path at the point of failure
}

func (e *UnsupportedOpError) Error() string {
	msg := fmt.Sprintf("target type %v not registered for operation %q", e.Type, e.Op)
	if len(e.Path) > 0 {
		msg += fmt.Sprintf(" (at %s)", renderPathSegments(e.Path))
	}
	return msg
}

// BadSpecError is raised when a value used as a spec has no recognized
// interpretation, or when a spec was constructed with malformed arguments.
type BadSpecError struct {
	glomError

	Spec any
	Msg  string
}

func (e *BadSpecError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("expected spec, not %T (%s)", e.Spec, bbrepr(e.Spec))
}

// RecursionLimitError is raised when spec nesting (most often a
// self-referential Ref) exceeds the per-call depth bound.
type RecursionLimitError struct {
	glomError

	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("evaluation exceeded maximum spec recursion depth of %d", e.Limit)
}

// CoalesceError is raised when every alternative of a branching spec
// (Coalesce, Or) fails. It enumerates the per-branch errors in declared
// order, along with the target that none of them could handle.
type CoalesceError struct {
	glomError

	Specs  []any
	Errs   []error
	Target any
	Path   []any
}

func (e *CoalesceError) Error() string {
	var sb strings.Builder
	sb.WriteString("no valid values found while coalescing, tried:")
	for i, s := range e.Specs {
		fmt.Fprintf(&sb, "\n * %s: ", bbrepr(s))
		if i < len(e.Errs) {
			sb.WriteString(e.Errs[i].Error())
		}
	}
	fmt.Fprintf(&sb, "\n against target %s", bbrepr(e.Target))
	if len(e.Path) > 0 {
		fmt.Fprintf(&sb, " at %s", renderPathSegments(e.Path))
	}
	return sb.String()
}

// Unwrap exposes the per-branch errors as a combined error so that
// errors.Is/As can reach into any individual branch failure.
func (e *CoalesceError) Unwrap() error {
	var merr *multierror.Error
	for _, sub := range e.Errs {
		merr = multierror.Append(merr, sub)
	}
	return merr.ErrorOrNil()
}

// PathAssignError is raised when an Assign's terminal operation is rejected
// by the destination container, or when a write lands on an immutable
// value.
type PathAssignError struct {
	glomError

	Err  error
	Expr *Expr
	Seg  any // the final segment whose assignment failed
}

func (e *PathAssignError) Error() string {
	return fmt.Sprintf("could not assign %s on object at %s, got error: %v",
		bbrepr(e.Seg), e.Expr, e.Err)
}

func (e *PathAssignError) Unwrap() error { return e.Err }

// PathDeleteError is the deletion counterpart of PathAssignError.
type PathDeleteError struct {
	glomError

	Err  error
	Expr *Expr
	Seg  any
}

func (e *PathDeleteError) Error() string {
	return fmt.Sprintf("could not delete %s on object at %s, got error: %v",
		bbrepr(e.Seg), e.Expr, e.Err)
}

func (e *PathDeleteError) Unwrap() error { return e.Err }

// MatchKind classifies why a pattern failed to match.
type MatchKind int

const (
	ValueMismatch MatchKind = iota
	TypeMismatch
	MissingRequiredKey
)

func (k MatchKind) String() string {
	switch k {
	case TypeMismatch:
		return "type-mismatch"
	case MissingRequiredKey:
		return "missing-required-key"
	default:
		return "value-mismatch"
	}
}

// MatchError is raised when a Match pattern rejects a target. Negative
// matches are normal control flow for Or and Switch, so construction stays
// cheap: the message is formatted lazily.
type MatchError struct {
	glomError

	Kind   MatchKind
	format string
	args   []any
}

func matchErrorf(kind MatchKind, format string, args ...any) *MatchError {
	return &MatchError{Kind: kind, format: format, args: args}
}

func (e *MatchError) Error() string {
	rendered := make([]any, len(e.args))
	for i, a := range e.args {
		rendered[i] = bbrepr(a)
	}
	return fmt.Sprintf(e.format, rendered...)
}

// TypeMatchError is the MatchError specialization for failed type checks,
// carrying the expected and actual types.
type TypeMatchError struct {
	glomError

	Expected reflect.Type
	Actual   reflect.Type
}

func (e *TypeMatchError) Error() string {
	return fmt.Sprintf("expected type %v, not %v", e.Expected, e.Actual)
}

// TransformError wraps a panic raised by a caller-supplied transformer or
// extension, so that a buggy callback surfaces as a traced evaluation
// failure instead of unwinding the caller's stack.
type TransformError struct {
	glomError

	Panic any
	Func  any
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transformer %T panicked: %v", e.Func, e.Panic)
}

// EvalError is the root error returned by Glom on failure. It wraps the
// first domain error raised during evaluation and carries the rendered
// target-spec trace. The Debug option bypasses this wrapper entirely.
type EvalError struct {
	glomError

	cause error
	trace string
}

func (e *EvalError) Error() string {
	var sb strings.Builder
	sb.WriteString("error raised while processing, details below.")
	sb.WriteString("\n Target-spec trace (most recent last):\n")
	sb.WriteString(e.trace)
	fmt.Fprintf(&sb, "\n%s: %v", errorTypeName(e.cause), e.cause)
	return sb.String()
}

// Unwrap exposes the original domain error for errors.Is/As.
func (e *EvalError) Unwrap() error { return e.cause }

// Trace returns the rendered target-spec trace.
func (e *EvalError) Trace() string { return e.trace }

func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "error"
	}
	return t.Name()
}
