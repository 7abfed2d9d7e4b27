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

// Package glom is a declarative, recursive value-transformation engine:
// it evaluates a composable "spec" against an arbitrary "target" value,
// producing a derived value, a mutated target, or a validation verdict,
// with no pre-declared schema.
//
// The simplest spec is a dotted path:
//
//	v, err := glom.Glom(data, "a.b.c")
//
// Specs compose: record templates (maps), pipelines (Chain), per-element
// iteration (Each), fallbacks (Coalesce), in-place mutation (Assign,
// Delete), pattern checks (Match), and symbolic expressions built from T.
// Anything implementing Glomiter plugs in as a spec of its own.
package glom

import (
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	"github.com/mahmoud/glom/internal/contract"
)

// defaultMaxDepth bounds spec recursion per top-level call. Deep nesting
// is almost always a self-referential spec gone wrong; genuine deep
// structures can raise the bound with WithMaxDepth.
const defaultMaxDepth = 4096

type config struct {
	registry *Registry
	vars     map[string]any
	maxDepth int
	debug    bool
}

// Option configures one top-level evaluation.
type Option func(*config)

// WithRegistry evaluates against an explicit operation registry instead
// of the shared default, isolating the call from global registrations.
func WithRegistry(r *Registry) Option {
	contract.Requiref(r != nil, "r", "registry must not be nil")
	return func(c *config) { c.registry = r }
}

// WithVars seeds the root scope with initial bindings, readable through S.
func WithVars(vars map[string]any) Option {
	return func(c *config) {
		if c.vars == nil {
			c.vars = map[string]any{}
		}
		for k, v := range vars {
			c.vars[k] = v
		}
	}
}

// WithMaxDepth overrides the spec recursion bound.
func WithMaxDepth(n int) Option {
	contract.Requiref(n > 0, "n", "max depth must be positive, got %d", n)
	return func(c *config) { c.maxDepth = n }
}

// WithDebug disables the trace-carrying error wrapper: failures come back
// as the raw domain error annotated with a native stack, for debugging
// the engine or an extension rather than the spec.
func WithDebug(enabled bool) Option {
	return func(c *config) { c.debug = enabled }
}

// Glom evaluates spec against target and returns the spec-shaped result.
// On failure it returns an *EvalError carrying the rendered target-spec
// trace, wrapping the first domain error raised.
func Glom(target, spec any) (any, error) {
	return GlomWith(target, spec)
}

// GlomWith is Glom with per-call options.
func GlomWith(target, spec any, opts ...Option) (any, error) {
	cfg := config{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	root := &Scope{
		target:   target,
		spec:     spec,
		mode:     autoMode,
		vars:     cfg.vars,
		globals:  map[string]any{},
		reg:      cfg.registry,
		maxDepth: cfg.maxDepth,
		debug:    cfg.debug,
	}
	res, err := root.Eval(target, spec)
	if err != nil {
		if cfg.debug {
			return nil, pkgerrors.WithStack(err)
		}
		return nil, &EvalError{cause: err, trace: renderTrace(root)}
	}
	return res, nil
}

// wildcardsEnabled gates expansion of literal * and ** path segments.
var wildcardsEnabled atomic.Bool

// EnableWildcards toggles expansion of literal "*" and "**" path
// segments. While disabled (the default), such segments act as plain keys
// and the first occurrence logs a warning. Expr.Star and Expr.DeepStar
// are always available regardless.
func EnableWildcards(on bool) {
	wildcardsEnabled.Store(on)
}

func starEnabled() bool { return wildcardsEnabled.Load() }
