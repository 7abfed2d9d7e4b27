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

// Mode is the active interpretation function for specs that are not
// extension objects. The default mode implements the standard dispatch;
// Match and Fill install alternates that stay active until a descendant
// overrides them or the installing spec returns.
type Mode func(target, spec any, scope *Scope) (any, error)

// Scope is the per-step evaluation context: one frame per recursive
// sub-evaluation, linked to its parent. A frame carries the current target
// and spec, the path segment it added, the active mode, and local
// bindings. Binding reads walk the parent chain; binding writes always
// land locally, except through SetGlobal, which mutates the one shared
// namespace created for the whole top-level call.
//
// Scopes are not safe for concurrent use, and never need to be: each
// top-level call owns its own chain.
type Scope struct {
	parent *Scope
	target any
	spec   any

	seg    any // path segment this frame added, when hasSeg
	hasSeg bool

	mode Mode
	vars map[string]any // local bindings, allocated on first write

	// shared, identical on every frame of one top-level call
	globals  map[string]any
	reg      *Registry
	maxDepth int
	debug    bool

	depth int

	// failure bookkeeping for trace rendering
	lastChild *Scope
	branches  []*Scope // failed direct children, in evaluation order
	err       error
}

// Target returns the value this frame is evaluating against.
func (s *Scope) Target() any { return s.target }

// Spec returns the spec this frame is evaluating.
func (s *Scope) Spec() any { return s.spec }

// Parent returns the frame this one descends from, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Mode returns the active interpretation function.
func (s *Scope) Mode() Mode { return s.mode }

// SetMode installs an alternate interpretation for this frame and,
// through inheritance, its descendants.
func (s *Scope) SetMode(m Mode) { s.mode = m }

// Registry returns the operation registry for this call.
func (s *Scope) Registry() *Registry { return s.reg }

func (s *Scope) registry() *Registry {
	if s.reg == nil {
		return DefaultRegistry()
	}
	return s.reg
}

// Path returns the accumulated path segments from the root down to this
// frame.
func (s *Scope) Path() []any {
	var segs []any
	for cur := s; cur != nil; cur = cur.parent {
		if cur.hasSeg {
			segs = append(segs, cur.seg)
		}
	}
	// collected leaf-first; reverse into root-first order
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs
}

// Let binds name to value in this frame. The binding shadows any
// same-named binding in an ancestor and is visible to descendants only:
// sibling frames never observe it.
func (s *Scope) Let(name string, value any) {
	if s.vars == nil {
		s.vars = map[string]any{}
	}
	s.vars[name] = value
}

// Lookup reads the nearest binding for name, walking the parent chain.
func (s *Scope) Lookup(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.vars != nil {
			if v, ok := cur.vars[name]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Globals returns the shared namespace for this top-level call. It is one
// mutable map, referenced (never copied) by every frame, so a write from
// any frame is visible to all of them, past or future, until the call
// returns.
func (s *Scope) Globals() map[string]any { return s.globals }

// SetGlobal writes into the shared namespace.
func (s *Scope) SetGlobal(name string, value any) { s.globals[name] = value }

func (s *Scope) boundNames() []any {
	seen := map[string]bool{}
	var names []any
	for cur := s; cur != nil; cur = cur.parent {
		for k := range cur.vars {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

// child opens a new frame under s for one recursive sub-evaluation.
func (s *Scope) child(target, spec any, seg any, hasSeg bool) *Scope {
	return &Scope{
		parent:   s,
		target:   target,
		spec:     spec,
		seg:      seg,
		hasSeg:   hasSeg,
		mode:     s.mode,
		globals:  s.globals,
		reg:      s.reg,
		maxDepth: s.maxDepth,
		debug:    s.debug,
		depth:    s.depth + 1,
	}
}

// Eval recursively evaluates spec against target in a fresh child frame.
// This is the entry point extension objects use for their sub-evaluations.
func (s *Scope) Eval(target, spec any) (any, error) {
	return s.evalChild(s.child(target, spec, nil, false))
}

// EvalAt is Eval with the accumulated path extended by seg.
func (s *Scope) EvalAt(seg any, target, spec any) (any, error) {
	return s.evalChild(s.child(target, spec, seg, true))
}

func (s *Scope) evalChild(child *Scope) (any, error) {
	res, err := evaluate(child.target, child.spec, child)
	s.lastChild = child
	if err != nil {
		child.err = err
		s.branches = append(s.branches, child)
	}
	return res, err
}
