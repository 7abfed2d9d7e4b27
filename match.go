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
	"regexp"
	"sort"

	"github.com/spf13/cast"
)

// MatchSpec validates the target against a pattern. See Match.
type MatchSpec struct {
	pattern any
	def     any
	hasDef  bool
}

// Match installs match interpretation for its subtree: the pattern is
// checked against the target rather than used to build a value. Inside a
// Match, reflect.Types check the target's dynamic type, container
// literals describe required shape, functions act as predicates, and
// everything else (strings included) compares for equality. A successful
// match returns the matched value; a failed one raises a MatchError,
// TypeMatchError, or missing-required-key error.
func Match(pattern any) *MatchSpec { return &MatchSpec{pattern: pattern} }

// Default returns v instead of raising when the pattern does not match.
func (m *MatchSpec) Default(v any) *MatchSpec {
	out := *m
	out.def, out.hasDef = v, true
	return &out
}

// Glomit implements Glomiter.
func (m *MatchSpec) Glomit(target any, scope *Scope) (any, error) {
	scope.SetMode(matchMode)
	res, err := scope.Eval(target, m.pattern)
	if err != nil {
		if m.hasDef && IsGlomError(err) {
			return m.def, nil
		}
		return nil, err
	}
	return res, nil
}

func (m *MatchSpec) String() string { return fmt.Sprintf("Match(%s)", bbrepr(m.pattern)) }

// matchMode is the inverted interpretation: specs describe required
// shape. Conjunction short-circuits on the first failure; disjunction
// tries every branch before failing.
func matchMode(target, pattern any, scope *Scope) (any, error) {
	switch pt := pattern.(type) {
	case reflect.Type:
		return matchType(target, pt)
	case Chain:
		// a pipeline keeps its meaning inside a match; use And for
		// conjunction
		return evalChainSpec(target, pt, scope)
	case *EachSpec:
		return evalEachSpec(target, pt, scope)
	case nil:
		if target == nil {
			return nil, nil
		}
		return nil, matchErrorf(ValueMismatch, "%s does not match nil", target)
	}

	rv := reflect.ValueOf(pattern)
	switch rv.Kind() {
	case reflect.Map:
		return matchRecord(target, rv, scope)
	case reflect.Slice, reflect.Array:
		return matchList(target, rv, scope)
	case reflect.Func:
		return matchPredicate(target, pattern)
	}
	if equalValues(target, pattern) {
		return target, nil
	}
	return nil, matchErrorf(ValueMismatch, "%s does not match %s", target, pattern)
}

func matchType(target any, want reflect.Type) (any, error) {
	actual := reflect.TypeOf(target)
	if actual == nil {
		return nil, &TypeMatchError{Expected: want, Actual: nil}
	}
	if actual == want {
		return target, nil
	}
	if want.Kind() == reflect.Interface && actual.Implements(want) {
		return target, nil
	}
	return nil, &TypeMatchError{Expected: want, Actual: actual}
}

func matchPredicate(target any, pred any) (any, error) {
	res, err := invokeCallable(pred, target)
	if err != nil {
		if IsGlomError(err) {
			return nil, err
		}
		return nil, matchErrorf(ValueMismatch, "predicate %s rejected %s: %s", fmt.Sprintf("%T", pred), target, err)
	}
	if truthy(res) {
		return target, nil
	}
	return nil, matchErrorf(ValueMismatch, "predicate %s rejected %s", fmt.Sprintf("%T", pred), target)
}

// Optional marks a record-pattern key as not required. Literal keys are
// required by default; wrapping one in Optional relaxes that, and a
// Default supplies the value filled in when the key is absent.
type Optional struct {
	Key     any
	Default any
	hasDef  bool
}

// Opt wraps a record-pattern key as optional.
func Opt(key any) Optional { return Optional{Key: key} }

// OptDefault wraps a record-pattern key as optional with a default filled
// into the result when the key is absent from the target.
func OptDefault(key, def any) Optional { return Optional{Key: key, Default: def, hasDef: true} }

// Required marks a record-pattern key as required. Type and predicate
// keys are optional by default; wrapping one in Required means at least
// one target key must satisfy it.
type Required struct {
	Key any
}

// Req wraps a record-pattern key as required.
func Req(key any) Required { return Required{Key: key} }

// anySpec matches any value in match mode and passes the target through
// in every other mode.
type anySpec struct{}

// Glomit implements Glomiter.
func (anySpec) Glomit(target any, _ *Scope) (any, error) { return target, nil }

func (anySpec) String() string { return "Any" }

// Any is the catch-all pattern: it matches every value. As a record
// pattern key it accepts otherwise-uncovered keys.
var Any = anySpec{}

type recordEntry struct {
	keyPat   any
	valPat   any
	required bool
	def      any
	hasDef   bool
	consumed bool
}

// keyPrecedence orders record-pattern keys from most to least specific: a
// target key that several pattern keys accept goes to the earliest tier.
// Exact literals first, then extension/predicate keys, then types, with
// the catch-all last.
func keyPrecedence(keyPat any) int {
	switch keyPat.(type) {
	case anySpec:
		return 3
	case reflect.Type:
		return 2
	case Glomiter:
		return 1
	}
	if keyPat != nil && reflect.TypeOf(keyPat).Kind() == reflect.Func {
		return 1
	}
	return 0
}

func matchRecord(target any, specRV reflect.Value, scope *Scope) (any, error) {
	trv := deref(reflect.ValueOf(target))
	if trv.Kind() != reflect.Map {
		return nil, &TypeMatchError{Expected: specRV.Type(), Actual: reflect.TypeOf(target)}
	}

	entries := make([]*recordEntry, 0, specRV.Len())
	it := specRV.MapRange()
	for it.Next() {
		raw := it.Key().Interface()
		e := &recordEntry{valPat: it.Value().Interface()}
		switch k := raw.(type) {
		case Optional:
			e.keyPat, e.def, e.hasDef = k.Key, k.Default, k.hasDef
		case Required:
			e.keyPat, e.required = k.Key, true
		default:
			e.keyPat = raw
			// exact literals are required unless marked Optional
			e.required = keyPrecedence(raw) == 0
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := keyPrecedence(entries[i].keyPat), keyPrecedence(entries[j].keyPat)
		if pi != pj {
			return pi < pj
		}
		return bbrepr(entries[i].keyPat) < bbrepr(entries[j].keyPat)
	})

	targetKeys, err := defaultKeys(target)
	if err != nil {
		return nil, matchErrorf(ValueMismatch, "cannot enumerate keys of %s", target)
	}

	out := map[any]any{}
	stringKeys := true
	for _, k := range targetKeys {
		tv, gerr := mapGet(trv, k)
		if gerr != nil {
			return nil, gerr
		}
		matched := false
		for _, e := range entries {
			mk, kerr := scope.Eval(k, e.keyPat)
			if kerr != nil {
				if !IsGlomError(kerr) {
					return nil, kerr
				}
				continue
			}
			mv, verr := scope.EvalAt(k, tv, e.valPat)
			if verr != nil {
				return nil, verr
			}
			e.consumed = true
			matched = true
			if _, ok := mk.(string); !ok {
				stringKeys = false
			}
			out[mk] = mv
			break
		}
		if !matched {
			return nil, matchErrorf(ValueMismatch, "key %s didn't match any of %s", k, specRV.Interface())
		}
	}

	var missing []string
	for _, e := range entries {
		if e.consumed {
			continue
		}
		if e.hasDef {
			if e.keyPat == nil || !reflect.TypeOf(e.keyPat).Comparable() {
				continue
			}
			if _, ok := e.keyPat.(string); !ok {
				stringKeys = false
			}
			out[e.keyPat] = e.def
			continue
		}
		if e.required {
			missing = append(missing, bbrepr(e.keyPat))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, matchErrorf(MissingRequiredKey, "target missing expected keys: %s", joinStrings(missing))
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

// matchList checks that every target element matches at least one of the
// pattern's elements, trying them in declared order.
func matchList(target any, specRV reflect.Value, scope *Scope) (any, error) {
	iterate, err := scope.registry().iterateFunc(target, scope)
	if err != nil {
		return nil, &TypeMatchError{Expected: specRV.Type(), Actual: reflect.TypeOf(target)}
	}
	seq, err := iterate(target)
	if err != nil {
		return nil, err
	}
	out := []any{}
	i := -1
	for el := range seq {
		i++
		if specRV.Len() == 0 {
			return nil, matchErrorf(ValueMismatch, "%s does not match an empty list pattern", target)
		}
		var lastErr error
		matched := false
		for j := 0; j < specRV.Len(); j++ {
			res, merr := scope.EvalAt(i, el, specRV.Index(j).Interface())
			if merr == nil {
				out = append(out, res)
				matched = true
				break
			}
			if !IsGlomError(merr) {
				return nil, merr
			}
			lastErr = merr
		}
		if !matched {
			return nil, lastErr
		}
	}
	return out, nil
}

// AndSpec is the conjunction pattern. See And.
type AndSpec struct {
	specs []any
}

// And requires every sub-pattern to match, short-circuiting on the first
// failure. The target passes through on success.
func And(specs ...any) *AndSpec { return &AndSpec{specs: specs} }

// Glomit implements Glomiter.
func (a *AndSpec) Glomit(target any, scope *Scope) (any, error) {
	for _, s := range a.specs {
		if _, err := scope.Eval(target, s); err != nil {
			return nil, err
		}
	}
	return target, nil
}

func (a *AndSpec) String() string { return fmt.Sprintf("And(%s)", joinTrunc(reprAll(a.specs))) }

// OrSpec is the disjunction pattern. See Or.
type OrSpec struct {
	specs []any
}

// Or tries every sub-pattern in declared order and returns the first
// success. When all of them fail, the aggregate error enumerates each
// branch's error in order.
func Or(specs ...any) *OrSpec { return &OrSpec{specs: specs} }

// Glomit implements Glomiter.
func (o *OrSpec) Glomit(target any, scope *Scope) (any, error) {
	errs := make([]error, 0, len(o.specs))
	for _, s := range o.specs {
		res, err := scope.Eval(target, s)
		if err == nil {
			return res, nil
		}
		if !IsGlomError(err) {
			return nil, err
		}
		errs = append(errs, err)
	}
	return nil, &CoalesceError{Specs: o.specs, Errs: errs, Target: target, Path: scope.Path()}
}

func (o *OrSpec) String() string { return fmt.Sprintf("Or(%s)", joinTrunc(reprAll(o.specs))) }

// NotSpec inverts a pattern. See Not.
type NotSpec struct {
	spec any
}

// Not succeeds when its sub-pattern fails, and vice versa.
func Not(spec any) *NotSpec { return &NotSpec{spec: spec} }

// Glomit implements Glomiter.
func (n *NotSpec) Glomit(target any, scope *Scope) (any, error) {
	if _, err := scope.Eval(target, n.spec); err != nil {
		if IsGlomError(err) {
			return target, nil
		}
		return nil, err
	}
	return nil, matchErrorf(ValueMismatch, "%s unexpectedly matched %s", target, n.spec)
}

func (n *NotSpec) String() string { return fmt.Sprintf("Not(%s)", bbrepr(n.spec)) }

type cmpOp int

const (
	cmpNone cmpOp = iota
	cmpEq
	cmpNe
	cmpGt
	cmpGte
	cmpLt
	cmpLte
)

var cmpNames = map[cmpOp]string{
	cmpEq: "==", cmpNe: "!=", cmpGt: ">", cmpGte: ">=", cmpLt: "<", cmpLte: "<=",
}

// MSpec is a comparison pattern over the target or a sub-expression of
// it. See M.
type MSpec struct {
	expr    *Expr
	op      cmpOp
	operand any
}

// M is the expression-predicate pattern. Bare M requires a truthy target;
// the comparison methods refine it:
//
//	glom.M.Gt(10)                    // target > 10
//	glom.M.At(glom.T.K("age")).Gte(21) // target["age"] >= 21
var M = &MSpec{expr: T}

// At refocuses the comparison on a target-rooted sub-expression.
func (m *MSpec) At(e *Expr) *MSpec {
	out := *m
	out.expr = e
	return &out
}

func (m *MSpec) cmp(op cmpOp, v any) *MSpec {
	out := *m
	out.op, out.operand = op, v
	return &out
}

// Eq matches when the focused value equals v.
func (m *MSpec) Eq(v any) *MSpec { return m.cmp(cmpEq, v) }

// Ne matches when the focused value differs from v.
func (m *MSpec) Ne(v any) *MSpec { return m.cmp(cmpNe, v) }

// Gt matches when the focused value is greater than v.
func (m *MSpec) Gt(v any) *MSpec { return m.cmp(cmpGt, v) }

// Gte matches when the focused value is at least v.
func (m *MSpec) Gte(v any) *MSpec { return m.cmp(cmpGte, v) }

// Lt matches when the focused value is less than v.
func (m *MSpec) Lt(v any) *MSpec { return m.cmp(cmpLt, v) }

// Lte matches when the focused value is at most v.
func (m *MSpec) Lte(v any) *MSpec { return m.cmp(cmpLte, v) }

// Glomit implements Glomiter.
func (m *MSpec) Glomit(target any, scope *Scope) (any, error) {
	v, err := m.expr.resolve(target, scope)
	if err != nil {
		return nil, err
	}
	if m.op == cmpNone {
		if truthy(v) {
			return target, nil
		}
		return nil, matchErrorf(ValueMismatch, "%s is not truthy", v)
	}
	ok, err := compareValues(v, m.operand, m.op)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, matchErrorf(ValueMismatch, "%s is not %s %s", v, cmpNames[m.op], m.operand)
	}
	return target, nil
}

func (m *MSpec) String() string {
	if m.op == cmpNone {
		if m.expr.Len() == 0 {
			return "M"
		}
		return fmt.Sprintf("M.At(%s)", m.expr)
	}
	return fmt.Sprintf("M.At(%s) %s %s", m.expr, cmpNames[m.op], bbrepr(m.operand))
}

// compareValues compares loosely: numerics compare as numbers across
// widths, strings lexically, and anything else supports only equality.
func compareValues(a, b any, op cmpOp) (bool, error) {
	af, aerr := cast.ToFloat64E(a)
	bf, berr := cast.ToFloat64E(b)
	if aerr == nil && berr == nil {
		switch op {
		case cmpEq:
			return af == bf, nil
		case cmpNe:
			return af != bf, nil
		case cmpGt:
			return af > bf, nil
		case cmpGte:
			return af >= bf, nil
		case cmpLt:
			return af < bf, nil
		case cmpLte:
			return af <= bf, nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case cmpEq:
			return as == bs, nil
		case cmpNe:
			return as != bs, nil
		case cmpGt:
			return as > bs, nil
		case cmpGte:
			return as >= bs, nil
		case cmpLt:
			return as < bs, nil
		case cmpLte:
			return as <= bs, nil
		}
	}
	switch op {
	case cmpEq:
		return equalValues(a, b), nil
	case cmpNe:
		return !equalValues(a, b), nil
	}
	return false, matchErrorf(TypeMismatch, "cannot order %s against %s", a, b)
}

// RegexSpec matches strings against a compiled pattern. See Regex.
type RegexSpec struct {
	re *regexp.Regexp
}

// Regex builds a string pattern; the expression compiles at construction
// and a malformed one panics, like regexp.MustCompile.
func Regex(pattern string) *RegexSpec {
	return &RegexSpec{re: regexp.MustCompile(pattern)}
}

// Glomit implements Glomiter.
func (r *RegexSpec) Glomit(target any, _ *Scope) (any, error) {
	s, ok := target.(string)
	if !ok {
		return nil, &TypeMatchError{Expected: reflect.TypeOf(""), Actual: reflect.TypeOf(target)}
	}
	if !r.re.MatchString(s) {
		return nil, matchErrorf(ValueMismatch, "%s does not match pattern %s", s, r.re.String())
	}
	return target, nil
}

func (r *RegexSpec) String() string { return fmt.Sprintf("Regex(%q)", r.re.String()) }

// SwitchCase pairs a pattern with the spec evaluated when it matches.
type SwitchCase struct {
	When any
	Then any
}

// SwitchSpec routes evaluation by the first matching case. See Switch.
type SwitchSpec struct {
	cases  []SwitchCase
	def    any
	hasDef bool
}

// Switch checks the target against each case's When pattern in order and
// evaluates the first matching case's Then spec. With no matching case,
// the Default applies, or a MatchError is raised.
func Switch(cases ...SwitchCase) *SwitchSpec { return &SwitchSpec{cases: cases} }

// Default supplies the spec evaluated when no case matches.
func (s *SwitchSpec) Default(spec any) *SwitchSpec {
	out := *s
	out.def, out.hasDef = spec, true
	return &out
}

// Glomit implements Glomiter.
func (s *SwitchSpec) Glomit(target any, scope *Scope) (any, error) {
	for _, c := range s.cases {
		if _, err := scope.Eval(target, Match(c.When)); err != nil {
			if !IsGlomError(err) {
				return nil, err
			}
			continue
		}
		return scope.Eval(target, c.Then)
	}
	if s.hasDef {
		return scope.Eval(target, s.def)
	}
	return nil, matchErrorf(ValueMismatch, "no case matched %s", target)
}

func (s *SwitchSpec) String() string { return fmt.Sprintf("Switch(%d cases)", len(s.cases)) }

// equalValues is deep equality that never panics on uncomparable types.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		if a == b {
			return true
		}
	}
	return reflect.DeepEqual(a, b)
}

// truthy follows the usual dynamic-language convention: zero values,
// empty strings and empty containers are false, everything else true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

func reprAll(specs []any) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = bbrepr(s)
	}
	return out
}
