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
	"strconv"
	"strings"
	"sync"

	"github.com/mahmoud/glom/internal/logging"
)

// Path is an access path built from plain segments, the dotted-text
// counterpart of an Expr chain. A path string is essentially a property
// access expression in which all elements are literals:
//
//	name        plain segment, split on '.'
//	[123]       integer index
//	["a.b"]     quoted segment (escaped quotes allowed), for keys
//	            containing '.' or '['
//	*, **       wildcard segments, when wildcard expansion is enabled
//
// Examples of valid paths:
//   - a.b.c
//   - a.2.c  (the segment "2" coerces to an index against sequences)
//   - a[2].c
//   - a["key with a ."].c
//   - a.*.c
type Path struct {
	expr *Expr
}

// NewPath builds a Path from parts: strings and ints become single
// segments verbatim (no dotted-text parsing), and Expr or Path parts
// splice in their steps. The first Expr part may carry any root; later
// ones must be target-rooted, and mixing roots fails here, at
// construction, rather than at evaluation.
func NewPath(parts ...any) (Path, error) {
	expr := T
	for i, part := range parts {
		switch p := part.(type) {
		case string, int:
			expr = expr.K(p)
		case *Expr:
			if i == 0 {
				expr = p
				continue
			}
			ext, err := Extend(expr, p)
			if err != nil {
				return Path{}, err
			}
			expr = ext
		case Path:
			if i == 0 {
				expr = p.expr
				continue
			}
			ext, err := Extend(expr, p.expr)
			if err != nil {
				return Path{}, err
			}
			expr = ext
		default:
			return Path{}, &BadSpecError{Spec: part,
				Msg: fmt.Sprintf("path segments must be strings, ints, Exprs or Paths, not %T", part)}
		}
	}
	return Path{expr: expr}, nil
}

// MustNewPath is NewPath, panicking on composition errors.
func MustNewPath(parts ...any) Path {
	p, err := NewPath(parts...)
	if err != nil {
		panic(err)
	}
	return p
}

// pathCache interns parsed path text. The cache is bounded: once full, new
// parses still succeed, they just are not retained.
var pathCache = struct {
	sync.RWMutex
	m   map[string]Path
	cap int
}{m: map[string]Path{}, cap: defaultPathCacheSize}

const defaultPathCacheSize = 10000

// SetPathCacheSize adjusts the bound on the parsed-path interning cache. A
// size of zero disables interning. Shrinking below the current population
// drops the whole cache.
func SetPathCacheSize(n int) {
	if n < 0 {
		panic(&BadSpecError{Msg: fmt.Sprintf("path cache size must be non-negative, got %d", n)})
	}
	pathCache.Lock()
	defer pathCache.Unlock()
	if n < len(pathCache.m) {
		pathCache.m = map[string]Path{}
	}
	pathCache.cap = n
}

// ParsePath parses dotted path text into an interned Path.
func ParsePath(text string) (Path, error) {
	pathCache.RLock()
	p, ok := pathCache.m[text]
	pathCache.RUnlock()
	if ok {
		return p, nil
	}
	p, err := parsePathUncached(text)
	if err != nil {
		return Path{}, err
	}
	pathCache.Lock()
	if len(pathCache.m) < pathCache.cap {
		pathCache.m[text] = p
	}
	pathCache.Unlock()
	return p, nil
}

// MustParsePath is ParsePath, panicking on malformed text. Intended for
// statically-known paths.
func MustParsePath(text string) Path {
	p, err := ParsePath(text)
	if err != nil {
		panic(err)
	}
	return p
}

var starWarning sync.Once

// parsePathUncached tokenizes path text into segments. Adjacent bracket
// groups need no separating dot; a dot before '[' is tolerated.
func parsePathUncached(text string) (Path, error) {
	expr := T
	addSegment := func(seg string) {
		if seg == "*" || seg == "**" {
			if starEnabled() {
				if seg == "*" {
					expr = expr.Star()
				} else {
					expr = expr.DeepStar()
				}
				return
			}
			starWarning.Do(func() {
				logging.Warnf("glom: wildcard segment %q found in path %q while wildcard "+
					"expansion is disabled; treating it as a literal key. Call "+
					"EnableWildcards(true) to expand it, or quote it to silence this warning.",
					seg, text)
			})
		}
		expr = expr.K(seg)
	}
	path := text
	if len(path) == 0 {
		return Path{}, errors.New("expected path to contain at least one segment")
	}
	if path[0] == '.' {
		return Path{}, errors.New("expected path to start with a segment, not '.'")
	}
	for len(path) > 0 {
		switch path[0] {
		case '.':
			path = path[1:]
			if len(path) == 0 {
				return Path{}, errors.New("expected path to end with a segment, not '.'")
			}
			if path[0] == '.' {
				return Path{}, errors.New("empty segment: consecutive '.' separators")
			}
		case '[':
			if len(path) > 1 && path[1] == '"' {
				var key []byte
				var i int
				for i = 2; ; {
					if i >= len(path) {
						return Path{}, errors.New("missing closing quote in path segment")
					} else if path[i] == '"' {
						i++
						break
					} else if path[i] == '\\' && i+1 < len(path) && path[i+1] == '"' {
						key = append(key, '"')
						i += 2
					} else {
						key = append(key, path[i])
						i++
					}
				}
				if i >= len(path) || path[i] != ']' {
					return Path{}, errors.New("missing closing bracket in path segment")
				}
				// quoted segments are always literal keys, even "*"
				expr = expr.K(string(key))
				path = path[i+1:]
			} else {
				rbracket := strings.IndexByte(path, ']')
				if rbracket == -1 {
					return Path{}, errors.New("missing closing bracket in path index")
				}
				segment := path[1:rbracket]
				if segment == "*" || segment == "**" {
					addSegment(segment)
				} else {
					index, err := strconv.Atoi(segment)
					if err != nil {
						return Path{}, fmt.Errorf("invalid path index %q: %w", segment, err)
					}
					expr = expr.K(index)
				}
				path = path[rbracket+1:]
			}
		default:
			i := 0
			for ; i < len(path); i++ {
				if path[i] == '.' || path[i] == '[' {
					break
				}
			}
			addSegment(path[:i])
			path = path[i:]
		}
	}
	return Path{expr: expr}, nil
}

// Len reports the number of steps.
func (p Path) Len() int {
	if p.expr == nil {
		return 0
	}
	return len(p.expr.steps)
}

// Slice returns a new Path over the step sub-range [start, stop). Negative
// indices count from the end. No target is touched: slicing operates on
// the step list alone.
func (p Path) Slice(start, stop int) Path {
	return p.SliceStep(start, stop, 1)
}

// SliceStep is Slice with an explicit stride, which may be negative to
// reverse the step order.
func (p Path) SliceStep(start, stop, step int) Path {
	if p.expr == nil {
		return Path{expr: T}
	}
	picked, err := sliceIndices(len(p.expr.steps), sliceBounds{Start: &start, Stop: &stop, Step: &step})
	if err != nil {
		panic(&BadSpecError{Msg: err.Error()})
	}
	steps := make([]exprStep, 0, len(picked))
	for _, i := range picked {
		steps = append(steps, p.expr.steps[i])
	}
	return Path{expr: &Expr{root: p.expr.root, steps: steps}}
}

// At returns the single-step Path at index i; negative indices count from
// the end.
func (p Path) At(i int) (Path, error) {
	n := p.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return Path{}, &BadSpecError{Msg: fmt.Sprintf("path index %d out of range for %d-step path", i, n)}
	}
	return Path{expr: &Expr{root: p.expr.root, steps: p.expr.steps[i : i+1 : i+1]}}, nil
}

// Expr returns the underlying expression chain.
func (p Path) Expr() *Expr {
	if p.expr == nil {
		return T
	}
	return p.expr
}

// Equal reports structural equality of the two paths' step lists.
func (p Path) Equal(o Path) bool { return p.Expr().Equal(o.Expr()) }

// Hash returns a structural hash consistent with Equal.
func (p Path) Hash() uint64 { return p.Expr().Hash() }

func (p Path) String() string {
	expr := p.Expr()
	var sb strings.Builder
	for i, st := range expr.steps {
		switch st.op {
		case opStar:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteByte('*')
		case opDeepStar:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString("**")
		case opItem, opAttr:
			switch a := st.arg.(type) {
			case int:
				fmt.Fprintf(&sb, "[%d]", a)
			case string:
				if strings.ContainsAny(a, ".[]\"") || a == "*" || a == "**" {
					fmt.Fprintf(&sb, "[%q]", a)
				} else {
					if i > 0 {
						sb.WriteByte('.')
					}
					sb.WriteString(a)
				}
			default:
				fmt.Fprintf(&sb, "[%s]", bbrepr(a))
			}
		default:
			// call and slice steps have no dotted-text form; fall back
			// to the expression rendering
			return expr.String()
		}
	}
	return sb.String()
}
