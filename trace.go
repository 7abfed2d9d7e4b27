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
	"strings"
	"unicode/utf8"
)

// traceLineWidth bounds how long a single rendered trace line may grow;
// targets are routinely huge and the trace is for orientation, not dumps.
const traceLineWidth = 110

// bbrepr renders an arbitrary value for traces and error messages:
// strings quoted, everything else in %v form, truncated to a sane width.
func bbrepr(v any) string {
	var s string
	switch vv := v.(type) {
	case nil:
		s = "nil"
	case string:
		s = fmt.Sprintf("%q", vv)
	case fmt.Stringer:
		s = vv.String()
	case reflect.Type:
		s = vv.String()
	default:
		s = fmt.Sprintf("%v", vv)
	}
	return truncate(s, traceLineWidth)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	// never split a multi-byte rune
	cut := width - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// renderPathSegments renders accumulated scope path segments in dotted
// form, for error context lines.
func renderPathSegments(segs []any) string {
	parts := make([]string, len(segs))
	for i, seg := range segs {
		switch s := seg.(type) {
		case string:
			parts[i] = s
		default:
			parts[i] = fmt.Sprint(seg)
		}
	}
	return strings.Join(parts, ".")
}

// renderTrace walks the failed evaluation's scope tree into the alternating
// target/spec trace. A frame is printed only when its value changed from
// the previous same-role frame; branching frames (those with several failed
// children) indent one block per alternative, each terminated by that
// branch's own error.
func renderTrace(root *Scope) string {
	var sb strings.Builder
	var prevTarget, prevSpec any
	havePrevTarget := false
	renderFrames(&sb, root, " ", &prevTarget, &prevSpec, &havePrevTarget)
	return strings.TrimRight(sb.String(), "\n")
}

func renderFrames(sb *strings.Builder, s *Scope, indent string, prevTarget, prevSpec *any, havePrevTarget *bool) {
	for cur := s; cur != nil; {
		if !*havePrevTarget || !sameValue(*prevTarget, cur.target) {
			fmt.Fprintf(sb, "%s- Target: %s\n", indent, bbrepr(cur.target))
			*prevTarget = cur.target
			*havePrevTarget = true
		}
		if !sameValue(*prevSpec, cur.spec) {
			fmt.Fprintf(sb, "%s- Spec: %s\n", indent, bbrepr(cur.spec))
			*prevSpec = cur.spec
		}

		if len(cur.branches) > 1 {
			for i, br := range cur.branches {
				fmt.Fprintf(sb, "%s|\\ branch %d\n", indent, i)
				brTarget, brSpec := *prevTarget, *prevSpec
				haveBr := *havePrevTarget
				renderFrames(sb, br, indent+"| ", &brTarget, &brSpec, &haveBr)
				if br.err != nil {
					fmt.Fprintf(sb, "%s|  %s: %s\n", indent, errorTypeName(br.err), truncate(br.err.Error(), traceLineWidth))
				}
			}
			return
		}

		next := cur.lastChild
		if next == nil || next.err == nil {
			return
		}
		cur = next
	}
}

// sameValue compares trace frame values cheaply and safely: identity-ish
// for comparable values, pointer identity semantics preserved, and no
// panics on uncomparable types.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	switch reflect.ValueOf(a).Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
