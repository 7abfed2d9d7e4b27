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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParsePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		len  int
	}{
		{"a", 1},
		{"a.b.c", 3},
		{`a["b.c"]`, 2},
		{"a[0].b", 3},
		{"a[-1]", 2},
	}
	for _, c := range cases {
		c := c
		t.Run(c.text, func(t *testing.T) {
			t.Parallel()
			p, err := ParsePath(c.text)
			require.NoError(t, err)
			assert.Equal(t, c.len, p.Len())
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "a..b", `a["unterminated`, "a[", "a[]"} {
		_, err := ParsePath(text)
		assert.Error(t, err, "expected %q to fail", text)
	}
}

func TestPathRoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		segs := rapid.SliceOfN(rapid.StringMatching(`[a-z][a-z0-9_]{0,7}`), 1, 5).Draw(rt, "segs")
		text := strings.Join(segs, ".")

		p, err := ParsePath(text)
		require.NoError(rt, err)
		assert.Equal(rt, len(segs), p.Len())
		assert.Equal(rt, text, p.String())

		// parsing the rendered form is a fixed point
		p2, err := ParsePath(p.String())
		require.NoError(rt, err)
		assert.True(rt, p.Equal(p2))
		assert.Equal(rt, p.Hash(), p2.Hash())
	})
}

func TestPathFullSliceResolvesIdentically(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		segs := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 1, 5).Draw(rt, "segs")

		// build a nested target along the generated segments
		leaf := rapid.Int().Draw(rt, "leaf")
		var target any = leaf
		for i := len(segs) - 1; i >= 0; i-- {
			target = map[string]any{segs[i]: target}
		}

		p := MustParsePath(strings.Join(segs, "."))

		whole, err := Glom(target, p)
		require.NoError(rt, err)

		sliced, err := Glom(target, p.Slice(0, p.Len()))
		require.NoError(rt, err)

		assert.Equal(rt, whole, sliced)
		assert.Equal(rt, leaf, whole)
	})
}

func TestPathInterning(t *testing.T) {
	t.Parallel()

	p1 := MustParsePath("a.b.c")
	p2 := MustParsePath("a.b.c")
	assert.True(t, p1.Equal(p2))
}

func TestNewPathFromParts(t *testing.T) {
	t.Parallel()

	p, err := NewPath("a", 0, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	// segments are verbatim, never re-parsed
	p, err = NewPath("a.b")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	// splicing another path keeps its steps
	base := MustParsePath("x.y")
	p, err = NewPath(base, "z")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
}

func TestPathSliceAndAt(t *testing.T) {
	t.Parallel()

	p := MustParsePath("a.b.c.d")

	assert.Equal(t, 2, p.Slice(1, 3).Len())

	at, err := p.At(1)
	require.NoError(t, err)
	assert.Equal(t, "b", at.String())

	at, err = p.At(-1)
	require.NoError(t, err)
	assert.Equal(t, "d", at.String())

	_, err = p.At(9)
	assert.Error(t, err)
}

func TestPathQuotedSegmentIsAlwaysLiteral(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{"*": "star-value"}}
	got, err := Glom(target, `a["*"]`)
	require.NoError(t, err)
	assert.Equal(t, "star-value", got)
}

func TestExprBuildersAndString(t *testing.T) {
	t.Parallel()

	e := T.K("a").Idx(2).Attr("Name")
	assert.Equal(t, 3, e.Len())
	assert.Equal(t, `T["a"][2].Name`, e.String())

	assert.Equal(t, "S", S.String())
	assert.Equal(t, `S["globals"]`, G.String())
}

func TestExprImmutability(t *testing.T) {
	t.Parallel()

	base := T.K("a")
	left := base.K("b")
	right := base.K("c")

	assert.Equal(t, `T["a"]["b"]`, left.String())
	assert.Equal(t, `T["a"]["c"]`, right.String())
	assert.Equal(t, `T["a"]`, base.String())
}

func TestExprEqualAndHash(t *testing.T) {
	t.Parallel()

	a := T.K("x").Idx(1)
	b := T.K("x").Idx(1)
	c := T.K("x").Idx(2)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(S.K("x").Idx(1)))
}

func TestExtend(t *testing.T) {
	t.Parallel()

	ext, err := Extend(T.K("a"), T.K("b"))
	require.NoError(t, err)
	assert.Equal(t, `T["a"]["b"]`, ext.String())

	_, err = Extend(T.K("a"), S.K("b"))
	assert.Error(t, err)

	assert.Panics(t, func() { MustExtend(T, S.K("x")) })
}

func TestExprNegativeIndex(t *testing.T) {
	t.Parallel()

	got, err := Glom([]any{"a", "b", "c"}, T.Idx(-1))
	require.NoError(t, err)
	assert.Equal(t, "c", got)
}

func TestExprRangeSlicing(t *testing.T) {
	t.Parallel()

	nums := []any{0, 1, 2, 3, 4, 5}

	got, err := Glom(nums, T.Range(1, 4))
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, got)

	got, err = Glom(nums, T.Range(-2, End))
	require.NoError(t, err)
	assert.Equal(t, []any{4, 5}, got)

	got, err = Glom(nums, T.RangeStep(0, End, 2))
	require.NoError(t, err)
	assert.Equal(t, []any{0, 2, 4}, got)

	got, err = Glom(nums, T.RangeStep(End, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, []any{5, 4, 3, 2, 1}, got)

	assert.Panics(t, func() { T.RangeStep(0, 1, 0) })
}

func TestExprStringSlicing(t *testing.T) {
	t.Parallel()

	got, err := Glom("hello", T.Range(1, 3))
	require.NoError(t, err)
	assert.Equal(t, "el", got)
}

func TestExprCall(t *testing.T) {
	t.Parallel()

	target := map[string]any{
		"double": func(v any) any { return v.(int) * 2 },
		"n":      21,
	}

	got, err := Glom(target, T.K("double").Call(T.K("n")))
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	// non-spec args pass through as literals
	got, err = Glom(target, T.K("double").Call(5))
	require.NoError(t, err)
	assert.Equal(t, 10, got)
}

func TestExprStarFanOut(t *testing.T) {
	t.Parallel()

	target := map[string]any{
		"a": map[string]any{"v": 1},
		"b": map[string]any{"v": 2},
		"c": "scalar",
	}

	// children the tail can't reach are dropped, not errors
	got, err := Glom(target, T.Star().K("v"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{1, 2}, got)
}

func TestExprDeepStarFanOut(t *testing.T) {
	t.Parallel()

	target := map[string]any{
		"top": map[string]any{
			"mid": map[string]any{"leaf": 1},
		},
	}

	got, err := Glom(target, T.DeepStar().K("leaf"))
	require.NoError(t, err)
	assert.Equal(t, []any{1}, got)
}

func TestScopeRootedExpr(t *testing.T) {
	t.Parallel()

	got, err := Glom(nil, Let("who", Val("world")).In(S.K("who")))
	require.NoError(t, err)
	assert.Equal(t, "world", got)

	// unknown binding names the candidates
	_, err = Glom(nil, Let("who", Val("world")).In(S.K("wha")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no binding named "wha"`)
}
