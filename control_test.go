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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceFirstSuccessWins(t *testing.T) {
	t.Parallel()

	target := map[string]any{"b": 2}

	got, err := Glom(target, Coalesce("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestCoalesceAggregatesBranchErrorsInOrder(t *testing.T) {
	t.Parallel()

	_, err := Glom(map[string]any{}, Coalesce("first", "second"))
	require.Error(t, err)

	var ce *CoalesceError
	require.True(t, errors.As(err, &ce))
	require.Len(t, ce.Errs, 2)
	assert.Contains(t, ce.Errs[0].Error(), "first")
	assert.Contains(t, ce.Errs[1].Error(), "second")

	// individual branch errors stay reachable through the chain
	var pae *PathAccessError
	assert.True(t, errors.As(ce.Unwrap(), &pae))
}

func TestCoalesceDefault(t *testing.T) {
	t.Parallel()

	got, err := Glom(map[string]any{}, Coalesce("missing").Default(0))
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = Glom(map[string]any{}, Coalesce("missing").DefaultFactory(func() any {
		return map[string]any{}
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)
}

func TestCoalesceSkipIf(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": "", "b": "real"}

	got, err := Glom(target, Coalesce("a", "b").SkipIf(func(v any) bool {
		return v == ""
	}))
	require.NoError(t, err)
	assert.Equal(t, "real", got)
}

func TestCoalesceSkipSentinel(t *testing.T) {
	t.Parallel()

	got, err := Glom(1, Coalesce(Val(Skip), Val("used")))
	require.NoError(t, err)
	assert.Equal(t, "used", got)
}

func TestCoalesceNonDomainErrorPropagatesImmediately(t *testing.T) {
	t.Parallel()

	boom := errors.New("infrastructure failure")
	spec := Coalesce(func(any) (any, error) { return nil, boom }, Val("never"))

	_, err := Glom(1, spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	target := map[string]any{"name": "kurt"}

	got, err := Glom(target, Invoke(strings.ToUpper, T.K("name")))
	require.NoError(t, err)
	assert.Equal(t, "KURT", got)

	// strings are literal in argument position
	got, err = Glom(target, Invoke(strings.Repeat, "ab", 2))
	require.NoError(t, err)
	assert.Equal(t, "abab", got)
}

func TestInspectEchoesAndPassesThrough(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	target := map[string]any{"a": 1}

	got, err := Glom(target, Inspect("a").WriteTo(&buf))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Contains(t, buf.String(), "target:")
	assert.Contains(t, buf.String(), "output: 1")
}

func TestLetBindingShadowsOuter(t *testing.T) {
	t.Parallel()

	spec := Let("x", Val("outer")).In(
		Let("x", Val("inner")).In(S.K("x")),
	)
	got, err := Glom(nil, spec)
	require.NoError(t, err)
	assert.Equal(t, "inner", got)
}

func TestSetGlobalVisibleToLaterSiblings(t *testing.T) {
	t.Parallel()

	target := map[string]any{"id": 7, "rows": []any{map[string]any{"v": 1}}}

	spec := Chain{
		SetGlobal("id", "id"),
		"rows",
		Each(map[string]any{"v": "v", "owner": G.K("id")}),
	}
	got, err := Glom(target, spec)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"v": 1, "owner": 7}}, got)
}

func TestRefRecursion(t *testing.T) {
	t.Parallel()

	tree := map[string]any{
		"val": 1,
		"kids": []any{
			map[string]any{"val": 2, "kids": []any{}},
			map[string]any{"val": 3, "kids": []any{
				map[string]any{"val": 4, "kids": []any{}},
			}},
		},
	}

	spec := Ref("node", map[string]any{
		"v":    "val",
		"kids": Chain{"kids", Each(Ref("node"))},
	})

	got, err := Glom(tree, spec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"v": 1,
		"kids": []any{
			map[string]any{"v": 2, "kids": []any{}},
			map[string]any{"v": 3, "kids": []any{
				map[string]any{"v": 4, "kids": []any{}},
			}},
		},
	}, got)
}

func TestBareRefWithoutBindingFails(t *testing.T) {
	t.Parallel()

	_, err := Glom(1, Ref("nowhere"))
	require.Error(t, err)

	var bse *BadSpecError
	require.True(t, errors.As(err, &bse))
	assert.Contains(t, bse.Error(), `"nowhere"`)

	assert.Panics(t, func() { Ref("too", 1, 2) })
}

func TestFillModeTemplates(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": 1, "b": 2}

	// strings are literal in fill mode; expressions still resolve
	got, err := Glom(target, Fill(map[string]any{
		"lit":  "a",
		"got":  T.K("a"),
		"both": []any{T.K("b"), "x"},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"lit":  "a",
		"got":  1,
		"both": []any{2, "x"},
	}, got)
}

func TestFillModeEvaluatesKeys(t *testing.T) {
	t.Parallel()

	got, err := Glom(map[string]any{"k": "name"}, Fill(map[any]any{
		T.K("k"): T.K("k"),
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "name"}, got)
}

func TestFillModeRejectsUncomparableKey(t *testing.T) {
	t.Parallel()

	target := map[string]any{"xs": []any{1, 2}}
	_, err := Glom(target, Fill(map[any]any{T.K("xs"): "v"}))
	require.Error(t, err)
	var bse *BadSpecError
	require.True(t, errors.As(err, &bse))
}

func TestFillModePersistsUntilAuto(t *testing.T) {
	t.Parallel()

	// nested containers stay templates; Auto switches back to path specs
	got, err := Glom(map[string]any{"a": 1}, Fill([]any{"a", Auto("a")}))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", 1}, got)
}
