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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignIntoMap(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{"b": 1}}

	got, err := Glom(target, Assign("a.b", Val(2)))
	require.NoError(t, err)

	// the mutated target passes through as the result
	assert.Equal(t, target, got)
	assert.Equal(t, 2, target["a"].(map[string]any)["b"])
}

func TestAssignValueSpecSeesTarget(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": 1, "out": map[string]any{}}

	_, err := Glom(target, Assign("out.copied", "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, target["out"].(map[string]any)["copied"])
}

func TestAssignIntoStructAndSlice(t *testing.T) {
	t.Parallel()

	type inner struct{ N int }
	type outer struct {
		In   *inner
		Tags []any
	}

	o := &outer{In: &inner{}, Tags: []any{"a", "b"}}

	_, err := Glom(o, Assign("In.N", Val(5)))
	require.NoError(t, err)
	assert.Equal(t, 5, o.In.N)

	_, err = Glom(o, Assign(T.Attr("Tags").Idx(1), Val("patched")))
	require.NoError(t, err)
	assert.Equal(t, "patched", o.Tags[1])
}

func TestAssignMissingParentFailsWithoutFactory(t *testing.T) {
	t.Parallel()

	_, err := Glom(map[string]any{}, Assign("a.b.c", Val(1)))
	require.Error(t, err)

	var pae *PathAssignError
	require.True(t, errors.As(err, &pae))
	assert.Contains(t, pae.Error(), "could not assign")
}

func TestAssignMissingFactoryBackfills(t *testing.T) {
	t.Parallel()

	target := map[string]any{}
	spec := Assign("a.b.c", Val(1)).Missing(func() any { return map[string]any{} })

	_, err := Glom(target, spec)
	require.NoError(t, err)
	assert.Equal(t,
		map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}},
		target)
}

func TestAssignMissingFactoryKeepsExistingLevels(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{"keep": true}}
	spec := Assign("a.b.c", Val(1)).Missing(func() any { return map[string]any{} })

	_, err := Glom(target, spec)
	require.NoError(t, err)

	a := target["a"].(map[string]any)
	assert.Equal(t, true, a["keep"])
	assert.Equal(t, map[string]any{"c": 1}, a["b"])
}

func TestAssignConstructionPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { Assign("", Val(1)) })
	assert.Panics(t, func() { Assign(T, Val(1)) })
	assert.Panics(t, func() { Assign(S.K("x"), Val(1)) })
	assert.Panics(t, func() { Assign(42, Val(1)) })
}

func TestDeleteFromMap(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{"b": 1, "c": 2}}

	got, err := Glom(target, Delete("a.b"))
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.Equal(t, map[string]any{"c": 2}, target["a"])
}

func TestDeleteMissing(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{}}

	_, err := Glom(target, Delete("a.gone"))
	require.Error(t, err)

	var pde *PathDeleteError
	require.True(t, errors.As(err, &pde))

	_, err = Glom(target, Delete("a.gone").IgnoreMissing())
	require.NoError(t, err)
}

func TestDeleteSliceElementThroughPointer(t *testing.T) {
	t.Parallel()

	s := []any{"a", "b", "c"}

	_, err := Glom(&s, Delete(T.Idx(1)))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c"}, s)
}

func TestAssignToAndDeleteAt(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{"b": 1}}

	_, err := AssignTo(target, "a.b", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, target["a"].(map[string]any)["b"])

	_, err = DeleteAt(target, "a.b")
	require.NoError(t, err)
	assert.Empty(t, target["a"])
}

func TestAssignInsidePipeline(t *testing.T) {
	t.Parallel()

	target := map[string]any{"counts": map[string]any{}}

	spec := Chain{
		Assign("counts.total", Val(3)),
		"counts.total",
	}
	got, err := Glom(target, spec)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}
