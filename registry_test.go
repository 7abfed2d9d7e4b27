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
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	fields map[string]any
}

func (e *envelope) String() string { return "envelope" }

type labeled interface {
	Label() string
}

type tagged struct{ tag string }

func (t *tagged) Label() string  { return t.tag }
func (t *tagged) String() string { return "tagged:" + t.tag }

func TestRegistryExactTypeRegistration(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&envelope{}, Ops{
		Get: func(target, key any) (any, error) {
			env := target.(*envelope)
			v, ok := env.fields[fmt.Sprint(key)]
			if !ok {
				return nil, fmt.Errorf("no field %v", key)
			}
			return v, nil
		},
	})

	env := &envelope{fields: map[string]any{"subject": "hello"}}
	got, err := GlomWith(env, "subject", WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestRegistryInterfaceRegistrationActsAsAncestor(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(TypeOf[labeled](), Ops{
		Get: func(target, key any) (any, error) {
			if key == "label" {
				return target.(labeled).Label(), nil
			}
			return nil, fmt.Errorf("only label is readable")
		},
	})

	got, err := GlomWith(&tagged{tag: "x-7"}, "label", WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, "x-7", got)
}

func TestRegistryExactBeatsInterface(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(TypeOf[labeled](), Ops{
		Get: func(target, key any) (any, error) { return "from-interface", nil },
	})
	reg.Register(&tagged{}, Ops{
		Get: func(target, key any) (any, error) { return "from-exact", nil },
	})

	got, err := GlomWith(&tagged{}, "anything", WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, "from-exact", got)
}

func TestRegistryNewerInterfaceRegistrationWins(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(TypeOf[fmt.Stringer](), Ops{
		Get: func(target, key any) (any, error) { return "older", nil },
	})
	reg.Register(TypeOf[labeled](), Ops{
		Get: func(target, key any) (any, error) { return "newer", nil },
	})

	// *tagged implements both; the later registration takes precedence
	got, err := GlomWith(&tagged{}, "k", WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, "newer", got)
}

func TestRegistryLaterRegistrationInvalidatesResolution(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	// first resolution lands on the built-in default and is memoized
	_, err := GlomWith(map[string]any{"k": 1}, "k", WithRegistry(reg))
	require.NoError(t, err)

	reg.Register(map[string]any{}, Ops{
		Get: func(target, key any) (any, error) { return "overridden", nil },
	})

	got, err := GlomWith(map[string]any{"k": 1}, "k", WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, "overridden", got)
}

func TestRegistryCustomIterate(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&envelope{}, Ops{
		Iterate: func(target any) (iter.Seq[any], error) {
			env := target.(*envelope)
			keys, err := defaultKeys(env.fields)
			if err != nil {
				return nil, err
			}
			return func(yield func(any) bool) {
				for _, k := range keys {
					if !yield(env.fields[k.(string)]) {
						return
					}
				}
			}, nil
		},
	})

	env := &envelope{fields: map[string]any{"a": 1, "b": 2}}
	got, err := GlomWith(env, Each(T), WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, got)
}

func TestRegistryUnsupportedOp(t *testing.T) {
	t.Parallel()

	_, err := Glom(42, Each(T))
	require.Error(t, err)

	var uoe *UnsupportedOpError
	require.True(t, errors.As(err, &uoe))
	assert.Equal(t, OpIterate, uoe.Op)
}

func TestDefaultGetCoercions(t *testing.T) {
	t.Parallel()

	// text segments index int-keyed maps and sequences
	got, err := Glom(map[int]string{2: "two"}, "2")
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	got, err = Glom([]string{"zero", "one"}, "1")
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	// negative indices wrap
	got, err = Glom([]string{"zero", "one"}, T.Idx(-1))
	require.NoError(t, err)
	assert.Equal(t, "one", got)
}

func TestDefaultIterateSortsMapKeys(t *testing.T) {
	t.Parallel()

	m := map[string]any{"c": 3, "a": 1, "b": 2}
	got, err := Glom(m, Each(T))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, got)
}

func TestDefaultIterateRefusesStrings(t *testing.T) {
	t.Parallel()

	_, err := Glom("hello", Each(T))
	require.Error(t, err)

	var uoe *UnsupportedOpError
	assert.True(t, errors.As(err, &uoe))
}

func TestDefaultKeys(t *testing.T) {
	t.Parallel()

	keys, err := defaultKeys(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, keys)

	keys, err = defaultKeys([]int{7, 8})
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1}, keys)

	type point struct {
		X, Y int
		z    int //nolint:unused // exercises unexported-field filtering
	}
	keys, err = defaultKeys(point{})
	require.NoError(t, err)
	assert.Equal(t, []any{"X", "Y"}, keys)
}

func TestDefaultAssign(t *testing.T) {
	t.Parallel()

	m := map[string]any{}
	require.NoError(t, defaultAssign(m, "k", 1))
	assert.Equal(t, 1, m["k"])

	s := []any{1, 2, 3}
	require.NoError(t, defaultAssign(s, 1, "two"))
	assert.Equal(t, "two", s[1])

	type box struct{ N int }
	b := &box{}
	require.NoError(t, defaultAssign(b, "N", 5))
	assert.Equal(t, 5, b.N)

	// value structs are not addressable
	assert.Error(t, defaultAssign(box{}, "N", 5))
}

func TestDefaultDelete(t *testing.T) {
	t.Parallel()

	m := map[string]any{"k": 1}
	require.NoError(t, defaultDelete(m, "k"))
	assert.Empty(t, m)
	assert.Error(t, defaultDelete(m, "k"))

	s := []any{1, 2, 3}
	require.NoError(t, defaultDelete(&s, 1))
	assert.Equal(t, []any{1, 3}, s)

	// slices shrink only through a pointer
	assert.Error(t, defaultDelete([]any{1}, 0))
}
