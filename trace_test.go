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
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceAlternatesTargetAndSpec(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": map[string]any{"b": map[string]any{}}}

	_, err := Glom(target, "a.b.missing")
	require.Error(t, err)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))

	trace := ee.Trace()
	assert.Contains(t, trace, "- Target:")
	assert.Contains(t, trace, "- Spec:")

	// the deepest frame's error type closes the message
	assert.True(t, strings.Contains(ee.Error(), "PathAccessError:"))
}

func TestTraceDedupsUnchangedValues(t *testing.T) {
	t.Parallel()

	target := map[string]any{"a": 1}

	_, err := Glom(target, "missing")
	require.Error(t, err)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))

	// target never changes along this failure, so it renders exactly once
	assert.Equal(t, 1, strings.Count(ee.Trace(), "- Target:"))
}

func TestTraceRendersCoalesceBranches(t *testing.T) {
	t.Parallel()

	_, err := Glom(map[string]any{}, Coalesce("first", "second"))
	require.Error(t, err)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))

	trace := ee.Trace()
	assert.Contains(t, trace, "|\\ branch 0")
	assert.Contains(t, trace, "|\\ branch 1")
}

func TestTraceTruncatesHugeValues(t *testing.T) {
	t.Parallel()

	huge := map[string]any{"k": strings.Repeat("x", 10*traceLineWidth)}

	_, err := Glom(huge, "missing")
	require.Error(t, err)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))
	for _, line := range strings.Split(ee.Trace(), "\n") {
		assert.LessOrEqual(t, len(line), traceLineWidth+len(" - Target: "))
	}
}

func TestBBRepr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"s"`, bbrepr("s"))
	assert.Equal(t, "nil", bbrepr(nil))
	assert.Equal(t, "42", bbrepr(42))
	assert.Equal(t, `T["a"]`, bbrepr(T.K("a")))
	assert.Equal(t, "string", bbrepr(TypeOf[string]()))

	long := strings.Repeat("y", 500)
	assert.Len(t, bbrepr(long), traceLineWidth)
	assert.True(t, strings.HasSuffix(bbrepr(long), "..."))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	t.Parallel()

	out := truncate(strings.Repeat("é", 80), 20)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), 20)

	// already-short strings pass through untouched
	assert.Equal(t, "éé", truncate("éé", 20))
}
