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

// Package contract provides assertion helpers for conditions that indicate
// a bug in this module rather than bad input. Violations panic; callers are
// expected to never trip them.
package contract

import (
	"fmt"
)

const failMsg = "fatal: An assertion has failed"

// Failf unconditionally abandons the current computation, formatting the
// given message.
func Failf(msg string, args ...any) {
	failfast(fmt.Sprintf("%v: %v", failMsg, fmt.Sprintf(msg, args...)))
}

// Assertf checks a condition and Failfs if it is false.
func Assertf(cond bool, msg string, args ...any) {
	if !cond {
		failfast(fmt.Sprintf("%v: %v", failMsg, fmt.Sprintf(msg, args...)))
	}
}
