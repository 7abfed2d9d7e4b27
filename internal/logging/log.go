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

// Package logging is a thin convenience wrapper over glog's verbose
// logging. The engine never logs unconditionally; all evaluation chatter
// sits behind V levels so that library consumers only see it when they
// opt in with -v.
//
// Conventional levels used throughout the module:
//
//	V(3): one-time warnings (deprecated path syntax and the like)
//	V(5): registry registration and cache invalidation events
//	V(9): per-step evaluation traces
package logging

import (
	"fmt"

	"github.com/golang/glog"
)

// Verbose mirrors glog.Verbose so that callers do not need to import glog
// directly alongside this package.
type Verbose bool

// V builds a logging object that only emits when the process-wide glog
// verbosity is at least level.
func V(level int) Verbose {
	return Verbose(glog.V(glog.Level(level)))
}

func (v Verbose) Infof(format string, args ...any) {
	if v {
		glog.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

// Warningf logs at warning severity when verbose logging is enabled at the
// receiver's level.
func (v Verbose) Warningf(format string, args ...any) {
	if v {
		glog.WarningDepth(1, fmt.Sprintf(format, args...))
	}
}

// Warnf logs at warning severity regardless of verbosity. It is reserved
// for conditions the user almost certainly wants to know about, like a
// deprecated construct that will change meaning in a future release.
func Warnf(format string, args ...any) {
	glog.WarningDepth(1, fmt.Sprintf(format, args...))
}

// Flush forces any buffered log lines out, for use at process exit.
func Flush() {
	glog.Flush()
}
