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

package contract

import (
	"github.com/golang/glog"
)

// failfast logs and panics the process in a way that is friendly to
// debugging. Unlike glog.Fatal it panics rather than exiting, so that a
// library consumer's recover still has a chance to run.
func failfast(msg string) {
	glog.Error(msg)
	panic(msg)
}
