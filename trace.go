// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

package linksnake

import "fmt"

// Trace collects the ordered human-readable diagnostics of one resolution
// run. It is purely observational output for debugging: nothing in the
// pipeline ever branches on its contents. A Trace is owned by a single
// resolution and never shared.
type Trace struct {
	lines []string
}

// Logf appends one formatted diagnostic line.
func (t *Trace) Logf(format string, args ...any) {
	if t == nil {
		return
	}
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Lines returns the collected diagnostics in order.
func (t *Trace) Lines() []string {
	if t == nil {
		return nil
	}
	return t.lines
}
