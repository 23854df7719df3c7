// Copyright 2026 Patrick J. Scruggs
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

package slogfold

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// lineTimeFormat renders timestamps inside the folded message. Microsecond
// precision keeps line ordering unambiguous without Cloud Logging treating
// the text as anything but opaque.
const lineTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// RequestLogs accumulates the log lines emitted while serving one request.
//
// The URL and trace context are captured once at creation, before the
// application runs, so they are present in the final entry even if the
// request later panics or is cancelled. Lines are appended as
// "\n<timestamp>\t<severity>\t<text>" and joined into a single message; the
// entry's severity is the maximum severity of the appended lines.
//
// All methods are safe for concurrent use. A RequestLogs must not be shared
// across requests.
type RequestLogs struct {
	url   string
	trace TraceContext

	mu       sync.Mutex
	message  strings.Builder
	lines    int
	maxLevel slog.Level
	extra    map[string]any
}

// NewRequestLogs returns an accumulator for one request. url may be empty
// for work not tied to an addressable resource; tc may be the zero value
// when no trace context is known.
func NewRequestLogs(url string, tc TraceContext) *RequestLogs {
	return &RequestLogs{url: url, trace: tc}
}

// URL returns the request URL captured at creation.
func (rl *RequestLogs) URL() string { return rl.url }

// Trace returns the trace context captured at creation.
func (rl *RequestLogs) Trace() TraceContext { return rl.trace }

// Append adds one log line. The line text must not contain newlines; the
// timestamp and severity name are prepended in the fixed tab-separated
// layout. A zero t means now. The accumulated severity is raised to level if
// level is higher; it never goes back down.
func (rl *RequestLogs) Append(t time.Time, level slog.Level, line string) {
	if t.IsZero() {
		t = time.Now()
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.message.WriteByte('\n')
	rl.message.WriteString(t.UTC().Format(lineTimeFormat))
	rl.message.WriteByte('\t')
	rl.message.WriteString(severityString(level))
	rl.message.WriteByte('\t')
	rl.message.WriteString(line)

	if rl.lines == 0 || level > rl.maxLevel {
		rl.maxLevel = level
	}
	rl.lines++
}

// Len returns the number of lines appended so far.
func (rl *RequestLogs) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.lines
}

// AttachExtra merges fields into the entry emitted at flush. Later calls
// override earlier values for the same key. Keys that collide with the
// entry's own fields (severity, message, the trace keys, and so on) are
// dropped at flush rather than overriding them.
func (rl *RequestLogs) AttachExtra(extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.extra == nil {
		rl.extra = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		rl.extra[k] = v
	}
}

// Snapshot holds an immutable copy of a RequestLogs' state, taken at flush
// time.
type Snapshot struct {
	URL     string
	Trace   TraceContext
	Message string
	Level   slog.Level
	Lines   int
	Extra   map[string]any
}

// Snapshot returns a copy of the accumulated state. Appends that race with
// the snapshot land either wholly inside it or wholly after it, never
// partially.
func (rl *RequestLogs) Snapshot() Snapshot {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	snap := Snapshot{
		URL:     rl.url,
		Trace:   rl.trace,
		Message: rl.message.String(),
		Level:   rl.maxLevel,
		Lines:   rl.lines,
	}
	if rl.lines == 0 {
		snap.Level = slog.Level(LevelDefault)
	}
	if len(rl.extra) > 0 {
		snap.Extra = make(map[string]any, len(rl.extra))
		for k, v := range rl.extra {
			snap.Extra[k] = v
		}
	}
	return snap
}
