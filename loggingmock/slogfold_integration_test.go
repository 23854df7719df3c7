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

package loggingmock

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pjscruggs/slogfold"
)

// TestFoldedEntryIngests runs a complete request fold through the mock
// backend and checks every elevated field.
func TestFoldedEntryIngests(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := slogfold.New(
		slogfold.WithWriter(&buf),
		slogfold.WithProjectID("my-proj"),
		slogfold.WithLoggerName("checkout"),
	)
	logger := slog.New(h)

	tc, ok := slogfold.ParseTraceHeader("105445aa7843bc8bf206b120001000/1;o=1")
	if !ok {
		t.Fatal("ParseTraceHeader rejected a valid header")
	}
	rl := slogfold.NewRequestLogs("https://example.com/orders/123", tc)
	ctx, tok := slogfold.SetRequest(context.Background(), rl)
	defer slogfold.ResetRequest(tok)

	logger.InfoContext(ctx, "validating order")
	logger.ErrorContext(ctx, "charge declined")
	if err := h.Flush(ctx); err != nil {
		t.Fatalf("Flush returned %v", err)
	}

	receive := time.Now()
	entry, err := Ingest(strings.TrimSpace(buf.String()), "my-proj", receive)
	if err != nil {
		t.Fatalf("Ingest returned %v", err)
	}

	if entry.Severity != "ERROR" {
		t.Errorf("Severity = %q, want ERROR", entry.Severity)
	}
	if want := "projects/my-proj/traces/105445aa7843bc8bf206b120001000"; entry.Trace != want {
		t.Errorf("Trace = %q, want %q", entry.Trace, want)
	}
	if entry.SpanID != "1" {
		t.Errorf("SpanID = %q, want 1", entry.SpanID)
	}
	if !entry.TraceSampled {
		t.Error("TraceSampled = false, want true")
	}
	if !entry.Timestamp.Equal(receive) {
		t.Errorf("Timestamp = %v, want receive time for folded entries", entry.Timestamp)
	}

	if got := entry.Payload["url"]; got != "https://example.com/orders/123" {
		t.Errorf("payload url = %v, want request URL", got)
	}
	if got := entry.Payload["name"]; got != "checkout" {
		t.Errorf("payload name = %v, want checkout", got)
	}
	if _, ok := entry.Payload["process"]; !ok {
		t.Error("payload missing process")
	}
	message, _ := entry.Payload["message"].(string)
	if !strings.Contains(message, "\tINFO\tvalidating order") ||
		!strings.Contains(message, "\tERROR\tcharge declined") {
		t.Errorf("payload message = %q, want both folded lines", message)
	}
	for key := range entry.Payload {
		if strings.HasPrefix(key, "logging.googleapis.com/") {
			t.Errorf("payload retained special key %q after elevation", key)
		}
	}
}

// TestPassthroughEntryIngests checks a record logged outside any request
// scope, where the entry carries its own timestamp and source location.
func TestPassthroughEntryIngests(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := slogfold.New(
		slogfold.WithWriter(&buf),
		slogfold.WithStructuredPassthrough(true),
	)
	slog.New(h).Warn("cache miss rate high")

	receive := time.Now().Add(time.Hour)
	entry, err := Ingest(strings.TrimSpace(buf.String()), "", receive)
	if err != nil {
		t.Fatalf("Ingest returned %v", err)
	}

	if entry.Severity != "WARNING" {
		t.Errorf("Severity = %q, want WARNING", entry.Severity)
	}
	if entry.Timestamp.Equal(receive) {
		t.Error("Timestamp fell back to receive time, want the entry's own time field")
	}
	if time.Since(entry.Timestamp) > time.Minute {
		t.Errorf("Timestamp = %v, want roughly now", entry.Timestamp)
	}
	if got, _ := entry.Payload["message"].(string); got != "cache miss rate high" {
		t.Errorf("payload message = %q, want cache miss rate high", got)
	}
	if entry.SourceLocation == nil {
		t.Fatal("SourceLocation missing from passthrough entry")
	}
	if fn, _ := entry.SourceLocation["function"].(string); !strings.Contains(fn, "TestPassthroughEntryIngests") {
		t.Errorf("source function = %q, want the logging call site", fn)
	}
	if entry.Trace != "" {
		t.Errorf("Trace = %q, want empty without trace context", entry.Trace)
	}
}
