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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pjscruggs/slogfold"
	"github.com/pjscruggs/slogfold/async"
)

// TestAsyncExampleDeliversAllEntries runs the example's flow against a
// buffer, with a single worker so delivery order is deterministic.
func TestAsyncExampleDeliversAllEntries(t *testing.T) {
	t.Parallel()

	var dropped atomic.Int64
	var buf bytes.Buffer

	w := async.NewWriter(&buf,
		async.WithQueueSize(8),
		async.WithWorkerCount(1),
		async.WithDropMode(async.DropModeDropOldest),
		async.WithFlushTimeout(2*time.Second),
		async.WithOnDrop(func(entry []byte) { dropped.Add(1) }),
	)

	handler := slogfold.New(
		slogfold.WithWriter(w),
		slogfold.WithLoggerName("async-example"),
	)
	logger := slog.New(handler)

	for i := range 3 {
		rl := slogfold.NewRequestLogs(fmt.Sprintf("job://async-example/run-%d", i), slogfold.TraceContext{})
		ctx, tok := slogfold.SetRequest(context.Background(), rl)
		logger.InfoContext(ctx, "starting run", slog.Int("run", i))
		logger.InfoContext(ctx, "run complete", slog.Int("run", i))
		if err := handler.Flush(ctx); err != nil {
			t.Errorf("flush: %v", err)
		}
		slogfold.ResetRequest(tok)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := dropped.Load(); n != 0 {
		t.Errorf("dropped %d entries, want 0", n)
	}

	dec := json.NewDecoder(&buf)
	var entries []map[string]any
	for dec.More() {
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode log entry: %v", err)
		}
		entries = append(entries, entry)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, entry := range entries {
		wantURL := fmt.Sprintf("job://async-example/run-%d", i)
		if got := entry["url"]; got != wantURL {
			t.Errorf("entry %d url = %v, want %q", i, got, wantURL)
		}
		if got := entry["severity"]; got != "INFO" {
			t.Errorf("entry %d severity = %v, want INFO", i, got)
		}
	}
}
