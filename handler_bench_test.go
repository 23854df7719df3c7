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
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

// BenchmarkSeverityString exercises severity conversions across the Cloud
// Logging scale, including offset values between named levels.
func BenchmarkSeverityString(b *testing.B) {
	levels := []slog.Level{
		slog.LevelDebug,
		slog.LevelInfo,
		slog.Level(LevelNotice) - 1,
		slog.Level(LevelNotice),
		slog.LevelWarn,
		slog.LevelError,
		slog.Level(LevelCritical),
		slog.Level(LevelAlert),
		slog.Level(LevelEmergency),
		slog.Level(LevelDefault) + 40,
	}

	for b.Loop() {
		for _, lvl := range levels {
			if severityString(lvl) == "" {
				b.Fatalf("empty severity string for %v", lvl)
			}
		}
	}
}

func benchRecord(i int) slog.Record {
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "benchmark message", 0)
	rec.AddAttrs(
		slog.String("request_id", "abc123"),
		slog.Int("attempt", i),
		slog.Group("http", slog.String("method", "GET"), slog.Int("status", 200)),
	)
	return rec
}

// BenchmarkFoldAndFlush measures a full request scope: open, three buffered
// records, flush to the writer.
func BenchmarkFoldAndFlush(b *testing.B) {
	h := New(WithWriter(io.Discard), WithProjectID("bench-project"))
	tc, _ := ParseTraceHeader("105445aa7843bc8bf206b120001000/1;o=1")

	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		ctx, tok := SetRequest(context.Background(), NewRequestLogs("https://example.com/orders/1", tc))
		for range 3 {
			if err := h.Handle(ctx, benchRecord(i)); err != nil {
				b.Fatalf("Handle returned error: %v", err)
			}
		}
		if err := h.Flush(ctx); err != nil {
			b.Fatalf("Flush returned error: %v", err)
		}
		ResetRequest(tok)
	}
}

// BenchmarkHandlePassthrough measures the direct line write taken by records
// logged outside any request scope.
func BenchmarkHandlePassthrough(b *testing.B) {
	h := New(WithWriter(io.Discard))
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		if err := h.Handle(ctx, benchRecord(i)); err != nil {
			b.Fatalf("Handle returned error: %v", err)
		}
	}
}

// BenchmarkHandlePassthroughStructured measures the per-record JSON entry
// path used when structured passthrough is enabled.
func BenchmarkHandlePassthroughStructured(b *testing.B) {
	h := New(WithWriter(io.Discard), WithStructuredPassthrough(true))
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		if err := h.Handle(ctx, benchRecord(i)); err != nil {
			b.Fatalf("Handle returned error: %v", err)
		}
	}
}
