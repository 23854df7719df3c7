package main

import (
	"bytes"
	"context"
	"testing"
)

func TestRun(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if got := bytes.Count(buf.Bytes(), []byte("\n")); got != 1 {
		t.Fatalf("expected a single folded entry, got %d lines: %s", got, buf.String())
	}
}

func BenchmarkRun(b *testing.B) {
	ctx := context.Background()
	s := newScenario()
	defer s.Close()

	b.ResetTimer()
	for b.Loop() {
		var buf bytes.Buffer
		if err := s.Run(ctx, &buf); err != nil {
			b.Fatalf("scenario run returned error: %v", err)
		}
	}
}
