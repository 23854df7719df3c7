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

package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/propagation"

	"github.com/pjscruggs/slogfold"
)

// stubNack replaces the nack hook for the duration of a test and reports
// whether it fired. Tests using it must not run in parallel.
func stubNack(t *testing.T) *bool {
	t.Helper()
	var nacked bool
	orig := nack
	nack = func(*gcppubsub.Message) { nacked = true }
	t.Cleanup(func() { nack = orig })
	return &nacked
}

func decodeSingleEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry: %v (buffer: %s)", err, buf.String())
	}
	return entry
}

// Not parallel: swaps the package-level nack hook.
func TestWrapReceiveHandlerPanicNacks(t *testing.T) {
	nacked := stubNack(t)

	var buf bytes.Buffer
	h := slogfold.New(slogfold.WithWriter(&buf), slogfold.WithProjectID("my-proj"))
	wrapped := WrapReceiveHandler(h, func(ctx context.Context, msg *gcppubsub.Message) {
		panic("consumer exploded")
	})

	wrapped(context.Background(), &gcppubsub.Message{ID: "m-1"})

	if !*nacked {
		t.Error("message was not nacked after panic")
	}
	entry := decodeSingleEntry(t, &buf)
	if entry["severity"] != "CRITICAL" {
		t.Errorf("severity = %v, want CRITICAL", entry["severity"])
	}
	msg, _ := entry["message"].(string)
	if !strings.Contains(msg, "\tCRITICAL\tpanic recovered during message handling") {
		t.Errorf("message missing panic line: %q", msg)
	}
	if !strings.Contains(msg, "panic.value=consumer") {
		t.Errorf("message missing panic value: %q", msg)
	}
	if !strings.Contains(msg, "panic.stack_trace=") {
		t.Errorf("message missing stack trace: %q", msg)
	}
}

// Not parallel: swaps the package-level nack hook.
func TestWrapReceiveHandlerPanicNackDisabled(t *testing.T) {
	nacked := stubNack(t)

	var buf bytes.Buffer
	h := slogfold.New(slogfold.WithWriter(&buf), slogfold.WithProjectID("my-proj"))
	wrapped := WrapReceiveHandler(h, func(ctx context.Context, msg *gcppubsub.Message) {
		panic("consumer exploded")
	}, WithNackOnPanic(false))

	wrapped(context.Background(), &gcppubsub.Message{ID: "m-2"})

	if *nacked {
		t.Error("message was nacked with WithNackOnPanic(false)")
	}
	if entry := decodeSingleEntry(t, &buf); entry["severity"] != "CRITICAL" {
		t.Errorf("severity = %v, want CRITICAL", entry["severity"])
	}
}

// Not parallel: swaps the package-level nack hook.
func TestWrapReceiveHandlerRepanicsWhenRecoveryDisabled(t *testing.T) {
	nacked := stubNack(t)

	var buf bytes.Buffer
	h := slogfold.New(slogfold.WithWriter(&buf), slogfold.WithProjectID("my-proj"))
	wrapped := WrapReceiveHandler(h, func(ctx context.Context, msg *gcppubsub.Message) {
		panic("consumer exploded")
	}, WithRecoverPanics(false))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
		if !*nacked {
			t.Error("message was not nacked before repanic")
		}
		if entry := decodeSingleEntry(t, &buf); entry["severity"] != "CRITICAL" {
			t.Errorf("severity = %v, want CRITICAL", entry["severity"])
		}
	}()
	wrapped(context.Background(), &gcppubsub.Message{ID: "m-3"})
}

func TestMessageURL(t *testing.T) {
	t.Parallel()

	msg := &gcppubsub.Message{ID: "128450698986"}
	if got := messageURL("orders-sub", msg); got != "pubsub://orders-sub/128450698986" {
		t.Errorf("messageURL() = %q, want pubsub://orders-sub/128450698986", got)
	}
	if got := messageURL("", msg); got != "pubsub://-/128450698986" {
		t.Errorf("messageURL() = %q, want pubsub://-/128450698986", got)
	}
}

func TestExtractTraceLegacyAttributeWins(t *testing.T) {
	t.Parallel()

	cfg := applyOptions([]Option{WithPropagators(propagation.TraceContext{})})
	attrs := map[string]string{
		legacyTraceAttribute: "105445aa7843bc8bf206b120001000/1;o=1",
		"traceparent":        "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}

	_, tc := extractTrace(context.Background(), attrs, cfg)
	if tc.TraceID != "105445aa7843bc8bf206b120001000" {
		t.Errorf("TraceID = %q, want the legacy attribute's trace", tc.TraceID)
	}
	if tc.SpanID != "1" {
		t.Errorf("SpanID = %q, want %q", tc.SpanID, "1")
	}
	if !tc.Sampled {
		t.Error("Sampled = false, want true")
	}
}

func TestAttributeCarrier(t *testing.T) {
	t.Parallel()

	t.Run("AllocatesOnSet", func(t *testing.T) {
		t.Parallel()
		var attrs map[string]string
		c := attributeCarrier{attrs: &attrs}
		c.Set("Traceparent", "value-1")
		if attrs["traceparent"] != "value-1" {
			t.Errorf("attrs = %v, want lowercased key set", attrs)
		}
	})

	t.Run("Prefix", func(t *testing.T) {
		t.Parallel()
		attrs := map[string]string{"googclient_traceparent": "value-2"}
		c := attributeCarrier{attrs: &attrs, prefix: googclientPrefix}
		if got := c.Get("traceparent"); got != "value-2" {
			t.Errorf("Get(traceparent) = %q, want value-2", got)
		}
	})

	t.Run("NilMapGet", func(t *testing.T) {
		t.Parallel()
		var attrs map[string]string
		c := attributeCarrier{attrs: &attrs}
		if got := c.Get("traceparent"); got != "" {
			t.Errorf("Get() on nil map = %q, want empty", got)
		}
	})
}
