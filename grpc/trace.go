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

package grpc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"

	"github.com/pjscruggs/slogfold"
)

// xCloudTraceMetadataKey is the metadata form of the legacy GCP trace
// header. gRPC normalizes metadata keys to lowercase.
const xCloudTraceMetadataKey = "x-cloud-trace-context"

// randRead fills a buffer with random bytes. Tests swap it to make
// synthesized span IDs deterministic.
var randRead = rand.Read

// metadataCarrier adapts metadata.MD to the OpenTelemetry TextMapCarrier
// interface so propagators can read and write call metadata directly.
type metadataCarrier struct {
	md metadata.MD
}

func (c metadataCarrier) Get(key string) string {
	vals := c.md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (c metadataCarrier) Set(key, value string) {
	c.md.Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c.md))
	for k := range c.md {
		keys = append(keys, k)
	}
	return keys
}

// extractTrace derives the scope's trace context from incoming call
// metadata and enriches ctx with a remote span context when one can be
// parsed. The legacy X-Cloud-Trace-Context entry wins so its decimal span
// ID reaches the entry verbatim; after that an already-valid span on ctx,
// the configured propagator, and finally grpc-trace-bin are consulted.
func extractTrace(ctx context.Context, md metadata.MD, cfg *options) (context.Context, slogfold.TraceContext) {
	if raw := first(md, xCloudTraceMetadataKey); raw != "" {
		if tc, ok := slogfold.ParseTraceHeader(raw); ok {
			if !trace.SpanContextFromContext(ctx).IsValid() {
				if sc, scOK := spanContextFromTrace(tc); scOK {
					ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
				}
			}
			return ctx, tc
		}
	}

	if tc, ok := slogfold.TraceFromContext(ctx); ok {
		return ctx, tc
	}

	prop := cfg.propagators
	if !cfg.propagatorsSet {
		prop = otel.GetTextMapPropagator()
	}
	if prop != nil {
		extracted := prop.Extract(ctx, metadataCarrier{md})
		if tc, ok := slogfold.TraceFromContext(extracted); ok {
			return extracted, tc
		}
	}

	if raw := first(md, "grpc-trace-bin"); raw != "" {
		if sc, ok := parseGRPCTraceBin(raw); ok {
			ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
			if tc, ok := slogfold.TraceFromContext(ctx); ok {
				return ctx, tc
			}
		}
	}

	return ctx, slogfold.TraceContext{}
}

// injectClientTrace writes trace context into outgoing call metadata: the
// W3C headers through the configured propagator, plus the legacy
// X-Cloud-Trace-Context entry when enabled and not already present.
func injectClientTrace(ctx context.Context, md metadata.MD, cfg *options) {
	prop := cfg.propagators
	if !cfg.propagatorsSet {
		prop = otel.GetTextMapPropagator()
	}
	if prop != nil {
		prop.Inject(ctx, metadataCarrier{md})
	}

	if !cfg.injectLegacyXCloud {
		return
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || first(md, xCloudTraceMetadataKey) != "" {
		return
	}
	md.Set(xCloudTraceMetadataKey, formatXCloudTrace(sc))
}

// spanContextFromTrace converts a parsed legacy trace header into an
// OpenTelemetry span context. The trace ID must be the full 32 hex digits;
// a missing or zero span ID is replaced with a random one so the result is
// valid for propagation.
func spanContextFromTrace(tc slogfold.TraceContext) (trace.SpanContext, bool) {
	traceID, err := trace.TraceIDFromHex(tc.TraceID)
	if err != nil {
		return trace.SpanContext{}, false
	}

	var spanID trace.SpanID
	if tc.SpanID != "" {
		if n, perr := strconv.ParseUint(tc.SpanID, 10, 64); perr == nil {
			binary.BigEndian.PutUint64(spanID[:], n)
		}
	}
	if !spanID.IsValid() {
		if _, rerr := randRead(spanID[:]); rerr != nil {
			return trace.SpanContext{}, false
		}
	}

	var flags trace.TraceFlags
	if tc.Sampled {
		flags = trace.FlagsSampled
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), true
}

// parseGRPCTraceBin decodes a base64 grpc-trace-bin metadata value.
// The version 0 layout is a zero version byte, field 0 with the 16-byte
// trace ID, field 1 with the 8-byte span ID, and field 2 with the one-byte
// trace flags.
func parseGRPCTraceBin(val string) (trace.SpanContext, bool) {
	data, err := base64.StdEncoding.DecodeString(val)
	if err != nil || len(data) < 29 || data[0] != 0 {
		return trace.SpanContext{}, false
	}
	if data[1] != 0 || data[18] != 1 || data[27] != 2 {
		return trace.SpanContext{}, false
	}

	var traceID trace.TraceID
	copy(traceID[:], data[2:18])
	var spanID trace.SpanID
	copy(spanID[:], data[19:27])

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(data[28]),
		Remote:     true,
	})
	if !sc.IsValid() {
		return trace.SpanContext{}, false
	}
	return sc, true
}

// formatXCloudTrace renders a span context in the legacy header form
// "TRACE_ID/SPAN_ID;o=FLAG" with the span ID in decimal.
func formatXCloudTrace(sc trace.SpanContext) string {
	spanID := sc.SpanID()
	sampled := 0
	if sc.IsSampled() {
		sampled = 1
	}
	return fmt.Sprintf("%s/%d;o=%d", sc.TraceID(), binary.BigEndian.Uint64(spanID[:]), sampled)
}

// first returns the first metadata value for key, or "".
func first(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
