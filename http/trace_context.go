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

package http

import (
	"crypto/rand"
	"encoding/binary"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogfold"
)

// randRead fills a buffer with random bytes. Tests swap it to make
// synthesized span IDs deterministic.
var randRead = rand.Read

// ensureSpanContext makes sure the request context carries a usable span
// context before the request scope opens. When the OpenTelemetry layer is
// active it has already extracted one; otherwise this falls back to the
// configured propagator and finally to the legacy X-Cloud-Trace-Context
// header.
func ensureSpanContext(r *http.Request, cfg *config) *http.Request {
	ctx := r.Context()
	if trace.SpanContextFromContext(ctx).IsValid() {
		return r
	}
	prop := cfg.propagators
	if !cfg.propagatorsSet {
		prop = otel.GetTextMapPropagator()
	}
	if prop != nil {
		extracted := prop.Extract(ctx, propagation.HeaderCarrier(r.Header))
		if trace.SpanContextFromContext(extracted).IsValid() {
			return r.WithContext(extracted)
		}
	}
	if sc, ok := parseXCloudTrace(r.Header.Get(slogfold.DefaultTraceHeader)); ok {
		return r.WithContext(trace.ContextWithRemoteSpanContext(ctx, sc))
	}
	return r
}

// parseXCloudTrace converts a legacy X-Cloud-Trace-Context header into an
// OpenTelemetry span context. The trace ID must be the full 32 hex digits
// here; shorter IDs still reach log entries through the scope, they just
// cannot seed a span. A missing or zero span ID is replaced with a random
// one so the result is valid for propagation.
func parseXCloudTrace(header string) (trace.SpanContext, bool) {
	tc, ok := slogfold.ParseTraceHeader(header)
	if !ok {
		return trace.SpanContext{}, false
	}
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
