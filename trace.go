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
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// DefaultTraceHeader is the HTTP header Google's load balancers and App
// Engine frontends use to propagate trace context.
const DefaultTraceHeader = "X-Cloud-Trace-Context"

// Structured logging keys recognized by the Cloud Logging agent. Entries
// carrying these keys have their values promoted into the corresponding
// LogEntry fields.
const (
	// TraceKey labels the full trace resource name
	// (projects/PROJECT_ID/traces/TRACE_ID).
	TraceKey = "logging.googleapis.com/trace"

	// SpanKey labels the span identifier within a trace.
	SpanKey = "logging.googleapis.com/spanId"

	// SampledKey labels the boolean indicating whether the trace is sampled.
	SampledKey = "logging.googleapis.com/trace_sampled"
)

// TraceContext identifies the trace and span a request belongs to.
//
// TraceID holds the identifier exactly as it appeared in the source: a hex
// string for header- and span-derived traces. SpanID is a decimal string
// when parsed from X-Cloud-Trace-Context and a 16-character hex string when
// taken from an OpenTelemetry span; either form is accepted by Cloud
// Logging. Both may be empty.
type TraceContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// Valid reports whether tc carries a trace identifier.
func (tc TraceContext) Valid() bool { return tc.TraceID != "" }

// ParseTraceHeader parses an X-Cloud-Trace-Context header value of the form
// "TRACE_ID/SPAN_ID;o=TRACE_TRUE". The span and options segments are
// optional. It returns ok=false for an empty or malformed value; a malformed
// span segment invalidates the whole header, so callers never see a trace
// without its span or vice versa.
func ParseTraceHeader(header string) (TraceContext, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return TraceContext{}, false
	}

	idPart, options, _ := strings.Cut(header, ";")
	traceID, spanID, hasSpan := strings.Cut(idPart, "/")

	traceID = strings.TrimSpace(traceID)
	if !isHexString(traceID) {
		return TraceContext{}, false
	}

	tc := TraceContext{TraceID: traceID}
	if hasSpan {
		spanID = strings.TrimSpace(spanID)
		if _, err := strconv.ParseUint(spanID, 10, 64); err != nil {
			return TraceContext{}, false
		}
		tc.SpanID = spanID
	}
	tc.Sampled = strings.Contains(options, "o=1")
	return tc, true
}

// TraceFromRequest extracts trace context from r's headers. The header name
// defaults to DefaultTraceHeader when empty. It returns ok=false when the
// header is missing or malformed.
func TraceFromRequest(r *http.Request, header string) (TraceContext, bool) {
	if r == nil {
		return TraceContext{}, false
	}
	if header == "" {
		header = DefaultTraceHeader
	}
	return ParseTraceHeader(r.Header.Get(header))
}

// TraceFromContext extracts trace context from the OpenTelemetry span on
// ctx, if any. Identifiers are rendered in their hex form.
func TraceFromContext(ctx context.Context) (TraceContext, bool) {
	if ctx == nil {
		return TraceContext{}, false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return TraceContext{}, false
	}
	return TraceContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Sampled: sc.IsSampled(),
	}, true
}

// FormatTraceResource renders the fully qualified trace resource name Cloud
// Logging expects in the logging.googleapis.com/trace field.
func FormatTraceResource(projectID, traceID string) string {
	return fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)
}

// isHexString reports whether s is a non-empty string of hex digits.
func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
