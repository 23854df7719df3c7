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
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogfold"
)

// TransportOption configures the round tripper returned by
// NewTraceTransport.
type TransportOption func(*transportConfig)

type transportConfig struct {
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	skip           func(*http.Request) bool
	logCalls       bool
}

// WithTransportPropagators overrides the propagator used to inject trace
// context into outbound requests.
func WithTransportPropagators(p propagation.TextMapPropagator) TransportOption {
	return func(cfg *transportConfig) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithSkipRequest leaves requests matching pred untouched: no headers are
// injected and no line is logged.
func WithSkipRequest(pred func(*http.Request) bool) TransportOption {
	return func(cfg *transportConfig) {
		cfg.skip = pred
	}
}

// WithCallLogging controls whether each outbound call logs a line into the
// surrounding request scope. Defaults to true.
func WithCallLogging(enabled bool) TransportOption {
	return func(cfg *transportConfig) {
		cfg.logCalls = enabled
	}
}

// NewTraceTransport wraps base so that outbound requests carry the caller's
// trace context and each call is logged into the surrounding request scope.
//
// The W3C traceparent header is injected through the configured propagator.
// Because the Cloud Trace propagator is extract-only, the legacy
// X-Cloud-Trace-Context header is synthesized from the active span so that
// services behind Google load balancers join the same trace. A nil base
// uses http.DefaultTransport.
func NewTraceTransport(base http.RoundTripper, opts ...TransportOption) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	cfg := transportConfig{logCalls: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &traceTransport{base: base, cfg: cfg}
}

type traceTransport struct {
	base http.RoundTripper
	cfg  transportConfig
}

func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.cfg.skip != nil && t.cfg.skip(req) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	req = req.Clone(ctx)

	prop := t.cfg.propagators
	if !t.cfg.propagatorsSet {
		prop = otel.GetTextMapPropagator()
	}
	if prop != nil {
		prop.Inject(ctx, propagation.HeaderCarrier(req.Header))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() && req.Header.Get(slogfold.DefaultTraceHeader) == "" {
		req.Header.Set(slogfold.DefaultTraceHeader, formatXCloudTrace(sc))
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if t.cfg.logCalls {
		logger := slogfold.Logger(ctx)
		attrs := []slog.Attr{
			slog.String("http.client.method", req.Method),
			slog.String("http.client.url", req.URL.Redacted()),
			slog.Duration("http.client.latency", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.LogAttrs(ctx, slog.LevelError, "outbound request failed", attrs...)
		} else {
			attrs = append(attrs, slog.Int("http.client.status", resp.StatusCode))
			logger.LogAttrs(ctx, statusLevel(resp.StatusCode), "outbound request completed", attrs...)
		}
	}
	return resp, err
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
