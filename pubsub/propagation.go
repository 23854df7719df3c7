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
	"context"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogfold"
)

// googclientPrefix is prepended to propagation keys by the Cloud Pub/Sub
// client's own instrumentation.
const googclientPrefix = "googclient_"

// legacyTraceAttribute carries the GCP trace header format when a
// publisher forwards it from an inbound HTTP request.
const legacyTraceAttribute = "x-cloud-trace-context"

// Inject writes trace context from ctx into msg.Attributes, creating the
// map when necessary. Nil messages are ignored.
func Inject(ctx context.Context, msg *gcppubsub.Message, opts ...Option) {
	if msg == nil {
		return
	}
	msg.Attributes = InjectAttributes(ctx, msg.Attributes, opts...)
}

// InjectAttributes writes trace context from ctx into attrs and returns
// the map. The configured propagator decides which keys are emitted; with
// WithGoogClientCompat the googclient_ prefixed form is written as well.
func InjectAttributes(ctx context.Context, attrs map[string]string, opts ...Option) map[string]string {
	cfg := applyOptions(opts)

	prop := cfg.propagators
	if !cfg.propagatorsSet {
		prop = otel.GetTextMapPropagator()
	}
	if prop != nil {
		prop.Inject(ctx, attributeCarrier{attrs: &attrs})
	}
	if cfg.googClientInjection {
		propagation.TraceContext{}.Inject(ctx, attributeCarrier{attrs: &attrs, prefix: googclientPrefix})
	}
	return attrs
}

// Extract reads trace context from msg.Attributes into ctx and returns
// the updated context plus the discovered span context, if any.
func Extract(ctx context.Context, msg *gcppubsub.Message, opts ...Option) (context.Context, trace.SpanContext) {
	if msg == nil {
		return ctx, trace.SpanContextFromContext(ctx)
	}
	return ExtractAttributes(ctx, msg.Attributes, opts...)
}

// ExtractAttributes reads trace context from attrs into ctx and returns
// the updated context plus the discovered span context, if any.
func ExtractAttributes(ctx context.Context, attrs map[string]string, opts ...Option) (context.Context, trace.SpanContext) {
	return extractSpanContext(ctx, attrs, applyOptions(opts))
}

func extractSpanContext(ctx context.Context, attrs map[string]string, cfg *config) (context.Context, trace.SpanContext) {
	if len(attrs) == 0 {
		return ctx, trace.SpanContextFromContext(ctx)
	}

	prop := cfg.propagators
	if !cfg.propagatorsSet {
		prop = otel.GetTextMapPropagator()
	}
	if prop != nil {
		extracted := prop.Extract(ctx, attributeCarrier{attrs: &attrs})
		if sc := trace.SpanContextFromContext(extracted); sc.IsValid() {
			return extracted, sc
		}
	}

	if cfg.googClientExtraction {
		extracted := propagation.TraceContext{}.Extract(ctx, attributeCarrier{attrs: &attrs, prefix: googclientPrefix})
		if sc := trace.SpanContextFromContext(extracted); sc.IsValid() {
			return extracted, sc
		}
	}

	return ctx, trace.SpanContextFromContext(ctx)
}

// extractTrace derives the scope's trace context for a message. A legacy
// X-Cloud-Trace-Context attribute wins so its decimal span ID reaches the
// entry verbatim; after that an already-valid span on ctx, then the
// propagator over the message attributes.
func extractTrace(ctx context.Context, attrs map[string]string, cfg *config) (context.Context, slogfold.TraceContext) {
	if raw := attrs[legacyTraceAttribute]; raw != "" {
		if tc, ok := slogfold.ParseTraceHeader(raw); ok {
			return ctx, tc
		}
	}

	if tc, ok := slogfold.TraceFromContext(ctx); ok {
		return ctx, tc
	}

	ctx, _ = extractSpanContext(ctx, attrs, cfg)
	if tc, ok := slogfold.TraceFromContext(ctx); ok {
		return ctx, tc
	}
	return ctx, slogfold.TraceContext{}
}

// attributeCarrier adapts a message attribute map to the OpenTelemetry
// TextMapCarrier interface. It holds a pointer to the map so Set can
// allocate it on first write; keys are lowercased, optionally behind a
// prefix.
type attributeCarrier struct {
	attrs  *map[string]string
	prefix string
}

func (c attributeCarrier) Get(key string) string {
	if c.attrs == nil || *c.attrs == nil {
		return ""
	}
	return (*c.attrs)[c.prefix+strings.ToLower(key)]
}

func (c attributeCarrier) Set(key, value string) {
	if c.attrs == nil {
		return
	}
	m := *c.attrs
	if m == nil {
		m = make(map[string]string)
		*c.attrs = m
	}
	m[c.prefix+strings.ToLower(key)] = value
}

func (c attributeCarrier) Keys() []string {
	if c.attrs == nil || len(*c.attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(*c.attrs))
	for k := range *c.attrs {
		keys = append(keys, k)
	}
	return keys
}
