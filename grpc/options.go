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
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
)

// Option configures the interceptors created by this package.
type Option func(*options)

// CodeToLevel maps a final gRPC status code to the level of the completion
// line, which sets the floor for the folded entry's severity. A default
// mapping is used unless WithLevels overrides it.
type CodeToLevel func(code codes.Code) slog.Level

// ShouldLogFunc decides whether a call identified by its full method name
// (e.g. "/package.Service/Method") gets a request scope at all. Returning
// false skips folding for that call: the handler still runs, but nothing is
// collected or emitted.
type ShouldLogFunc func(ctx context.Context, fullMethod string) bool

// MetadataFilterFunc filters metadata keys before they are logged. Return
// true to keep a key. Keys arrive in their original case; filters should
// normally compare case-insensitively.
type MetadataFilterFunc func(key string) bool

type options struct {
	levelFunc      CodeToLevel
	shouldLogFunc  ShouldLogFunc
	metadataFilter MetadataFilterFunc
	skipMethods    []string
	skipHealth     bool
	samplingRate   float64
	logPayloads    bool
	maxPayloadSize int
	logMetadata    bool
	recoverPanics  bool
	logCategory    string

	injectLegacyXCloud bool
	enableOTel         bool
	tracerProvider     trace.TracerProvider
	propagators        propagation.TextMapPropagator
	propagatorsSet     bool
}

// defaultCodeToLevel categorizes gRPC status codes the way operators
// usually triage them: client mistakes and likely-transient conditions warn,
// clear server-side failures error, everything routine stays informational.
func defaultCodeToLevel(code codes.Code) slog.Level {
	switch code {
	case codes.OK, codes.Canceled:
		return slog.LevelInfo
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.Unauthenticated, codes.PermissionDenied:
		return slog.LevelWarn
	case codes.DeadlineExceeded, codes.ResourceExhausted, codes.FailedPrecondition,
		codes.Aborted, codes.OutOfRange, codes.Unavailable:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func defaultShouldLog(context.Context, string) bool { return true }

// WithLevels sets the status-code-to-level mapping for completion lines.
// Passing nil restores the default mapping.
func WithLevels(f CodeToLevel) Option {
	return func(o *options) {
		if f == nil {
			f = defaultCodeToLevel
		}
		o.levelFunc = f
	}
}

// WithShouldLog installs a filter deciding per call whether a request scope
// is opened. Passing nil restores the default, which folds every call.
func WithShouldLog(f ShouldLogFunc) Option {
	return func(o *options) {
		if f == nil {
			f = defaultShouldLog
		}
		o.shouldLogFunc = f
	}
}

// WithSkipMethods disables folding for calls whose full method name
// contains any of the given substrings. Health checks are the usual reason.
func WithSkipMethods(methods ...string) Option {
	return func(o *options) {
		o.skipMethods = append([]string(nil), methods...)
	}
}

// WithSkipHealthChecks disables folding for grpc.health.v1.Health calls,
// which load balancers and probes invoke once per check interval. Composes
// with WithSkipMethods.
func WithSkipHealthChecks() Option {
	return func(o *options) {
		o.skipHealth = true
	}
}

// WithSamplingRate folds only the given fraction of calls, between 0.0
// (none) and 1.0 (all). Sampling hashes the method name and call time so
// the kept calls spread evenly across methods.
func WithSamplingRate(rate float64) Option {
	return func(o *options) {
		o.samplingRate = math.Min(math.Max(rate, 0), 1)
	}
}

// WithLogCategory attaches a category field to every folded entry,
// distinguishing these entries from other logs in the same project.
func WithLogCategory(category string) Option {
	return func(o *options) {
		o.logCategory = category
	}
}

// WithPayloadLogging enables logging of request and response messages at
// DEBUG level. Payloads can be large and can contain sensitive data;
// combine with WithMaxPayloadSize in production. Disabled by default.
func WithPayloadLogging(enabled bool) Option {
	return func(o *options) {
		o.logPayloads = enabled
	}
}

// WithMaxPayloadSize truncates logged payloads larger than sizeBytes,
// marking the line with the original size. Zero or negative means no limit.
func WithMaxPayloadSize(sizeBytes int) Option {
	return func(o *options) {
		o.maxPayloadSize = max(sizeBytes, 0)
	}
}

// WithMetadataLogging enables logging of call metadata, filtered through
// the configured MetadataFilterFunc. Disabled by default.
func WithMetadataLogging(enabled bool) Option {
	return func(o *options) {
		o.logMetadata = enabled
	}
}

// WithMetadataFilter sets the filter applied to metadata keys before
// logging. Passing nil restores the default filter, which drops
// authorization and cookie headers. Only effective together with
// WithMetadataLogging(true).
func WithMetadataFilter(f MetadataFilterFunc) Option {
	return func(o *options) {
		if f == nil {
			f = defaultMetadataFilter
		}
		o.metadataFilter = f
	}
}

// WithRecoverPanics controls whether the server interceptors convert
// handler panics into codes.Internal after logging them. Set to false when
// a dedicated recovery interceptor runs earlier in the chain. Defaults to
// true.
func WithRecoverPanics(enabled bool) Option {
	return func(o *options) {
		o.recoverPanics = enabled
	}
}

// WithLegacyXCloudInjection makes the client interceptors synthesize the
// legacy X-Cloud-Trace-Context metadata entry on outbound calls in addition
// to the W3C traceparent. Defaults to false.
func WithLegacyXCloudInjection(enabled bool) Option {
	return func(o *options) {
		o.injectLegacyXCloud = enabled
	}
}

// WithOTel enables or disables the otelgrpc stats handlers installed by
// ServerOptions and DialOptions. Defaults to true.
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.enableOTel = enabled
	}
}

// WithTracerProvider overrides the tracer provider used by the otelgrpc
// stats handlers.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithPropagators overrides the propagator used for extracting and
// injecting trace context in call metadata.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagators = p
		o.propagatorsSet = true
	}
}

// processOptions applies opts over the defaults and composes the final
// shouldLogFunc from the user filter, the skip list, and the sampling rate,
// in that order.
func processOptions(opts []Option) *options {
	o := &options{
		levelFunc:      defaultCodeToLevel,
		shouldLogFunc:  defaultShouldLog,
		metadataFilter: defaultMetadataFilter,
		samplingRate:   1.0,
		recoverPanics:  true,
		enableOTel:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.skipHealth {
		o.skipMethods = append(o.skipMethods, "/grpc.health.v1.Health/")
	}

	userShouldLog := o.shouldLogFunc
	o.shouldLogFunc = func(ctx context.Context, fullMethod string) bool {
		if !userShouldLog(ctx, fullMethod) {
			return false
		}
		for _, skip := range o.skipMethods {
			if skip != "" && strings.Contains(fullMethod, skip) {
				return false
			}
		}
		if o.samplingRate <= 0 {
			return false
		}
		if o.samplingRate < 1 {
			// Hash the method name with the call time so sampling stays
			// deterministic per call without global state.
			h := fnv.New32a()
			_, _ = h.Write([]byte(fullMethod))
			_, _ = h.Write(fmt.Appendf(nil, "%d", time.Now().UnixNano()))
			if float64(h.Sum32())/float64(math.MaxUint32) >= o.samplingRate {
				return false
			}
		}
		return true
	}
	return o
}
