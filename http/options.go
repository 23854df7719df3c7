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
	"log/slog"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Environment variables read by applyOptions. Explicit options win over the
// environment.
const (
	envSkipPaths        = "SLOGFOLD_HTTP_SKIP_PATHS"
	envSkipHealthChecks = "SLOGFOLD_HTTP_SKIP_HEALTH_CHECKS"
	envRecoverPanics    = "SLOGFOLD_HTTP_RECOVER_PANICS"
	envRequestID        = "SLOGFOLD_HTTP_REQUEST_ID"
	envOTel             = "SLOGFOLD_HTTP_OTEL"
)

// Option configures the middleware returned by Middleware.
type Option func(*config)

type config struct {
	logger           *slog.Logger
	skipPaths        []string
	skipProbes       bool
	recoverPanics    bool
	requestID        bool
	includeClientIP  bool
	includeUserAgent bool

	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	publicEndpoint bool
}

func defaultConfig() *config {
	return &config{
		recoverPanics:   true,
		includeClientIP: true,
		enableOTel:      true,
	}
}

// applyOptions layers environment settings and then explicit options over
// the defaults.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	loadConfigFromEnv(cfg)
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// loadConfigFromEnv applies environment overrides. Invalid values are
// ignored rather than failing middleware construction.
func loadConfigFromEnv(cfg *config) {
	if raw := os.Getenv(envSkipPaths); raw != "" {
		cfg.skipPaths = splitList(raw)
	}
	cfg.skipProbes = boolEnv(envSkipHealthChecks, cfg.skipProbes)
	cfg.recoverPanics = boolEnv(envRecoverPanics, cfg.recoverPanics)
	cfg.requestID = boolEnv(envRequestID, cfg.requestID)
	cfg.enableOTel = boolEnv(envOTel, cfg.enableOTel)
}

// WithLogger sets the logger used for the middleware's own lines (request
// completion, panics) and stored on the request context for handlers. It
// should log through the same Handler passed to Middleware; by default the
// middleware builds exactly that logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithSkipPaths disables folding for requests whose URL path contains any of
// the given substrings. Health and readiness probes are the usual reason:
// they would otherwise emit an entry per probe.
func WithSkipPaths(substrings ...string) Option {
	return func(cfg *config) {
		cfg.skipPaths = append([]string(nil), substrings...)
	}
}

// WithSkipHealthChecks disables folding for requests recognized as health
// or readiness probes: well-known probe paths such as /healthz, and the
// user agents of Google load balancer, uptime check, and kubelet probes.
// Broader suppression belongs in WithSkipPaths. Defaults to false.
func WithSkipHealthChecks() Option {
	return func(cfg *config) {
		cfg.skipProbes = true
	}
}

// WithRecoverPanics controls whether handler panics are caught after being
// logged and flushed. When disabled the panic continues up the stack;
// net/http's server will abort the connection. Defaults to true.
func WithRecoverPanics(enabled bool) Option {
	return func(cfg *config) {
		cfg.recoverPanics = enabled
	}
}

// WithRequestID assigns each request an ID, echoed in the X-Request-Id
// response header and attached to the emitted entry. An incoming
// X-Request-Id is reused. Defaults to false.
func WithRequestID(enabled bool) Option {
	return func(cfg *config) {
		cfg.requestID = enabled
	}
}

// WithClientIP controls whether the client address is attached to the
// emitted entry. Defaults to true.
func WithClientIP(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeClientIP = enabled
	}
}

// WithUserAgent controls whether the User-Agent header is attached to the
// emitted entry. Defaults to false.
func WithUserAgent(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeUserAgent = enabled
	}
}

// WithOTel enables or disables the otelhttp server instrumentation wrapped
// around the middleware. Defaults to true.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider overrides the tracer provider used by the otelhttp
// layer.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithPropagators overrides the propagator used for extracting incoming
// trace context, for both the otelhttp layer and span synthesis.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithPublicEndpoint marks the server as a public endpoint for the otelhttp
// layer: incoming trace context becomes a link rather than a parent.
func WithPublicEndpoint() Option {
	return func(cfg *config) {
		cfg.publicEndpoint = true
	}
}

func boolEnv(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
