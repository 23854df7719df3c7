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
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/pjscruggs/slogfold/internal/gcp"
)

// Environment variables consulted when the corresponding option is not set
// explicitly.
const (
	envLevel                 = "SLOGFOLD_LEVEL"
	envLoggerName            = "SLOGFOLD_LOGGER_NAME"
	envTraceHeader           = "SLOGFOLD_TRACE_HEADER"
	envStructuredPassthrough = "SLOGFOLD_STRUCTURED_PASSTHROUGH"
	envErrorReporting        = "SLOGFOLD_ERROR_REPORTING"
)

// defaultLoggerName labels entries whose handler was not given a name,
// matching the name of an unconfigured root logger.
const defaultLoggerName = "root"

// Option configures a Handler during construction via New. Options are
// applied in order, so later options override earlier ones and any values
// taken from the environment.
type Option func(*options)

// options holds configurable Handler settings. Fields are pointers so an
// explicitly set zero value can be told apart from an unset option, which
// falls back to environment variables or defaults.
type options struct {
	level          slog.Leveler
	name           *string
	projectID      *string
	traceHeader    *string
	structured     *bool
	errorReporting *bool
	encoder        Encoder
	writer         io.Writer
	errFn          func(error)
}

// WithLevel returns an Option that sets the minimum level the Handler
// reports as enabled. Pass a slog.LevelVar to adjust the level at runtime.
// This overrides the SLOGFOLD_LEVEL environment variable. The default is
// slog.LevelDebug: requests fold every line they log, and verbosity is
// decided when reading, not when writing.
func WithLevel(level slog.Leveler) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLoggerName returns an Option that sets the name field stamped on every
// emitted entry, identifying the producing service or component. This
// overrides the SLOGFOLD_LOGGER_NAME environment variable. Defaults to
// "root".
func WithLoggerName(name string) Option {
	return func(o *options) {
		n := name
		o.name = &n
	}
}

// WithProjectID returns an Option that explicitly sets the Google Cloud
// project ID used to build the trace resource name on emitted entries.
// This takes precedence over the GCP_PROJECT, GOOGLE_CLOUD_PROJECT, and
// GCLOUD_PROJECT environment variables and over metadata server detection.
// Setting it to the empty string disables trace qualification entirely.
func WithProjectID(id string) Option {
	return func(o *options) {
		v := id
		o.projectID = &v
	}
}

// WithTraceHeader returns an Option that sets the request header read for
// incoming trace context. This overrides the SLOGFOLD_TRACE_HEADER
// environment variable. Defaults to DefaultTraceHeader.
func WithTraceHeader(name string) Option {
	return func(o *options) {
		h := name
		o.traceHeader = &h
	}
}

// WithEncoder returns an Option that replaces the JSON serializer used for
// emitted entries. The encoder changes bytes only; entry structure and write
// behavior are unaffected. When the encoder returns an error or panics, the
// Handler falls back to the default encoder and emits a degraded entry.
func WithEncoder(enc Encoder) Option {
	return func(o *options) {
		o.encoder = enc
	}
}

// WithWriter returns an Option that sets the destination for emitted
// entries. Defaults to os.Stdout, where the Cloud Logging agent picks up
// one JSON object per line.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithStructuredPassthrough returns an Option controlling how records logged
// outside any request scope are written. When enabled, each such record
// becomes its own single-record JSON entry through the configured encoder.
// When disabled (the default), the rendered line is written as plain text.
// This overrides the SLOGFOLD_STRUCTURED_PASSTHROUGH environment variable.
func WithStructuredPassthrough(enabled bool) Option {
	return func(o *options) {
		v := enabled
		o.structured = &v
	}
}

// WithErrorReporting returns an Option that decorates entries at or above
// ERROR severity with the serviceContext field Cloud Error Reporting groups
// errors by. The service context is inferred from the runtime environment
// (Cloud Run, Cloud Functions, App Engine). This overrides the
// SLOGFOLD_ERROR_REPORTING environment variable. Defaults to false.
func WithErrorReporting(enabled bool) Option {
	return func(o *options) {
		v := enabled
		o.errorReporting = &v
	}
}

// WithErrorHandler returns an Option that sets the callback invoked when
// writing or encoding an entry fails. The callback must not log through the
// same Handler. The default writes a diagnostic line to stderr.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errFn = fn
	}
}

// applyOptions merges explicit options over environment variables over
// defaults.
func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.level == nil {
		o.level = levelFromEnv()
	}
	if o.name == nil {
		name := defaultLoggerName
		if v := os.Getenv(envLoggerName); v != "" {
			name = v
		}
		o.name = &name
	}
	if o.traceHeader == nil {
		header := DefaultTraceHeader
		if v := os.Getenv(envTraceHeader); v != "" {
			header = v
		}
		o.traceHeader = &header
	}
	if o.projectID == nil {
		id := gcp.ProjectID()
		o.projectID = &id
	}
	if o.structured == nil {
		v := boolFromEnv(envStructuredPassthrough, false)
		o.structured = &v
	}
	if o.errorReporting == nil {
		v := boolFromEnv(envErrorReporting, false)
		o.errorReporting = &v
	}
	if o.encoder == nil {
		o.encoder = defaultEncoder
	}
	if o.writer == nil {
		o.writer = os.Stdout
	}
	if o.errFn == nil {
		o.errFn = defaultErrorHandler
	}
	return o
}

func defaultErrorHandler(err error) {
	fmt.Fprintf(os.Stderr, "[slogfold] %v\n", err)
}

// levelFromEnv reads SLOGFOLD_LEVEL. Unset or unparseable values fall back
// to slog.LevelDebug; a bad value is reported on stderr rather than
// silently changing what gets logged.
func levelFromEnv() slog.Leveler {
	raw := os.Getenv(envLevel)
	if raw == "" {
		return slog.LevelDebug
	}
	lvl, err := parseLevelName(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[slogfold config] WARNING: ignoring %s: %v\n", envLevel, err)
		return slog.LevelDebug
	}
	return lvl
}

// boolFromEnv parses a boolean environment variable, returning fallback for
// unset or unparseable values.
func boolFromEnv(name string, fallback bool) bool {
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
