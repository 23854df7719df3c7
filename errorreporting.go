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
	"log/slog"
	"strings"

	"github.com/pjscruggs/slogfold/internal/gcp"
)

// ErrorReportingOption configures ErrorReportingAttrs and ReportError.
type ErrorReportingOption func(*errorReportingConfig)

type errorReportingConfig struct {
	service string
	version string
}

// WithErrorServiceContext sets the service name and version reported to
// Cloud Error Reporting. When omitted, the values are inferred from the
// execution environment (Cloud Run, Cloud Functions, App Engine).
func WithErrorServiceContext(service, version string) ErrorReportingOption {
	return func(cfg *errorReportingConfig) {
		cfg.service = strings.TrimSpace(service)
		cfg.version = strings.TrimSpace(version)
	}
}

// ErrorReportingAttrs returns attributes that make a log line recognizable
// to Cloud Error Reporting: the error text, a stack trace, and the service
// context. Append them to any logging call; inside a request scope they fold
// into the line like any other attribute.
func ErrorReportingAttrs(err error, opts ...ErrorReportingOption) []slog.Attr {
	if err == nil {
		return nil
	}

	cfg := resolveErrorReportingConfig(opts)
	attrs := make([]slog.Attr, 0, 3)
	if stack := captureStack(skipOwnFrames); stack != "" {
		attrs = append(attrs, slog.String("stack_trace", stack))
	}
	if sc := serviceContextValue(cfg); sc != nil {
		attrs = append(attrs, slog.Any("serviceContext", sc))
	}
	return attrs
}

// ReportError logs err through logger at ERROR level with Cloud Error
// Reporting metadata attached.
func ReportError(ctx context.Context, logger *slog.Logger, err error, msg string, opts ...ErrorReportingOption) {
	if logger == nil || err == nil {
		return
	}
	attrs := append([]slog.Attr{slog.Any("error", err)}, ErrorReportingAttrs(err, opts...)...)
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func resolveErrorReportingConfig(opts []ErrorReportingOption) errorReportingConfig {
	var cfg errorReportingConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.service != "" {
		return cfg
	}
	info := gcp.DetectRuntimeInfo()
	cfg.service = info.ServiceContext["service"]
	if cfg.version == "" {
		cfg.version = info.ServiceContext["version"]
	}
	return cfg
}

func serviceContextValue(cfg errorReportingConfig) map[string]any {
	if cfg.service == "" {
		return nil
	}
	sc := map[string]any{"service": cfg.service}
	if cfg.version != "" {
		sc["version"] = cfg.version
	}
	return sc
}

// addServiceContext decorates a flushed entry so Cloud Error Reporting
// groups it, unless the application already attached its own serviceContext
// through extra fields.
func addServiceContext(entry map[string]any) {
	if _, ok := entry["serviceContext"]; ok {
		return
	}
	if sc := serviceContextValue(resolveErrorReportingConfig(nil)); sc != nil {
		entry["serviceContext"] = sc
	}
}
