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
)

// contextKey is a private type for context values defined by this package.
// Using a dedicated type prevents collisions with keys from other packages.
type contextKey int

const (
	loggerContextKey contextKey = iota
	requestCellContextKey
)

// ContextWithLogger returns a copy of ctx carrying logger. Transport
// middleware stores its request-scoped logger this way so that handler code
// can retrieve it with Logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger returns the logger stored in ctx by ContextWithLogger. When ctx
// carries no logger, it returns slog.Default so callers can always log.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}
