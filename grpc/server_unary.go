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
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogfold"
)

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that folds
// each RPC into a single log entry emitted through h.
//
// For every call it opens a request scope keyed by the full method name,
// stores a scope-aware logger on the context for the handler to retrieve
// with slogfold.Logger, runs the handler, logs a completion line whose
// level follows the final status code, and flushes the scope. Trace
// context is extracted from incoming metadata so the entry correlates in
// Cloud Trace.
//
// Handler panics are logged at CRITICAL severity with a stack trace and
// converted to a codes.Internal error; with WithRecoverPanics(false) the
// entry is still emitted and the panic then continues up the chain.
//
// WithMetadataLogging and WithPayloadLogging add DEBUG lines for filtered
// call metadata and protojson-rendered messages. Those lines land in the
// same folded entry, subject to the handler's level.
func UnaryServerInterceptor(h *slogfold.Handler, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := processOptions(opts)
	logger := slog.New(h)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if !cfg.shouldLogFunc(ctx, info.FullMethod) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		ctx, tc := extractTrace(ctx, md, cfg)

		rl := slogfold.NewRequestLogs(info.FullMethod, tc)
		ctx, tok := slogfold.SetRequest(ctx, rl)
		ctx = slogfold.ContextWithLogger(ctx, logger)

		start := time.Now()
		service, method := splitMethodName(info.FullMethod)
		peerAddr := peerAddress(ctx)

		if cfg.logMetadata {
			if filtered := filterMetadata(md, cfg.metadataFilter); filtered != nil {
				logger.LogAttrs(ctx, slog.LevelDebug, "request metadata",
					slog.Any(grpcRequestMetadataKey, filtered))
			}
		}
		if cfg.logPayloads {
			logPayload(ctx, logger, cfg, "received", req)
		}

		defer func() {
			recovered := recover()
			if recovered != nil {
				err = logPanic(ctx, logger, recovered)
				resp = nil
			}

			duration := time.Since(start)
			level := cfg.levelFunc(status.Code(err))
			if recovered != nil {
				level = slogfold.LevelCritical.Level()
			}
			attrs := []slog.Attr{
				slog.String(grpcServiceKey, service),
				slog.String(grpcMethodKey, method),
			}
			attrs = append(attrs, finishAttrs(duration, err, peerAddr)...)
			logger.LogAttrs(ctx, level, "finished grpc call", attrs...)

			extra := map[string]any{
				grpcServiceKey:     service,
				grpcMethodKey:      method,
				grpcCodeKey:        status.Code(err).String(),
				"grpc.duration_ms": duration.Milliseconds(),
			}
			if peerAddr != "" {
				extra[peerAddressKey] = peerAddr
			}
			if cfg.logCategory != "" {
				extra[categoryKey] = cfg.logCategory
			}
			rl.AttachExtra(extra)

			// Write failures are routed to the handler's error callback.
			_ = h.Flush(ctx)
			slogfold.ResetRequest(tok)

			if recovered != nil && !cfg.recoverPanics {
				panic(recovered)
			}
		}()

		resp, err = handler(ctx, req)
		if err == nil && cfg.logPayloads {
			logPayload(ctx, logger, cfg, "sent", resp)
		}
		return resp, err
	}
}

// peerAddress returns the remote endpoint of the call, or "" when the
// transport did not record one.
func peerAddress(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}
