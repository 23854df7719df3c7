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
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogfold"
)

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// folds each stream into a single log entry emitted through h.
//
// The scope covers the whole stream lifetime. Handler code sees a
// wrapped stream whose Context carries the scope and the scope-aware
// logger, so lines logged between messages fold into the same entry.
// When the handler returns, a completion line records the final status
// along with the number of messages received and sent.
//
// Panic handling and the metadata and payload options behave as they do
// for UnaryServerInterceptor.
func StreamServerInterceptor(h *slogfold.Handler, opts ...Option) grpc.StreamServerInterceptor {
	cfg := processOptions(opts)
	logger := slog.New(h)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx := ss.Context()
		if !cfg.shouldLogFunc(ctx, info.FullMethod) {
			return handler(srv, ss)
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

		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          ctx,
			logger:       logger,
			cfg:          cfg,
		}

		defer func() {
			recovered := recover()
			if recovered != nil {
				err = logPanic(ctx, logger, recovered)
			}

			duration := time.Since(start)
			level := cfg.levelFunc(status.Code(err))
			if recovered != nil {
				level = slogfold.LevelCritical.Level()
			}
			attrs := []slog.Attr{
				slog.String(grpcServiceKey, service),
				slog.String(grpcMethodKey, method),
				slog.Int64("grpc.messages_received", wrapped.received.Load()),
				slog.Int64("grpc.messages_sent", wrapped.sent.Load()),
			}
			attrs = append(attrs, finishAttrs(duration, err, peerAddr)...)
			logger.LogAttrs(ctx, level, "finished grpc stream", attrs...)

			extra := map[string]any{
				grpcServiceKey:           service,
				grpcMethodKey:            method,
				grpcCodeKey:              status.Code(err).String(),
				"grpc.duration_ms":       duration.Milliseconds(),
				"grpc.stream_kind":       streamKind(info),
				"grpc.messages_received": wrapped.received.Load(),
				"grpc.messages_sent":     wrapped.sent.Load(),
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

		err = handler(srv, wrapped)
		return err
	}
}

// wrappedServerStream swaps the stream context for the scoped one and
// counts messages in each direction.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx      context.Context
	logger   *slog.Logger
	cfg      *options
	received atomic.Int64
	sent     atomic.Int64
}

func (w *wrappedServerStream) Context() context.Context { return w.ctx }

func (w *wrappedServerStream) RecvMsg(m any) error {
	err := w.ServerStream.RecvMsg(m)
	if err != nil {
		return err
	}
	w.received.Add(1)
	if w.cfg.logPayloads {
		logPayload(w.ctx, w.logger, w.cfg, "received", m)
	}
	return nil
}

func (w *wrappedServerStream) SendMsg(m any) error {
	if w.cfg.logPayloads {
		logPayload(w.ctx, w.logger, w.cfg, "sent", m)
	}
	err := w.ServerStream.SendMsg(m)
	if err == nil {
		w.sent.Add(1)
	}
	return err
}

func streamKind(info *grpc.StreamServerInfo) string {
	switch {
	case info.IsClientStream && info.IsServerStream:
		return "bidi"
	case info.IsClientStream:
		return "client_stream"
	default:
		return "server_stream"
	}
}
