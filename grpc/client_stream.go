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
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogfold"
)

// StreamClientInterceptor returns a grpc.StreamClientInterceptor that
// propagates trace context and logs each stream's outcome into the
// surrounding request scope.
//
// The outcome line is emitted exactly once, when the stream terminates:
// on the RecvMsg that returns io.EOF or an error, on the final response
// of a non-server-streaming call, or on a SendMsg failure. Like
// UnaryClientInterceptor it logs through the context logger rather than
// taking a handler argument.
func StreamClientInterceptor(opts ...Option) grpc.StreamClientInterceptor {
	cfg := processOptions(opts)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		if !cfg.shouldLogFunc(ctx, method) {
			return streamer(ctx, desc, cc, method, callOpts...)
		}

		md, ok := metadata.FromOutgoingContext(ctx)
		if ok {
			md = md.Copy()
		} else {
			md = metadata.New(nil)
		}
		injectClientTrace(ctx, md, cfg)
		outCtx := metadata.NewOutgoingContext(ctx, md)

		logger := slogfold.Logger(ctx)
		service, methodName := splitMethodName(method)
		start := time.Now()

		cs, err := streamer(outCtx, desc, cc, method, callOpts...)
		if err != nil {
			attrs := []slog.Attr{
				slog.String(grpcServiceKey, service),
				slog.String(grpcMethodKey, methodName),
			}
			attrs = append(attrs, finishAttrs(time.Since(start), err, "")...)
			logger.LogAttrs(ctx, cfg.levelFunc(status.Code(err)), "finished grpc client stream", attrs...)
			return nil, err
		}

		return &wrappedClientStream{
			ClientStream: cs,
			ctx:          ctx,
			logger:       logger,
			cfg:          cfg,
			desc:         desc,
			start:        start,
			service:      service,
			method:       methodName,
		}, nil
	}
}

// wrappedClientStream watches message traffic to decide when the stream
// is over and the outcome line should be written.
type wrappedClientStream struct {
	grpc.ClientStream
	ctx     context.Context
	logger  *slog.Logger
	cfg     *options
	desc    *grpc.StreamDesc
	start   time.Time
	service string
	method  string
	once    sync.Once
}

func (w *wrappedClientStream) SendMsg(m any) error {
	if w.cfg.logPayloads {
		logPayload(w.ctx, w.logger, w.cfg, "sent", m)
	}
	err := w.ClientStream.SendMsg(m)
	// SendMsg reports io.EOF when the stream has already terminated; the
	// real status comes from the RecvMsg that follows.
	if err != nil && !errors.Is(err, io.EOF) {
		w.finish(err)
	}
	return err
}

func (w *wrappedClientStream) RecvMsg(m any) error {
	err := w.ClientStream.RecvMsg(m)
	switch {
	case err == nil:
		if w.cfg.logPayloads {
			logPayload(w.ctx, w.logger, w.cfg, "received", m)
		}
		if !w.desc.ServerStreams {
			w.finish(nil)
		}
	case errors.Is(err, io.EOF):
		w.finish(nil)
	default:
		w.finish(err)
	}
	return err
}

func (w *wrappedClientStream) finish(err error) {
	w.once.Do(func() {
		attrs := []slog.Attr{
			slog.String(grpcServiceKey, w.service),
			slog.String(grpcMethodKey, w.method),
		}
		attrs = append(attrs, finishAttrs(time.Since(w.start), err, "")...)
		w.logger.LogAttrs(w.ctx, w.cfg.levelFunc(status.Code(err)), "finished grpc client stream", attrs...)
	})
}
