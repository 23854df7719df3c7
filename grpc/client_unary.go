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
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogfold"
)

// UnaryClientInterceptor returns a grpc.UnaryClientInterceptor that
// propagates trace context in outgoing metadata and logs each call's
// outcome into the surrounding request scope.
//
// It takes no handler argument: lines go to the logger stored on the
// calling context by a server interceptor or middleware, so outbound
// calls made while serving a request fold into that request's entry.
// Outside any scope the lines pass through the process default logger
// individually.
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := processOptions(opts)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		if !cfg.shouldLogFunc(ctx, method) {
			return invoker(ctx, method, req, reply, cc, callOpts...)
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

		var headerMD, trailerMD metadata.MD
		if cfg.logMetadata {
			callOpts = append(callOpts, grpc.Header(&headerMD), grpc.Trailer(&trailerMD))
		}

		if cfg.logPayloads {
			logPayload(ctx, logger, cfg, "sent", req)
		}

		start := time.Now()
		err := invoker(outCtx, method, req, reply, cc, callOpts...)
		duration := time.Since(start)

		if err == nil && cfg.logPayloads {
			logPayload(ctx, logger, cfg, "received", reply)
		}
		if cfg.logMetadata {
			if filtered := filterMetadata(headerMD, cfg.metadataFilter); filtered != nil {
				logger.LogAttrs(ctx, slog.LevelDebug, "response header",
					slog.Any(grpcResponseHeaderKey, filtered))
			}
			if filtered := filterMetadata(trailerMD, cfg.metadataFilter); filtered != nil {
				logger.LogAttrs(ctx, slog.LevelDebug, "response trailer",
					slog.Any(grpcResponseTrailerKey, filtered))
			}
		}

		attrs := []slog.Attr{
			slog.String(grpcServiceKey, service),
			slog.String(grpcMethodKey, methodName),
		}
		attrs = append(attrs, finishAttrs(duration, err, "")...)
		logger.LogAttrs(ctx, cfg.levelFunc(status.Code(err)), "finished grpc client call", attrs...)

		return err
	}
}
