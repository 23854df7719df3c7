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
	"path"
	"runtime"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogfold"
)

// Attribute keys shared by the client and server interceptors. Keeping one
// schema for both directions makes folded entries queryable with the same
// filters regardless of which side produced them.
const (
	grpcServiceKey  = "grpc.service"
	grpcMethodKey   = "grpc.method"
	grpcCodeKey     = "grpc.code"
	grpcDurationKey = "grpc.duration"
	peerAddressKey  = "peer.address"

	grpcRequestMetadataKey = "grpc.request.metadata"
	grpcResponseHeaderKey  = "grpc.response.header"
	grpcResponseTrailerKey = "grpc.response.trailer"

	panicValueKey = "panic.value"
	panicStackKey = "panic.stack_trace"

	payloadDirectionKey    = "grpc.payload.direction"
	payloadTypeKey         = "grpc.payload.type"
	payloadKey             = "grpc.payload.content"
	payloadPreviewKey      = "grpc.payload.preview"
	payloadTruncatedKey    = "grpc.payload.truncated"
	payloadOriginalSizeKey = "grpc.payload.original_size"

	categoryKey = "log.category"
)

// panicStackBufSize bounds the stack capture on panic. 8KB covers the
// relevant part of deep handler stacks.
const panicStackBufSize = 8192

// splitMethodName parses a gRPC full method name of the form
// "/package.Service/Method" into its service and method components. A
// missing leading slash is tolerated; a missing service component yields
// "unknown" so log queries never group on an empty string.
func splitMethodName(fullMethod string) (service, method string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service = path.Dir(fullMethod)
	method = path.Base(fullMethod)
	if service == "." || service == "" {
		service = "unknown"
	}
	return service, method
}

// defaultMetadataFilter excludes metadata keys that commonly carry
// credentials or session material, plus grpc-trace-bin which is handled by
// trace extraction. Matching is case-insensitive. Applications with
// stricter requirements should install their own filter with
// WithMetadataFilter.
func defaultMetadataFilter(key string) bool {
	switch strings.ToLower(key) {
	case "authorization", "cookie", "set-cookie", "x-csrf-token", "grpc-trace-bin":
		return false
	default:
		return true
	}
}

// filterMetadata returns a copy of md containing only the keys accepted by
// filter. Values are deep-copied so the result never aliases gRPC-owned
// slices. A nil filter uses defaultMetadataFilter; an empty result returns
// nil so callers can skip the attribute entirely.
func filterMetadata(md metadata.MD, filter MetadataFilterFunc) metadata.MD {
	if filter == nil {
		filter = defaultMetadataFilter
	}
	if len(md) == 0 {
		return nil
	}
	filtered := metadata.MD{}
	for k, v := range md {
		if filter(k) {
			vals := make([]string, len(v))
			copy(vals, v)
			filtered[k] = vals
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// finishAttrs assembles the attributes common to every RPC completion line:
// duration, final status code, peer address when known, and the error when
// one occurred.
func finishAttrs(duration time.Duration, err error, peerAddr string) []slog.Attr {
	attrs := []slog.Attr{
		slog.Duration(grpcDurationKey, duration),
		slog.String(grpcCodeKey, status.Code(err).String()),
	}
	if peerAddr != "" {
		attrs = append(attrs, slog.String(peerAddressKey, peerAddr))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	return attrs
}

// logPanic records a recovered panic into the current request scope at
// CRITICAL severity with a stack trace, and returns the sanitized
// codes.Internal error sent to the client. The panic detail stays in the
// log; the client sees only a generic message.
func logPanic(ctx context.Context, logger *slog.Logger, recovered any) error {
	stackBuf := make([]byte, panicStackBufSize)
	n := runtime.Stack(stackBuf, false)

	logger.LogAttrs(ctx, slogfold.LevelCritical.Level(), "panic recovered during grpc call",
		slog.Any(panicValueKey, recovered),
		slog.String(panicStackKey, string(stackBuf[:n])),
	)
	return status.Errorf(codes.Internal, "internal server error")
}
