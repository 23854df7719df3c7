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
	"log/slog"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// logPayload renders a message as protojson and logs it at DEBUG in the
// named direction ("sent" or "received"). Messages larger than
// cfg.maxPayloadSize are cut down to a preview with the original size
// recorded. Marshal failures produce a WARN line instead of an error;
// payload logging must never affect the call itself.
func logPayload(ctx context.Context, logger *slog.Logger, cfg *options, direction string, m any) {
	p, ok := m.(proto.Message)
	if !ok {
		logger.LogAttrs(ctx, slog.LevelDebug, "grpc payload "+direction,
			slog.String(payloadDirectionKey, direction),
			slog.String(payloadTypeKey, fmt.Sprintf("%T", m)))
		return
	}

	data, err := protojson.MarshalOptions{UseProtoNames: true, AllowPartial: true}.Marshal(p)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "failed to marshal grpc payload",
			slog.String(payloadDirectionKey, direction),
			slog.String(payloadTypeKey, fmt.Sprintf("%T", p)),
			slog.Any("error", err))
		return
	}

	payload := string(data)
	originalSize := len(payload)
	truncated := cfg.maxPayloadSize > 0 && originalSize > cfg.maxPayloadSize

	attrs := []slog.Attr{
		slog.String(payloadDirectionKey, direction),
		slog.String(payloadTypeKey, fmt.Sprintf("%T", p)),
	}
	if truncated {
		attrs = append(attrs,
			slog.String(payloadPreviewKey, payload[:cfg.maxPayloadSize]),
			slog.Int(payloadOriginalSizeKey, originalSize),
			slog.Bool(payloadTruncatedKey, true))
	} else {
		attrs = append(attrs, slog.String(payloadKey, payload))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "grpc payload "+direction, attrs...)
}
