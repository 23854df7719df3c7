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
	"testing"

	"google.golang.org/grpc/codes"
)

func TestProcessOptionsDefaults(t *testing.T) {
	t.Parallel()

	o := processOptions(nil)
	if !o.shouldLogFunc(context.Background(), "/chat.ChatService/Send") {
		t.Error("default shouldLogFunc rejected a call")
	}
	if o.samplingRate != 1.0 {
		t.Errorf("samplingRate = %v, want 1.0", o.samplingRate)
	}
	if !o.recoverPanics {
		t.Error("recoverPanics = false, want true")
	}
	if !o.enableOTel {
		t.Error("enableOTel = false, want true")
	}
	if o.logPayloads || o.logMetadata {
		t.Error("payload and metadata logging should default to off")
	}
	if o.metadataFilter("authorization") {
		t.Error("default metadataFilter kept authorization")
	}
	if got := o.levelFunc(codes.Internal); got != slog.LevelError {
		t.Errorf("levelFunc(Internal) = %v, want Error", got)
	}
}

func TestDefaultCodeToLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code codes.Code
		want slog.Level
	}{
		{codes.OK, slog.LevelInfo},
		{codes.Canceled, slog.LevelInfo},
		{codes.InvalidArgument, slog.LevelWarn},
		{codes.NotFound, slog.LevelWarn},
		{codes.Unauthenticated, slog.LevelWarn},
		{codes.DeadlineExceeded, slog.LevelWarn},
		{codes.Unavailable, slog.LevelWarn},
		{codes.Internal, slog.LevelError},
		{codes.Unknown, slog.LevelError},
		{codes.DataLoss, slog.LevelError},
	}
	for _, tt := range tests {
		if got := defaultCodeToLevel(tt.code); got != tt.want {
			t.Errorf("defaultCodeToLevel(%v) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestShouldLogSkipMethods(t *testing.T) {
	t.Parallel()

	o := processOptions([]Option{WithSkipMethods("grpc.health", "grpc.reflection")})
	ctx := context.Background()

	if o.shouldLogFunc(ctx, "/grpc.health.v1.Health/Check") {
		t.Error("health check method was not skipped")
	}
	if o.shouldLogFunc(ctx, "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo") {
		t.Error("reflection method was not skipped")
	}
	if !o.shouldLogFunc(ctx, "/chat.ChatService/Send") {
		t.Error("regular method was skipped")
	}
}

func TestShouldLogSkipHealthChecks(t *testing.T) {
	t.Parallel()

	o := processOptions([]Option{WithSkipHealthChecks(), WithSkipMethods("/admin.Debug/")})
	ctx := context.Background()

	if o.shouldLogFunc(ctx, "/grpc.health.v1.Health/Check") {
		t.Error("health check was not skipped")
	}
	if o.shouldLogFunc(ctx, "/grpc.health.v1.Health/Watch") {
		t.Error("health watch was not skipped")
	}
	if o.shouldLogFunc(ctx, "/admin.Debug/Dump") {
		t.Error("skip methods entry was lost when composed with health checks")
	}
	if !o.shouldLogFunc(ctx, "/chat.ChatService/Send") {
		t.Error("regular method was skipped")
	}
}

func TestShouldLogSampling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	zero := processOptions([]Option{WithSamplingRate(0)})
	if zero.shouldLogFunc(ctx, "/chat.ChatService/Send") {
		t.Error("rate 0 still logs")
	}

	full := processOptions([]Option{WithSamplingRate(1)})
	for range 20 {
		if !full.shouldLogFunc(ctx, "/chat.ChatService/Send") {
			t.Fatal("rate 1 dropped a call")
		}
	}
}

func TestSamplingRateClamped(t *testing.T) {
	t.Parallel()

	if o := processOptions([]Option{WithSamplingRate(-0.5)}); o.samplingRate != 0 {
		t.Errorf("samplingRate = %v, want clamped to 0", o.samplingRate)
	}
	if o := processOptions([]Option{WithSamplingRate(1.5)}); o.samplingRate != 1 {
		t.Errorf("samplingRate = %v, want clamped to 1", o.samplingRate)
	}
}

func TestShouldLogComposesUserFilter(t *testing.T) {
	t.Parallel()

	o := processOptions([]Option{
		WithShouldLog(func(_ context.Context, fullMethod string) bool {
			return fullMethod != "/chat.ChatService/Mute"
		}),
		WithSkipMethods("Health"),
	})
	ctx := context.Background()

	if o.shouldLogFunc(ctx, "/chat.ChatService/Mute") {
		t.Error("user filter was not applied")
	}
	if o.shouldLogFunc(ctx, "/grpc.health.v1.Health/Check") {
		t.Error("skip list was not applied")
	}
	if !o.shouldLogFunc(ctx, "/chat.ChatService/Send") {
		t.Error("unfiltered method was rejected")
	}
}

func TestNilOptionsRestoreDefaults(t *testing.T) {
	t.Parallel()

	o := processOptions([]Option{
		WithLevels(nil),
		WithShouldLog(nil),
		WithMetadataFilter(nil),
	})
	if got := o.levelFunc(codes.Internal); got != slog.LevelError {
		t.Errorf("levelFunc(Internal) = %v, want Error", got)
	}
	if !o.shouldLogFunc(context.Background(), "/chat.ChatService/Send") {
		t.Error("shouldLogFunc rejected a call after nil reset")
	}
	if o.metadataFilter("cookie") {
		t.Error("metadataFilter kept cookie after nil reset")
	}
}

func TestWithMaxPayloadSizeFloorsAtZero(t *testing.T) {
	t.Parallel()

	if o := processOptions([]Option{WithMaxPayloadSize(-10)}); o.maxPayloadSize != 0 {
		t.Errorf("maxPayloadSize = %d, want 0", o.maxPayloadSize)
	}
	if o := processOptions([]Option{WithMaxPayloadSize(512)}); o.maxPayloadSize != 512 {
		t.Errorf("maxPayloadSize = %d, want 512", o.maxPayloadSize)
	}
}
