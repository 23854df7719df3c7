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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogfold"
)

func TestSplitMethodName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		fullMethod  string
		wantService string
		wantMethod  string
	}{
		{"Full", "/chat.ChatService/Send", "chat.ChatService", "Send"},
		{"NoLeadingSlash", "chat.ChatService/Send", "chat.ChatService", "Send"},
		{"MethodOnly", "/Send", "unknown", "Send"},
		{"Empty", "", "unknown", "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			service, method := splitMethodName(tt.fullMethod)
			if service != tt.wantService || method != tt.wantMethod {
				t.Errorf("splitMethodName(%q) = (%q, %q), want (%q, %q)",
					tt.fullMethod, service, method, tt.wantService, tt.wantMethod)
			}
		})
	}
}

func TestDefaultMetadataFilter(t *testing.T) {
	t.Parallel()

	blocked := []string{"authorization", "Authorization", "cookie", "Set-Cookie", "x-csrf-token", "grpc-trace-bin"}
	for _, key := range blocked {
		if defaultMetadataFilter(key) {
			t.Errorf("defaultMetadataFilter(%q) = true, want false", key)
		}
	}
	allowed := []string{"content-type", "x-request-id", "user-agent"}
	for _, key := range allowed {
		if !defaultMetadataFilter(key) {
			t.Errorf("defaultMetadataFilter(%q) = false, want true", key)
		}
	}
}

func TestFilterMetadata(t *testing.T) {
	t.Parallel()

	t.Run("DropsBlockedKeys", func(t *testing.T) {
		t.Parallel()
		md := metadata.Pairs(
			"authorization", "Bearer secret",
			"x-request-id", "req-1",
		)
		got := filterMetadata(md, nil)
		want := metadata.Pairs("x-request-id", "req-1")
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("filterMetadata() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CopiesValues", func(t *testing.T) {
		t.Parallel()
		md := metadata.Pairs("x-request-id", "req-1")
		got := filterMetadata(md, nil)
		got["x-request-id"][0] = "mutated"
		if md["x-request-id"][0] != "req-1" {
			t.Error("filterMetadata() aliased the original value slice")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		t.Parallel()
		if got := filterMetadata(nil, nil); got != nil {
			t.Errorf("filterMetadata(nil) = %v, want nil", got)
		}
		if got := filterMetadata(metadata.MD{}, nil); got != nil {
			t.Errorf("filterMetadata(empty) = %v, want nil", got)
		}
	})

	t.Run("AllFiltered", func(t *testing.T) {
		t.Parallel()
		md := metadata.Pairs("authorization", "Bearer secret")
		if got := filterMetadata(md, nil); got != nil {
			t.Errorf("filterMetadata() = %v, want nil", got)
		}
	})

	t.Run("CustomFilter", func(t *testing.T) {
		t.Parallel()
		md := metadata.Pairs("authorization", "Bearer secret", "x-request-id", "req-1")
		keepAll := func(string) bool { return true }
		got := filterMetadata(md, keepAll)
		if len(got) != 2 {
			t.Errorf("filterMetadata(keepAll) kept %d keys, want 2", len(got))
		}
	})
}

func TestFinishAttrs(t *testing.T) {
	t.Parallel()

	toMap := func(attrs []slog.Attr) map[string]string {
		m := make(map[string]string, len(attrs))
		for _, a := range attrs {
			m[a.Key] = a.Value.String()
		}
		return m
	}

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		got := toMap(finishAttrs(50*time.Millisecond, nil, ""))
		if len(got) != 2 {
			t.Fatalf("finishAttrs() produced %d attrs, want 2: %v", len(got), got)
		}
		if got[grpcCodeKey] != "OK" {
			t.Errorf("%s = %q, want OK", grpcCodeKey, got[grpcCodeKey])
		}
		if got[grpcDurationKey] != "50ms" {
			t.Errorf("%s = %q, want 50ms", grpcDurationKey, got[grpcDurationKey])
		}
	})

	t.Run("ErrorWithPeer", func(t *testing.T) {
		t.Parallel()
		err := status.Error(codes.NotFound, "no such room")
		got := toMap(finishAttrs(time.Second, err, "10.0.0.9:443"))
		if len(got) != 4 {
			t.Fatalf("finishAttrs() produced %d attrs, want 4: %v", len(got), got)
		}
		if got[grpcCodeKey] != "NotFound" {
			t.Errorf("%s = %q, want NotFound", grpcCodeKey, got[grpcCodeKey])
		}
		if got[peerAddressKey] != "10.0.0.9:443" {
			t.Errorf("%s = %q, want 10.0.0.9:443", peerAddressKey, got[peerAddressKey])
		}
		if !strings.Contains(got["error"], "no such room") {
			t.Errorf("error attr = %q, want it to mention the cause", got["error"])
		}
	})
}

func TestLogPanicReturnsInternal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slogfold.New(
		slogfold.WithWriter(&buf),
		slogfold.WithProjectID("my-proj"),
		slogfold.WithStructuredPassthrough(true),
	))

	err := logPanic(context.Background(), logger, "boom")
	if status.Code(err) != codes.Internal {
		t.Fatalf("status code = %v, want Internal", status.Code(err))
	}

	var entry map[string]any
	if jsonErr := json.Unmarshal(buf.Bytes(), &entry); jsonErr != nil {
		t.Fatalf("decode log entry: %v", jsonErr)
	}
	if entry["severity"] != "CRITICAL" {
		t.Errorf("severity = %v, want CRITICAL", entry["severity"])
	}
	msg, _ := entry["message"].(string)
	if !strings.Contains(msg, "panic recovered during grpc call") {
		t.Errorf("message = %q, want panic line", msg)
	}
}
