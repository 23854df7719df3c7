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

package slogfold_test

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/pjscruggs/slogfold"
)

func TestErrorReportingAttrsNilError(t *testing.T) {
	t.Parallel()

	if attrs := slogfold.ErrorReportingAttrs(nil); attrs != nil {
		t.Errorf("ErrorReportingAttrs(nil) = %v, want nil", attrs)
	}
}

func TestErrorReportingAttrsContents(t *testing.T) {
	t.Parallel()

	attrs := slogfold.ErrorReportingAttrs(
		errors.New("boom"),
		slogfold.WithErrorServiceContext("checkout", "v42"),
	)

	byKey := map[string]slog.Attr{}
	for _, a := range attrs {
		byKey[a.Key] = a
	}

	stack, ok := byKey["stack_trace"]
	if !ok {
		t.Fatal("attrs missing stack_trace")
	}
	stackText := stack.Value.String()
	if !strings.HasPrefix(stackText, "goroutine ") {
		t.Errorf("stack_trace = %q, want runtime panic format", stackText)
	}
	if !strings.Contains(stackText, "TestErrorReportingAttrsContents") {
		t.Errorf("stack_trace = %q, want caller frame present", stackText)
	}

	sc, ok := byKey["serviceContext"]
	if !ok {
		t.Fatal("attrs missing serviceContext")
	}
	scMap, ok := sc.Value.Any().(map[string]any)
	if !ok {
		t.Fatalf("serviceContext value is %T, want map", sc.Value.Any())
	}
	if scMap["service"] != "checkout" || scMap["version"] != "v42" {
		t.Errorf("serviceContext = %v, want explicit service and version", scMap)
	}
}

// TestReportErrorFoldsIntoRequest verifies the reporting helper logs through
// the normal path, so inside a request scope the error becomes a line in the
// folded entry.
func TestReportErrorFoldsIntoRequest(t *testing.T) {
	t.Parallel()

	h, buf := newTestHandler(t, "")
	logger := slog.New(h)

	ctx, tok := beginRequest(t, h, "https://x/y", "")
	defer slogfold.ResetRequest(tok)
	slogfold.ReportError(ctx, logger, errors.New("payment declined"), "charge failed",
		slogfold.WithErrorServiceContext("checkout", "v42"))
	if err := h.Flush(ctx); err != nil {
		t.Fatalf("Flush returned %v, want nil", err)
	}

	entry := decodeEntries(t, buf)[0]
	if got := entry["severity"]; got != "ERROR" {
		t.Errorf("severity = %v, want ERROR", got)
	}
	msg, _ := entry["message"].(string)
	if !strings.Contains(msg, "charge failed") || !strings.Contains(msg, "error=\"payment declined\"") {
		t.Errorf("message = %q, want report line with error attr", msg)
	}
	if !strings.Contains(msg, "stack_trace=") {
		t.Errorf("message = %q, want stack trace attached", msg)
	}
}

func TestReportErrorNilArguments(t *testing.T) {
	t.Parallel()

	h, buf := newTestHandler(t, "")
	logger := slog.New(h)

	slogfold.ReportError(t.Context(), logger, nil, "no error")
	slogfold.ReportError(t.Context(), nil, errors.New("x"), "no logger")

	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing for nil error or logger", buf.String())
	}
}
