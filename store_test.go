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
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pjscruggs/slogfold"
)

func TestSetRequestRoundtrip(t *testing.T) {
	t.Parallel()

	rl := slogfold.NewRequestLogs("https://example.com/a", slogfold.TraceContext{})
	ctx, tok := slogfold.SetRequest(context.Background(), rl)

	got, ok := slogfold.CurrentRequest(ctx)
	if !ok {
		t.Fatal("CurrentRequest returned ok=false after SetRequest")
	}
	if got != rl {
		t.Errorf("CurrentRequest returned %p, want the request set on the context %p", got, rl)
	}

	slogfold.ResetRequest(tok)
	if _, ok := slogfold.CurrentRequest(ctx); ok {
		t.Error("CurrentRequest ok = true after ResetRequest, want false")
	}
}

func TestCurrentRequestOutsideScope(t *testing.T) {
	t.Parallel()

	if _, ok := slogfold.CurrentRequest(context.Background()); ok {
		t.Error("CurrentRequest(background) ok = true, want false")
	}
}

// TestSetRequestNesting verifies token-based unwinding: an inner scope
// restores the outer request, not an empty state.
func TestSetRequestNesting(t *testing.T) {
	t.Parallel()

	outer := slogfold.NewRequestLogs("outer", slogfold.TraceContext{})
	inner := slogfold.NewRequestLogs("inner", slogfold.TraceContext{})

	ctx, outerTok := slogfold.SetRequest(context.Background(), outer)
	ctx, innerTok := slogfold.SetRequest(ctx, inner)

	if got, _ := slogfold.CurrentRequest(ctx); got != inner {
		t.Fatalf("CurrentRequest = %v, want inner scope", got)
	}

	slogfold.ResetRequest(innerTok)
	if got, _ := slogfold.CurrentRequest(ctx); got != outer {
		t.Fatalf("CurrentRequest after inner reset = %v, want outer scope", got)
	}

	slogfold.ResetRequest(outerTok)
	if _, ok := slogfold.CurrentRequest(ctx); ok {
		t.Error("CurrentRequest ok = true after outer reset, want false")
	}
}

func TestResetRequestZeroToken(t *testing.T) {
	t.Parallel()

	// Must not panic.
	slogfold.ResetRequest(slogfold.Token{})
}

// TestRequestScopeIsolation runs many concurrent request scopes, each on its
// own context, and verifies no scope ever observes another's request.
func TestRequestScopeIsolation(t *testing.T) {
	t.Parallel()

	const requests = 64

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("https://example.com/r/%d", i)
			rl := slogfold.NewRequestLogs(url, slogfold.TraceContext{})
			ctx, tok := slogfold.SetRequest(context.Background(), rl)

			for j := 0; j < 100; j++ {
				got, ok := slogfold.CurrentRequest(ctx)
				if !ok || got.URL() != url {
					t.Errorf("request %d observed %v, want its own scope", i, got)
					return
				}
			}
			slogfold.ResetRequest(tok)
		}(i)
	}
	wg.Wait()
}
