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

package slogfold

import (
	"context"
	"sync"
)

// requestCell is the mutable slot a context chain shares for its active
// RequestLogs. Storing a cell rather than the RequestLogs itself lets
// SetRequest swap the active request without deriving a new context, which
// keeps Handler.Flush able to clear state through the same context the
// middleware already handed out.
type requestCell struct {
	mu     sync.Mutex
	active *RequestLogs
}

func (c *requestCell) swap(rl *RequestLogs) *RequestLogs {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.active
	c.active = rl
	return prev
}

func (c *requestCell) get() *RequestLogs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Token undoes a SetRequest. It restores whatever was active before the
// paired SetRequest call, so nested scopes unwind correctly. The zero Token
// is inert.
type Token struct {
	cell *requestCell
	prev *RequestLogs
}

// SetRequest marks rl as the active request on ctx and returns the context
// to use for the remainder of the request along with a Token that restores
// the previous state. Each request served concurrently must go through its
// own SetRequest call on its own context; the returned context must not be
// shared across requests.
func SetRequest(ctx context.Context, rl *RequestLogs) (context.Context, Token) {
	if ctx == nil {
		ctx = context.Background()
	}
	cell, ok := ctx.Value(requestCellContextKey).(*requestCell)
	if !ok {
		cell = &requestCell{}
		ctx = context.WithValue(ctx, requestCellContextKey, cell)
	}
	prev := cell.swap(rl)
	return ctx, Token{cell: cell, prev: prev}
}

// CurrentRequest returns the active RequestLogs for ctx. It is a read-only
// lookup: ok=false outside any request scope, with no side effects either
// way.
func CurrentRequest(ctx context.Context) (*RequestLogs, bool) {
	if ctx == nil {
		return nil, false
	}
	cell, ok := ctx.Value(requestCellContextKey).(*requestCell)
	if !ok {
		return nil, false
	}
	rl := cell.get()
	return rl, rl != nil
}

// ResetRequest restores the state captured by tok. Calling it with the zero
// Token, or after the scope was already cleared by Handler.Flush, is safe.
func ResetRequest(tok Token) {
	if tok.cell == nil {
		return
	}
	tok.cell.swap(tok.prev)
}

// takeRequest atomically detaches and returns the active RequestLogs,
// leaving the scope empty. A second call returns nil, which is how Flush
// stays idempotent.
func takeRequest(ctx context.Context) *RequestLogs {
	if ctx == nil {
		return nil
	}
	cell, ok := ctx.Value(requestCellContextKey).(*requestCell)
	if !ok {
		return nil
	}
	return cell.swap(nil)
}
