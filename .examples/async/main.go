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

// Command async queues entry writes behind the handler so request flushes
// never block on a slow destination. Dropped entries are counted through an
// OnDrop callback and Close stays bounded by a flush timeout.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/pjscruggs/slogfold"
	"github.com/pjscruggs/slogfold/async"
)

func main() {
	var dropped atomic.Int64

	w := async.NewWriter(os.Stdout,
		async.WithQueueSize(8),
		async.WithWorkerCount(2),
		async.WithDropMode(async.DropModeDropOldest),
		async.WithFlushTimeout(2*time.Second),
		async.WithOnDrop(func(entry []byte) { dropped.Add(1) }),
		async.WithEnv(),
	)

	handler := slogfold.New(
		slogfold.WithWriter(w),
		slogfold.WithLoggerName("async-example"),
	)
	logger := slog.New(handler)

	for i := range 3 {
		rl := slogfold.NewRequestLogs(fmt.Sprintf("job://async-example/run-%d", i), slogfold.TraceContext{})
		ctx, tok := slogfold.SetRequest(context.Background(), rl)
		logger.InfoContext(ctx, "starting run", slog.Int("run", i))
		logger.InfoContext(ctx, "run complete", slog.Int("run", i))
		if err := handler.Flush(ctx); err != nil {
			log.Printf("flush: %v", err)
		}
		slogfold.ResetRequest(tok)
	}

	if err := w.Close(); err != nil {
		log.Printf("async writer close: %v", err)
	}
	if n := dropped.Load(); n > 0 {
		log.Printf("dropped %d entries while the queue was full", n)
	}
}
