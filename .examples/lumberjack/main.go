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

// Command lumberjack sends folded entries to a rotating lumberjack writer.
package main

import (
	"context"
	"log"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pjscruggs/slogfold"
)

func main() {
	rolling := &lumberjack.Logger{
		Filename:   "slogfold-rolling.log",
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}
	defer func() {
		if err := rolling.Close(); err != nil {
			log.Printf("close lumberjack writer: %v", err)
		}
	}()

	handler := slogfold.New(
		slogfold.WithWriter(rolling),
		slogfold.WithLoggerName("lumberjack-example"),
		slogfold.WithLevel(slog.LevelInfo),
	)
	logger := slog.New(handler)

	rl := slogfold.NewRequestLogs("job://lumberjack-example/batch-1", slogfold.TraceContext{})
	ctx, tok := slogfold.SetRequest(context.Background(), rl)
	for i := range 5 {
		logger.InfoContext(ctx, "processing event", slog.Int("index", i))
	}
	if err := handler.Flush(ctx); err != nil {
		log.Printf("flush: %v", err)
	}
	slogfold.ResetRequest(tok)

	// Trigger a manual rotation to highlight lumberjack's API surface.
	if err := rolling.Rotate(); err != nil {
		log.Printf("rotate log file: %v", err)
	}
}
