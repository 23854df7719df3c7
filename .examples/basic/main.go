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

// Command basic folds a unit of work into a single stdout log entry.
package main

import (
	"context"
	"log/slog"

	"github.com/pjscruggs/slogfold"
)

func main() {
	handler := slogfold.New(slogfold.WithLoggerName("basic-example"))
	logger := slog.New(handler)

	// Open a scope for one unit of work. Every record logged with this
	// context is collected instead of written.
	rl := slogfold.NewRequestLogs("job://basic-example/run-1", slogfold.TraceContext{})
	ctx, tok := slogfold.SetRequest(context.Background(), rl)
	defer slogfold.ResetRequest(tok)

	logger.InfoContext(ctx, "starting run")
	logger.InfoContext(ctx, "loaded configuration", slog.Int("rules", 14))
	logger.WarnContext(ctx, "cache unavailable, using source data")

	// Flush emits one entry holding all three lines at WARNING severity.
	if err := handler.Flush(ctx); err != nil {
		logger.Error("flush failed", slog.Any("error", err))
	}
}
