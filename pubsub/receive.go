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

package pubsub

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"

	"github.com/pjscruggs/slogfold"
)

const panicStackBufSize = 8192

// nack requests redelivery of a message. Tests swap it to observe the
// panic path without a live subscription.
var nack = func(msg *gcppubsub.Message) { msg.Nack() }

// WrapReceiveHandler decorates a pubsub.Subscription.Receive callback so
// each message folds into a single log entry emitted through h.
//
// For every message it opens a request scope whose URL names the
// subscription and message ("pubsub://orders-sub/128450698986"), stores a
// scope-aware logger on the context for the callback to retrieve with
// slogfold.Logger, runs the callback, logs a completion line, and flushes
// the scope. The callback keeps full control of Ack and Nack.
//
// A panicking callback is logged at CRITICAL severity with a stack trace
// and the message is nacked for redelivery (see WithNackOnPanic). The
// entry is flushed either way; with WithRecoverPanics(false) the panic
// then continues up to the Receive goroutine.
func WrapReceiveHandler(h *slogfold.Handler, handler func(context.Context, *gcppubsub.Message), opts ...Option) func(context.Context, *gcppubsub.Message) {
	cfg := applyOptions(opts)
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(h)
	}

	return func(ctx context.Context, msg *gcppubsub.Message) {
		if handler == nil || msg == nil {
			return
		}

		ctx, tc := extractTrace(ctx, msg.Attributes, cfg)

		rl := slogfold.NewRequestLogs(messageURL(cfg.subscriptionID, msg), tc)
		ctx, tok := slogfold.SetRequest(ctx, rl)
		ctx = slogfold.ContextWithLogger(ctx, logger)

		start := time.Now()
		defer func() {
			recovered := recover()
			if recovered != nil {
				stackBuf := make([]byte, panicStackBufSize)
				n := runtime.Stack(stackBuf, false)
				logger.LogAttrs(ctx, slogfold.LevelCritical.Level(), "panic recovered during message handling",
					slog.Any("panic.value", recovered),
					slog.String("panic.stack_trace", string(stackBuf[:n])))
				if cfg.nackOnPanic {
					nack(msg)
				}
			}

			duration := time.Since(start)
			logger.LogAttrs(ctx, slog.LevelInfo, "finished pubsub message",
				slog.String("pubsub.message_id", msg.ID),
				slog.Duration("pubsub.duration", duration))

			extra := map[string]any{
				"pubsub.message_id":  msg.ID,
				"pubsub.duration_ms": duration.Milliseconds(),
			}
			if cfg.subscriptionID != "" {
				extra["pubsub.subscription"] = cfg.subscriptionID
			}
			if cfg.logOrderingKey && msg.OrderingKey != "" {
				extra["pubsub.ordering_key"] = msg.OrderingKey
			}
			if cfg.logDeliveryAttempt && msg.DeliveryAttempt != nil {
				extra["pubsub.delivery_attempt"] = *msg.DeliveryAttempt
			}
			if cfg.logPublishTime && !msg.PublishTime.IsZero() {
				extra["pubsub.publish_time"] = msg.PublishTime.UTC().Format(time.RFC3339Nano)
			}
			rl.AttachExtra(extra)

			// Write failures are routed to the handler's error callback.
			_ = h.Flush(ctx)
			slogfold.ResetRequest(tok)

			if recovered != nil && !cfg.recoverPanics {
				panic(recovered)
			}
		}()

		handler(ctx, msg)
	}
}

// messageURL forms the scope URL for a message. An unknown subscription
// renders as "-" so the URL keeps its shape.
func messageURL(subscriptionID string, msg *gcppubsub.Message) string {
	if subscriptionID == "" {
		subscriptionID = "-"
	}
	return "pubsub://" + subscriptionID + "/" + msg.ID
}
