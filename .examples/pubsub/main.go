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

// Command pubsub folds each received message into one log entry and carries
// trace context from publisher to subscriber through message attributes.
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pjscruggs/slogfold"
	foldpubsub "github.com/pjscruggs/slogfold/pubsub"
)

func main() {
	ctx := context.Background()

	tracerProvider := sdktrace.NewTracerProvider()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown tracer provider: %v", err)
		}
	}()

	handler := slogfold.New(slogfold.WithLoggerName("pubsub-example"))

	// Publisher side: stamp the outgoing message with the active span.
	publishCtx, span := tracerProvider.Tracer("examples/pubsub").Start(ctx, "publish")
	msg := &pubsub.Message{
		Data: []byte(`{"order":"A-1001"}`),
	}
	foldpubsub.Inject(publishCtx, msg)
	span.End()

	// A live subscription assigns these on delivery.
	msg.ID = "128450698986"
	msg.PublishTime = time.Now()

	receive := foldpubsub.WrapReceiveHandler(handler,
		func(ctx context.Context, msg *pubsub.Message) {
			logger := slogfold.Logger(ctx)
			logger.InfoContext(ctx, "processing message", slog.String("payload", string(msg.Data)))
			msg.Ack()
		},
		foldpubsub.WithSubscriptionID("orders-sub"),
		foldpubsub.WithLogPublishTime(true),
	)

	receive(ctx, msg)
}
