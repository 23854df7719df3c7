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
	"log/slog"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/propagation"
)

// Option configures WrapReceiveHandler and the Inject and Extract helpers.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	subscriptionID string

	recoverPanics bool
	nackOnPanic   bool

	logOrderingKey     bool
	logDeliveryAttempt bool
	logPublishTime     bool

	propagators          propagation.TextMapPropagator
	propagatorsSet       bool
	googClientExtraction bool
	googClientInjection  bool
}

func defaultConfig() *config {
	return &config{
		recoverPanics:      true,
		nackOnPanic:        true,
		logDeliveryAttempt: true,
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithLogger sets the logger stored on the message context. When omitted,
// WrapReceiveHandler builds one from the handler it was given.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithSubscription records the subscription whose ID tags entries and
// forms the scope URL. Nil is ignored.
func WithSubscription(sub *gcppubsub.Subscription) Option {
	return func(cfg *config) {
		if sub == nil {
			return
		}
		cfg.subscriptionID = strings.TrimSpace(sub.ID())
	}
}

// WithSubscriptionID is WithSubscription for callers that only have the
// subscription ID.
func WithSubscriptionID(subscriptionID string) Option {
	return func(cfg *config) {
		cfg.subscriptionID = strings.TrimSpace(subscriptionID)
	}
}

// WithRecoverPanics controls whether a callback panic is swallowed after
// being logged and nacked. Set to false to let the panic continue up to
// the Receive goroutine once the entry has been emitted. Defaults to true.
func WithRecoverPanics(enabled bool) Option {
	return func(cfg *config) {
		cfg.recoverPanics = enabled
	}
}

// WithNackOnPanic controls whether a panicking callback nacks the message
// so Pub/Sub redelivers it. Defaults to true.
func WithNackOnPanic(enabled bool) Option {
	return func(cfg *config) {
		cfg.nackOnPanic = enabled
	}
}

// WithLogOrderingKey controls whether entries include the message's
// ordering key. Off by default; ordering keys can be high cardinality.
func WithLogOrderingKey(enabled bool) Option {
	return func(cfg *config) {
		cfg.logOrderingKey = enabled
	}
}

// WithLogDeliveryAttempt controls whether entries include the delivery
// attempt count when the subscription tracks it. Defaults to true.
func WithLogDeliveryAttempt(enabled bool) Option {
	return func(cfg *config) {
		cfg.logDeliveryAttempt = enabled
	}
}

// WithLogPublishTime controls whether entries include the message publish
// timestamp. Off by default.
func WithLogPublishTime(enabled bool) Option {
	return func(cfg *config) {
		cfg.logPublishTime = enabled
	}
}

// WithPropagators overrides the propagator used for reading and writing
// trace context in message attributes.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithGoogClientCompat enables interop with the Cloud Pub/Sub client's
// prefixed trace attributes (googclient_traceparent): extraction falls
// back to them and injection writes them alongside the standard keys.
func WithGoogClientCompat(enabled bool) Option {
	return func(cfg *config) {
		cfg.googClientExtraction = enabled
		cfg.googClientInjection = enabled
	}
}
