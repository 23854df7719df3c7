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

// Package pubsub folds Pub/Sub message handling into single Cloud Logging
// entries.
//
// WrapReceiveHandler decorates a pubsub.Subscription.Receive callback so
// that every slog call made while processing a message is collected and
// emitted as one entry when the callback returns, tagged with the
// subscription, message ID, and processing duration. Trace context is
// read from message attributes (W3C traceparent, optionally the Go
// client's googclient_ prefixed keys, or a legacy X-Cloud-Trace-Context
// attribute) so entries correlate with the publisher's trace.
//
// A panicking callback is logged at CRITICAL severity, the message is
// nacked for redelivery, and the entry is still emitted.
//
// Inject and Extract carry trace context through message attributes on
// the publish and receive sides for code outside the wrapper.
//
// Import the package under a name that does not collide with the Cloud
// client:
//
//	import foldpubsub "github.com/pjscruggs/slogfold/pubsub"
//
//	err := sub.Receive(ctx, foldpubsub.WrapReceiveHandler(handler, process,
//		foldpubsub.WithSubscription(sub)))
package pubsub
