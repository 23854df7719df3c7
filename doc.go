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

// Package slogfold collects every log line emitted while serving a single
// request and flushes them as one structured JSON entry that Cloud Logging
// groups under the request's trace.
//
// A [Handler] implements [log/slog.Handler]. While a request is active, each
// record is rendered to a single text line and appended to the request's
// [RequestLogs] instead of being written immediately. When the request
// finishes, [Handler.Flush] emits one JSON object whose message field carries
// every buffered line and whose severity is the highest severity observed
// during the request. Records logged outside any request pass through to the
// configured writer directly.
//
// Request state travels on the [context.Context]. Middleware calls
// [SetRequest] when a request begins, passes the returned context to the
// application, and calls [Handler.Flush] followed by [ResetRequest] when the
// request ends. The subpackages wire this pattern up for common transports:
//
//   - github.com/pjscruggs/slogfold/http wraps net/http handlers.
//   - github.com/pjscruggs/slogfold/grpc provides server interceptors.
//   - github.com/pjscruggs/slogfold/pubsub wraps Pub/Sub receive callbacks.
//   - github.com/pjscruggs/slogfold/async moves entry writes off the hot path.
//
// Trace correlation reads the X-Cloud-Trace-Context header by default and
// falls back to any OpenTelemetry span already on the context. When a project
// ID is known (set explicitly, taken from GCP_PROJECT and related variables,
// or detected from the metadata server) the emitted entry carries the
// logging.googleapis.com/trace and logging.googleapis.com/spanId fields that
// Cloud Logging uses to correlate entries with traces.
//
// A minimal server setup:
//
//	handler := slogfold.New(
//		slogfold.WithLoggerName("checkout"),
//		slogfold.WithProjectID("my-project"),
//	)
//	slog.SetDefault(slog.New(handler))
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/checkout", handleCheckout)
//	wrapped := foldhttp.Middleware(handler)(mux)
//	log.Fatal(http.ListenAndServe(":8080", wrapped))
//
// Everything handleCheckout logs through slog, at any level, reaches Cloud
// Logging as a single entry for that request.
package slogfold
