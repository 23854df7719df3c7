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

// Package http folds net/http request handling into single Cloud Logging
// entries.
//
// Middleware opens a request scope before the wrapped handler runs and
// flushes it afterwards, so every slog call the handler makes through a
// slogfold.Handler lands in one entry per request. It also recovers panics,
// logs a completion line with status and latency, and optionally carries
// OpenTelemetry instrumentation.
//
// Import the package under a name that does not collide with net/http:
//
//	import foldhttp "github.com/pjscruggs/slogfold/http"
//
//	handler := slogfold.New()
//	mux := http.NewServeMux()
//	srv := &http.Server{Handler: foldhttp.Middleware(handler)(mux)}
//
// NewTraceTransport complements the middleware on the client side: it
// propagates the active trace context on outbound requests and logs each
// call into the surrounding request's entry.
package http
