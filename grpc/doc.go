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

// Package grpc folds gRPC server and client calls into single Cloud Logging
// entries.
//
// The server interceptors open a request scope per RPC: every slog call the
// handler makes through a slogfold.Handler is collected and emitted as one
// entry when the RPC finishes, with the method, status code, duration, and
// peer address attached. Trace context is taken from incoming metadata
// (W3C traceparent, grpc-trace-bin, or the legacy X-Cloud-Trace-Context
// header) so the entry correlates with Cloud Trace. Handler panics are
// logged at CRITICAL severity and converted to codes.Internal.
//
// The client interceptors log each outbound call into the surrounding
// request scope and propagate trace context in outgoing metadata.
//
// Import the package under a name that does not collide with
// google.golang.org/grpc:
//
//	import foldgrpc "github.com/pjscruggs/slogfold/grpc"
//
//	handler := slogfold.New()
//	srv := grpc.NewServer(foldgrpc.ServerOptions(handler)...)
//
// ServerOptions and DialOptions bundle the interceptors with otelgrpc stats
// handlers so spans and folded entries share one trace.
package grpc
