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

package grpc

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/pjscruggs/slogfold"
)

// ServerOptions returns the grpc.ServerOption set that wires a server for
// folded logging: an otelgrpc stats handler for span creation (unless
// disabled with WithOTel) followed by the unary and stream server
// interceptors. The stats handler runs before the interceptors, so by the
// time a scope opens the context already carries the server span.
//
//	srv := grpc.NewServer(foldgrpc.ServerOptions(handler)...)
func ServerOptions(h *slogfold.Handler, opts ...Option) []grpc.ServerOption {
	cfg := processOptions(opts)

	var serverOpts []grpc.ServerOption
	if cfg.enableOTel {
		serverOpts = append(serverOpts,
			grpc.StatsHandler(otelgrpc.NewServerHandler(statsHandlerOptions(cfg)...)))
	}
	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(h, opts...)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(h, opts...)),
	)
	return serverOpts
}

// DialOptions returns the grpc.DialOption set for an instrumented client:
// an otelgrpc stats handler (unless disabled with WithOTel) plus the unary
// and stream client interceptors.
//
//	conn, err := grpc.NewClient(target, foldgrpc.DialOptions()...)
func DialOptions(opts ...Option) []grpc.DialOption {
	cfg := processOptions(opts)

	var dialOpts []grpc.DialOption
	if cfg.enableOTel {
		dialOpts = append(dialOpts,
			grpc.WithStatsHandler(otelgrpc.NewClientHandler(statsHandlerOptions(cfg)...)))
	}
	dialOpts = append(dialOpts,
		grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(opts...)),
		grpc.WithChainStreamInterceptor(StreamClientInterceptor(opts...)),
	)
	return dialOpts
}

func statsHandlerOptions(cfg *options) []otelgrpc.Option {
	var out []otelgrpc.Option
	if cfg.tracerProvider != nil {
		out = append(out, otelgrpc.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagatorsSet && cfg.propagators != nil {
		out = append(out, otelgrpc.WithPropagators(cfg.propagators))
	}
	return out
}
