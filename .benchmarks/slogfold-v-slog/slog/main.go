package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"
)

const (
	maxConnectionsPerHost = 50
	recordsPerRequest     = 5
)

type scenario struct {
	server       *httptest.Server
	client       *http.Client
	transport    *http.Transport
	activeLogger atomic.Pointer[slog.Logger]
}

func main() {
	if err := run(context.Background(), os.Stdout); err != nil {
		log.Fatalf("slog scenario failed: %v", err)
	}
}

func run(ctx context.Context, w io.Writer) error {
	s := newScenario()
	defer s.Close()
	return s.Run(ctx, w)
}

func newScenario() *scenario {
	var base *http.Transport
	if transport, ok := http.DefaultTransport.(*http.Transport); ok {
		base = transport.Clone()
	} else {
		base = &http.Transport{}
	}
	base.MaxConnsPerHost = maxConnectionsPerHost
	base.MaxIdleConns = maxConnectionsPerHost
	base.MaxIdleConnsPerHost = maxConnectionsPerHost

	s := &scenario{
		transport: base,
		client:    &http.Client{Transport: base},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.currentLogger()
		for i := range recordsPerRequest {
			logger.InfoContext(r.Context(), "processing step",
				slog.Int("step", i),
				slog.String("path", r.URL.Path),
			)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		s.currentLogger().InfoContext(r.Context(), "request completed",
			slog.Int("http.status", http.StatusOK),
			slog.Duration("http.latency", time.Since(start)),
		)
	}))
	return s
}

func (s *scenario) Close() {
	if s == nil {
		return
	}
	if s.server != nil {
		s.server.CloseClientConnections()
		s.server.Close()
	}
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.activeLogger.Store(nil)
}

// Run drives one request through the per-line baseline; each handler record
// and the completion line arrive at w as separate entries.
func (s *scenario) Run(ctx context.Context, w io.Writer) error {
	logger := slog.New(slog.NewJSONHandler(w, nil)).With(
		slog.String("app", "slog-bench"),
	)
	s.activeLogger.Store(logger)
	defer s.activeLogger.Store(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/orders/1", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("client do: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain body: %w", err)
	}
	return nil
}

func (s *scenario) currentLogger() *slog.Logger {
	if s == nil {
		return slog.Default()
	}
	if logger := s.activeLogger.Load(); logger != nil {
		return logger
	}
	return slog.Default()
}
