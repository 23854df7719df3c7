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

	slogfold "github.com/pjscruggs/slogfold"
	foldhttp "github.com/pjscruggs/slogfold/http"
)

const (
	maxConnectionsPerHost = 50
	recordsPerRequest     = 5
)

type scenario struct {
	server    *httptest.Server
	client    *http.Client
	transport *http.Transport
	handler   *slogfold.Handler
}

func main() {
	if err := run(context.Background(), os.Stdout); err != nil {
		log.Fatalf("slogfold scenario failed: %v", err)
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

	handler := slogfold.New(
		slogfold.WithWriter(io.Discard),
		slogfold.WithProjectID("bench-project"),
		slogfold.WithLoggerName("slogfold-bench"),
	)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slogfold.Logger(r.Context())
		for i := range recordsPerRequest {
			logger.InfoContext(r.Context(), "processing step",
				slog.Int("step", i),
				slog.String("path", r.URL.Path),
			)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	s := &scenario{
		transport: base,
		handler:   handler,
		client: &http.Client{
			Transport: foldhttp.NewTraceTransport(base, foldhttp.WithCallLogging(false)),
		},
	}
	s.server = httptest.NewServer(foldhttp.Middleware(handler)(inner))
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
}

// Run drives one request through the folding middleware; the five handler
// records and the completion line arrive at w as a single entry.
func (s *scenario) Run(ctx context.Context, w io.Writer) error {
	s.handler.SetOutput(w)
	defer s.handler.SetOutput(io.Discard)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/orders/1", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Cloud-Trace-Context", "4bf92f3577b34da6a3ce929d0e0e4736/1;o=1")

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
