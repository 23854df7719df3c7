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

package http

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pjscruggs/slogfold"
)

// instrumentationName identifies this package to OpenTelemetry.
const instrumentationName = "github.com/pjscruggs/slogfold/http"

// requestIDHeader carries the request ID on both the incoming request and
// the response when WithRequestID is enabled.
const requestIDHeader = "X-Request-Id"

// Middleware returns middleware that folds each request handled by next
// into a single log entry emitted through h.
//
// For every request it opens a request scope, stores a request-aware logger
// on the context for handlers to retrieve with slogfold.Logger, runs next,
// logs a completion line with status and latency, and flushes the scope.
// Handler panics are logged at CRITICAL severity with a stack trace and
// answered with a 500 if nothing has been written yet; the panic is then
// swallowed unless WithRecoverPanics(false) was given.
func Middleware(h *slogfold.Handler, opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(h)
	}
	return func(next http.Handler) http.Handler {
		var wrapped http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPath(cfg.skipPaths, r.URL.Path) || (cfg.skipProbes && isProbe(r)) {
				next.ServeHTTP(w, r)
				return
			}

			r = ensureSpanContext(r, cfg)
			rl := h.NewRequest(r)
			ctx, tok := slogfold.SetRequest(r.Context(), rl)
			ctx = slogfold.ContextWithLogger(ctx, logger)
			r = r.WithContext(ctx)

			var requestID string
			if cfg.requestID {
				requestID = r.Header.Get(requestIDHeader)
				if requestID == "" {
					requestID = uuid.NewString()
				}
				w.Header().Set(requestIDHeader, requestID)
			}

			rec := wrapResponseWriter(w)
			start := time.Now()

			defer func() {
				v := recover()
				if v != nil {
					logger.LogAttrs(ctx, slogfold.LevelCritical.Level(), "panic recovered",
						slog.Any("panic", v),
						slog.String("stack", string(debug.Stack())),
					)
					if !rec.wroteHeader {
						writeJSONError(rec, http.StatusInternalServerError)
					}
				}

				latency := time.Since(start)
				status := rec.Status()
				logger.LogAttrs(ctx, statusLevel(status), "request completed",
					slog.Int("http.status", status),
					slog.Duration("http.latency", latency),
				)

				extra := map[string]any{
					"http.method":        r.Method,
					"http.status":        status,
					"http.latency_ms":    latency.Milliseconds(),
					"http.response_size": rec.written,
				}
				if cfg.includeClientIP {
					extra["http.client_ip"] = clientIP(r)
				}
				if cfg.includeUserAgent {
					if ua := r.Header.Get("User-Agent"); ua != "" {
						extra["http.user_agent"] = ua
					}
				}
				if requestID != "" {
					extra["http.request_id"] = requestID
				}
				rl.AttachExtra(extra)

				// Write failures are routed to the handler's error callback.
				_ = h.Flush(ctx)
				slogfold.ResetRequest(tok)

				if v != nil && !cfg.recoverPanics {
					panic(v)
				}
			}()

			next.ServeHTTP(rec, r)
		})
		if cfg.enableOTel {
			otelOpts := []otelhttp.Option{
				otelhttp.WithSpanNameFormatter(spanName),
			}
			if cfg.tracerProvider != nil {
				otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
			}
			if cfg.propagatorsSet {
				otelOpts = append(otelOpts, otelhttp.WithPropagators(cfg.propagators))
			}
			if cfg.publicEndpoint {
				otelOpts = append(otelOpts, otelhttp.WithPublicEndpoint())
			}
			wrapped = otelhttp.NewHandler(wrapped, instrumentationName, otelOpts...)
		}
		return wrapped
	}
}

// statusLevel maps an HTTP status code to the level of the completion line,
// which in turn sets the floor for the folded entry's severity.
func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func spanName(operation string, r *http.Request) string {
	if operation != "" {
		return operation
	}
	return r.Method + " " + r.URL.Path
}

func skipPath(skips []string, path string) bool {
	for _, s := range skips {
		if strings.Contains(path, s) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprintf(w, "{\"error\":%q}\n", http.StatusText(code))
}

// responseRecorder captures the status code and byte count of a response
// while passing the optional http.ResponseWriter extensions through to the
// underlying writer.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w}
}

// Status returns the response status code, or 200 when the handler returned
// without writing one.
func (r *responseRecorder) Status() int {
	if !r.wroteHeader {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *responseRecorder) ReadFrom(src io.Reader) (int64, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := io.Copy(r.ResponseWriter, src)
	r.written += n
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (r *responseRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := r.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}
