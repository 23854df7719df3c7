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

package slogfold

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// sourceLocationKey labels source position information on passthrough
// entries, using the field the Cloud Logging agent promotes into
// LogEntry.sourceLocation.
const sourceLocationKey = "logging.googleapis.com/sourceLocation"

// Handler is a log/slog Handler that folds all records logged during a
// request into a single Cloud Logging entry.
//
// While a request scope is active on the record's context (see SetRequest),
// Handle renders the record to one line and appends it to the scope's
// RequestLogs; nothing is written until Flush. Records without a request
// scope are written immediately.
//
// Handlers are immutable after construction; WithAttrs and WithGroup return
// copies. All methods are safe for concurrent use.
type Handler struct {
	level          slog.Leveler
	name           string
	projectID      string
	traceHeader    string
	structured     bool
	errorReporting bool
	pid            int
	enc            Encoder
	out            *SwitchableWriter
	errFn          func(error)

	// Pre-rendered attribute text from WithAttrs, including its leading
	// space, and the dotted prefix open groups apply to new attrs.
	attrText    string
	groupPrefix string
}

// New constructs a Handler from opts, filling unset options from the
// environment and defaults. See the Option functions for the individual
// settings and their environment variables.
func New(opts ...Option) *Handler {
	o := applyOptions(opts)
	return &Handler{
		level:          o.level,
		name:           *o.name,
		projectID:      *o.projectID,
		traceHeader:    *o.traceHeader,
		structured:     *o.structured,
		errorReporting: *o.errorReporting,
		pid:            os.Getpid(),
		enc:            o.encoder,
		out:            NewSwitchableWriter(o.writer),
		errFn:          o.errFn,
	}
}

// Enabled reports whether records at level would be processed.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle processes one record. Inside a request scope the record becomes a
// buffered line on that request; outside, it is written directly. Handle
// itself never returns an error for buffered records, and write failures on
// passthrough records are also reported through the error handler.
func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	line := h.renderLine(rec)
	t := rec.Time
	if t.IsZero() {
		t = time.Now()
	}

	if rl, ok := CurrentRequest(ctx); ok {
		rl.Append(t, rec.Level, line)
		return nil
	}

	if h.structured {
		return h.writePassthroughEntry(ctx, t, rec, line)
	}
	return h.write([]byte(line))
}

// WithAttrs returns a Handler that includes attrs on every subsequent
// record. The attributes are rendered once, here, into the line suffix.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	var sb strings.Builder
	sb.WriteString(h.attrText)
	for _, a := range attrs {
		appendAttr(&sb, h.groupPrefix, a)
	}
	h2.attrText = sb.String()
	return h2
}

// WithGroup returns a Handler that qualifies subsequent attribute keys with
// name. Folded output is a flat line, so groups render as dotted prefixes
// rather than nested objects.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groupPrefix = h.groupPrefix + name + "."
	return h2
}

func (h *Handler) clone() *Handler {
	h2 := *h
	return &h2
}

// Flush emits the active request's accumulated lines as one JSON entry and
// clears the request scope on ctx. Without an active scope it does nothing;
// with a scope that buffered no lines it clears the scope and writes
// nothing. Encoding and write failures are reported through the error
// handler, and the error is also returned for callers that want it.
func (h *Handler) Flush(ctx context.Context) error {
	rl := takeRequest(ctx)
	if rl == nil {
		return nil
	}
	snap := rl.Snapshot()
	if snap.Lines == 0 {
		return nil
	}

	entry := h.buildEntry(snap)
	data, err := h.encode(entry)
	if err != nil {
		h.reportError(fmt.Errorf("encode log entry: %w", err))
		fallback, fbErr := defaultEncoder.Encode(h.degradedEntry(snap, err))
		if fbErr != nil {
			return err
		}
		if wErr := h.write(fallback); wErr != nil {
			return wErr
		}
		return err
	}
	return h.write(data)
}

// NewRequest returns a RequestLogs for r, capturing the request URL and
// trace context up front. Trace context comes from the configured trace
// header, falling back to any OpenTelemetry span on r's context.
func (h *Handler) NewRequest(r *http.Request) *RequestLogs {
	if r == nil {
		return NewRequestLogs("", TraceContext{})
	}
	tc, ok := TraceFromRequest(r, h.traceHeader)
	if !ok {
		tc, _ = TraceFromContext(r.Context())
	}
	return NewRequestLogs(requestURL(r), tc)
}

// TraceHeader returns the header name the Handler reads trace context from.
func (h *Handler) TraceHeader() string { return h.traceHeader }

// SetOutput redirects emitted entries to w. Entries being written
// concurrently complete against the previous destination.
func (h *Handler) SetOutput(w io.Writer) { h.out.SetWriter(w) }

// buildEntry assembles the JSON object for a finished request.
func (h *Handler) buildEntry(snap Snapshot) map[string]any {
	entry := map[string]any{
		"severity": severityString(snap.Level),
		"name":     h.name,
		"process":  h.pid,
		"message":  snap.Message,
	}
	if snap.URL != "" {
		entry["url"] = snap.URL
	}
	h.addTrace(entry, snap.Trace)
	for k, v := range snap.Extra {
		if reservedEntryKey(k) {
			continue
		}
		entry[k] = v
	}
	if h.errorReporting && snap.Level >= slog.LevelError {
		addServiceContext(entry)
	}
	return entry
}

// addTrace attaches the trace correlation fields. A trace is only usable
// when a project ID qualifies it, and the span never appears without its
// trace.
func (h *Handler) addTrace(entry map[string]any, tc TraceContext) {
	if !tc.Valid() || h.projectID == "" {
		return
	}
	entry[TraceKey] = FormatTraceResource(h.projectID, tc.TraceID)
	if tc.SpanID != "" {
		entry[SpanKey] = tc.SpanID
	}
	if tc.Sampled {
		entry[SampledKey] = true
	}
}

// degradedEntry carries the request's lines to the writer when the
// configured encoder failed. Only JSON-safe field types appear here so the
// default encoder cannot fail again.
func (h *Handler) degradedEntry(snap Snapshot, encodeErr error) map[string]any {
	entry := map[string]any{
		"severity":     severityString(snap.Level),
		"name":         h.name,
		"process":      h.pid,
		"message":      snap.Message,
		"encode_error": encodeErr.Error(),
	}
	if snap.URL != "" {
		entry["url"] = snap.URL
	}
	h.addTrace(entry, snap.Trace)
	return entry
}

// writePassthroughEntry emits a single-record JSON entry for a record logged
// outside any request scope.
func (h *Handler) writePassthroughEntry(ctx context.Context, t time.Time, rec slog.Record, line string) error {
	entry := map[string]any{
		"severity": severityString(rec.Level),
		"name":     h.name,
		"process":  h.pid,
		"time":     t.UTC().Format(lineTimeFormat),
		"message":  line,
	}
	if tc, ok := TraceFromContext(ctx); ok {
		h.addTrace(entry, tc)
	}
	if rec.PC != 0 {
		if src := sourceLocation(rec.PC); src != nil {
			entry[sourceLocationKey] = src
		}
	}

	data, err := h.encode(entry)
	if err != nil {
		h.reportError(fmt.Errorf("encode log entry: %w", err))
		fallback := map[string]any{
			"severity":     severityString(rec.Level),
			"name":         h.name,
			"process":      h.pid,
			"message":      line,
			"encode_error": err.Error(),
		}
		data, err = defaultEncoder.Encode(fallback)
		if err != nil {
			return err
		}
	}
	return h.write(data)
}

// sourceLocation resolves a record's program counter into the agent's
// sourceLocation shape.
func sourceLocation(pc uintptr) map[string]string {
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return nil
	}
	return map[string]string{
		"file":     frame.File,
		"line":     strconv.Itoa(frame.Line),
		"function": frame.Function,
	}
}

// encode runs the configured encoder, converting a panic into an error so a
// misbehaving encoder degrades output instead of unwinding the request.
func (h *Handler) encode(entry map[string]any) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("encoder panicked: %v", r)
		}
	}()
	data, err = h.enc.Encode(entry)
	if err == nil && len(data) == 0 {
		err = fmt.Errorf("encoder returned no data")
	}
	return data, err
}

// write sends one line to the output, normalizing to exactly one trailing
// newline. Failures go to the error handler and are returned; they are
// never raised past the logging call site.
func (h *Handler) write(p []byte) error {
	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, p...)
	for len(buf) > 0 && buf[len(buf)-1] == '\n' {
		buf = buf[:len(buf)-1]
	}
	buf = append(buf, '\n')
	if _, err := h.out.Write(buf); err != nil {
		err = fmt.Errorf("write log entry: %w", err)
		h.reportError(err)
		return err
	}
	return nil
}

func (h *Handler) reportError(err error) {
	if h.errFn != nil {
		h.errFn(err)
	}
}

// reservedEntryKey reports whether extra fields may not use k because the
// entry itself owns it.
func reservedEntryKey(k string) bool {
	switch k {
	case "severity", "name", "process", "url", "message", TraceKey, SpanKey, SampledKey:
		return true
	}
	return false
}

// renderLine formats a record as one text line: the message followed by
// key=value attribute pairs.
func (h *Handler) renderLine(rec slog.Record) string {
	var sb strings.Builder
	sb.WriteString(rec.Message)
	sb.WriteString(h.attrText)
	rec.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, h.groupPrefix, a)
		return true
	})
	return sb.String()
}

// appendAttr writes one attribute as " prefix.key=value". Groups flatten
// into dotted prefixes; empty attrs and empty groups are dropped per the
// slog handler contract.
func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return
		}
		if a.Key != "" {
			prefix = prefix + a.Key + "."
		}
		for _, ga := range group {
			appendAttr(sb, prefix, ga)
		}
		return
	}
	if a.Key == "" && a.Value.Equal(slog.Value{}) {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(quoteAttrValue(a.Value.String()))
}

// quoteAttrValue quotes values that would otherwise break the key=value
// layout.
func quoteAttrValue(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// requestURL reconstructs the absolute URL the client requested.
func requestURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
