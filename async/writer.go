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

package async

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DropMode selects what happens when a Write finds the queue full.
type DropMode int

const (
	// DropModeBlock makes Write wait for queue space. Delivery is
	// lossless but a stalled destination backpressures callers.
	DropModeBlock DropMode = iota

	// DropModeDropNewest discards the incoming entry when the queue
	// is full.
	DropModeDropNewest

	// DropModeDropOldest evicts the oldest queued entry to make room
	// for the incoming one.
	DropModeDropOldest
)

// ErrFlushTimeout is returned by Close when queued entries could not be
// drained within the configured flush timeout.
var ErrFlushTimeout = errors.New("async: flush timeout")

// DropFunc observes an entry that was discarded instead of written. The
// byte slice is only valid for the duration of the call.
type DropFunc func(entry []byte)

// Writer queues encoded log entries and writes them to a destination
// from background worker goroutines. It is safe for concurrent use.
//
// With a single worker (the default) entries reach the destination in
// the order they were written. With more workers the destination must be
// safe for concurrent use and ordering is not guaranteed.
type Writer struct {
	dst       io.Writer
	dropMode  DropMode
	onDrop    DropFunc
	errWriter io.Writer
	batchSize int

	queue        chan []byte
	wg           sync.WaitGroup
	closed       atomic.Bool
	closeOnce    sync.Once
	closeErr     error
	flushTimeout time.Duration
}

// NewWriter returns a Writer that forwards entries to dst through a
// bounded queue. Options and SLOGFOLD_ASYNC_* environment variables
// (applied via WithEnv) control queue depth, worker count, and overflow
// behavior.
func NewWriter(dst io.Writer, opts ...Option) *Writer {
	cfg := buildConfig(opts)
	w := &Writer{
		dst:          dst,
		dropMode:     cfg.DropMode,
		onDrop:       cfg.OnDrop,
		errWriter:    cfg.ErrorWriter,
		batchSize:    cfg.BatchSize,
		queue:        make(chan []byte, cfg.QueueSize),
		flushTimeout: cfg.FlushTimeout,
	}

	start := func() {
		w.wg.Add(cfg.WorkerCount)
		for range cfg.WorkerCount {
			go w.worker()
		}
	}
	if cfg.workerStarter != nil {
		cfg.workerStarter(start)
	} else {
		start()
	}
	return w
}

// Write enqueues a copy of p for background delivery. It never blocks on
// the destination itself, only on queue space when the mode is
// DropModeBlock. After Close the entry is dropped. The returned length
// is always len(p); enqueue failures surface through the drop callback,
// not the error.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed.Load() {
		w.drop(p)
		return len(p), nil
	}
	// The caller may reuse p as soon as Write returns.
	buf := make([]byte, len(p))
	copy(buf, p)
	w.enqueue(buf)
	return len(p), nil
}

func (w *Writer) enqueue(buf []byte) {
	// Close can win the race after the closed check in Write; sending
	// on the closed queue panics, which lands here.
	defer func() {
		if recover() != nil {
			w.drop(buf)
		}
	}()

	switch w.dropMode {
	case DropModeDropNewest:
		select {
		case w.queue <- buf:
		default:
			w.drop(buf)
		}
	case DropModeDropOldest:
		select {
		case w.queue <- buf:
		default:
			var evicted []byte
			select {
			case evicted = <-w.queue:
			default:
			}
			if evicted != nil {
				w.drop(evicted)
			}
			select {
			case w.queue <- buf:
			default:
				w.drop(buf)
			}
		}
	default:
		w.queue <- buf
	}
}

func (w *Writer) drop(entry []byte) {
	if w.onDrop != nil {
		w.onDrop(entry)
	}
}

func (w *Writer) worker() {
	defer w.wg.Done()
	if w.batchSize <= 1 {
		for buf := range w.queue {
			w.write(buf)
		}
		return
	}

	// Coalesce whatever is already queued, up to the batch size, into a
	// single destination write. Entries stay whole; only syscalls are
	// amortized.
	var batch []byte
	for buf := range w.queue {
		batch = append(batch[:0], buf...)
	drain:
		for n := 1; n < w.batchSize; n++ {
			select {
			case next, ok := <-w.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next...)
			default:
				break drain
			}
		}
		w.write(batch)
	}
}

// write delivers one entry and keeps the worker alive across destination
// failures and panics.
func (w *Writer) write(buf []byte) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(w.errWriter, "async: recovered panic from destination writer: %v\n", r)
		}
	}()
	if _, err := w.dst.Write(buf); err != nil {
		fmt.Fprintf(w.errWriter, "async: write error: %v\n", err)
	}
}

// Close stops accepting new entries, waits for queued entries to drain,
// and then closes the destination if it implements io.Closer. When a
// flush timeout is configured and expires before the drain completes,
// Close returns ErrFlushTimeout and abandons the remaining entries.
// Subsequent calls return the first result.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.queue)

		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()

		if w.flushTimeout > 0 {
			select {
			case <-done:
			case <-time.After(w.flushTimeout):
				w.closeErr = ErrFlushTimeout
				return
			}
		} else {
			<-done
		}

		if c, ok := w.dst.(io.Closer); ok {
			w.closeErr = c.Close()
		}
	})
	return w.closeErr
}
