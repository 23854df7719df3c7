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
	"fmt"
	"io"
	"os"
	"sync"
)

// SwitchableWriter is an io.Writer whose destination can be replaced at
// runtime. The Handler writes through one so tests and log rotation can
// redirect output without rebuilding the handler.
type SwitchableWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSwitchableWriter returns a SwitchableWriter targeting w. A nil w
// behaves as io.Discard until SetWriter installs a destination.
func NewSwitchableWriter(w io.Writer) *SwitchableWriter {
	if w == nil {
		w = io.Discard
	}
	return &SwitchableWriter{w: w}
}

// Write forwards p to the current destination. It returns os.ErrClosed
// after Close.
func (sw *SwitchableWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.w == nil {
		return 0, fmt.Errorf("write via switchable writer: %w", os.ErrClosed)
	}
	return sw.w.Write(p)
}

// SetWriter atomically replaces the destination. A nil w is treated as
// io.Discard. Writes in flight complete against the old destination before
// the swap takes effect.
func (sw *SwitchableWriter) SetWriter(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.w = w
}

// Close marks the writer closed and closes the current destination when it
// implements io.Closer. Subsequent writes fail with os.ErrClosed.
func (sw *SwitchableWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	w := sw.w
	sw.w = nil
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		return c.Close()
	}
	return nil
}
