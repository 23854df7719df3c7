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

// Package async decouples log output from the request path.
//
// NewWriter wraps a destination io.Writer with a bounded queue drained by
// background workers, so a slow or stalled sink delays log delivery
// instead of request handling. Each Write call enqueues one encoded entry;
// workers deliver entries whole, optionally coalescing several queued
// entries into a single destination write.
//
// The queue overflow strategy is configurable: block the caller (the
// default), drop the incoming entry, or drop the oldest queued entry.
// Dropped entries can be observed through a callback. Close drains the
// queue, bounded by WithFlushTimeout, and reports ErrFlushTimeout when the
// deadline passes first.
//
//	w := async.NewWriter(os.Stdout, async.WithQueueSize(4096))
//	defer w.Close()
//	handler := slogfold.New(slogfold.WithWriter(w))
package async
