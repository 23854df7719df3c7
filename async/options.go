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
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultQueueSize = 1024

	envQueueSize    = "SLOGFOLD_ASYNC_QUEUE_SIZE"
	envWorkers      = "SLOGFOLD_ASYNC_WORKERS"
	envDropMode     = "SLOGFOLD_ASYNC_DROP_MODE"
	envFlushTimeout = "SLOGFOLD_ASYNC_FLUSH_TIMEOUT"
)

// Config controls queue and worker behaviour.
type Config struct {
	QueueSize    int
	WorkerCount  int
	BatchSize    int
	DropMode     DropMode
	OnDrop       DropFunc
	ErrorWriter  io.Writer
	FlushTimeout time.Duration

	workerStarter func(func())
}

// Option customizes writer configuration.
type Option func(*Config)

// WithQueueSize adjusts the queue capacity. Zero yields an unbuffered queue.
func WithQueueSize(size int) Option {
	return func(cfg *Config) {
		cfg.QueueSize = size
	}
}

// WithWorkerCount configures the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(cfg *Config) {
		cfg.WorkerCount = count
	}
}

// WithBatchSize sets how many queued entries a worker may coalesce into
// a single destination write. Values less than 1 default to 1.
func WithBatchSize(size int) Option {
	return func(cfg *Config) {
		cfg.BatchSize = size
	}
}

// WithDropMode sets the queue overflow strategy.
func WithDropMode(mode DropMode) Option {
	return func(cfg *Config) {
		cfg.DropMode = mode
	}
}

// WithOnDrop registers a callback invoked when an entry is dropped.
func WithOnDrop(fn DropFunc) Option {
	return func(cfg *Config) {
		cfg.OnDrop = fn
	}
}

// WithErrorWriter directs destination errors and panic reports to w. Use
// nil to silence error reporting.
func WithErrorWriter(w io.Writer) Option {
	return func(cfg *Config) {
		cfg.ErrorWriter = w
	}
}

// WithFlushTimeout limits how long Close waits for workers to finish.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.FlushTimeout = timeout
	}
}

// WithEnv overlays configuration from SLOGFOLD_ASYNC_* environment
// variables.
func WithEnv() Option {
	return func(cfg *Config) {
		applyEnv(cfg)
	}
}

// buildConfig applies options with defaults and clamps invalid values.
func buildConfig(opts []Option) Config {
	cfg := Config{
		QueueSize:   defaultQueueSize,
		WorkerCount: 1,
		BatchSize:   1,
		DropMode:    DropModeBlock,
		ErrorWriter: os.Stderr,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.QueueSize < 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.ErrorWriter == nil {
		cfg.ErrorWriter = io.Discard
	}

	return cfg
}

func applyEnv(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv(envQueueSize)); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			cfg.QueueSize = size
		}
	}

	if raw := strings.TrimSpace(os.Getenv(envWorkers)); raw != "" {
		if workers, err := strconv.Atoi(raw); err == nil {
			cfg.WorkerCount = workers
		}
	}

	if raw := strings.TrimSpace(os.Getenv(envDropMode)); raw != "" {
		switch strings.ToLower(raw) {
		case "block":
			cfg.DropMode = DropModeBlock
		case "drop_newest", "drop-newest":
			cfg.DropMode = DropModeDropNewest
		case "drop_oldest", "drop-oldest":
			cfg.DropMode = DropModeDropOldest
		}
	}

	if raw := strings.TrimSpace(os.Getenv(envFlushTimeout)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.FlushTimeout = d
		}
	}
}
