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
	"bytes"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const maxStackDepth = 64

var stackPCPool = sync.Pool{
	New: func() any {
		buf := make([]uintptr, maxStackDepth)
		return &buf
	},
}

// captureStack renders the calling goroutine's stack in the runtime's panic
// format, which is what Cloud Error Reporting parses. Frames for which
// skipFn returns true are trimmed from the top so reported errors point at
// application code rather than logging plumbing.
func captureStack(skipFn func(funcName string) bool) string {
	bufPtr := stackPCPool.Get().(*[]uintptr)
	defer stackPCPool.Put(bufPtr)
	pcs := (*bufPtr)[:maxStackDepth]

	n := runtime.Callers(2, pcs)
	if n == 0 {
		return ""
	}
	pcs = pcs[:n]

	var sb strings.Builder
	sb.WriteString(goroutineHeader())

	frames := runtime.CallersFrames(pcs)
	skipping := skipFn != nil
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			if skipping && skipFn(frame.Function) {
				if !more {
					break
				}
				continue
			}
			skipping = false
			sb.WriteString(frame.Function)
			sb.WriteString("(...)\n\t")
			sb.WriteString(frame.File)
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(frame.Line))
			sb.WriteByte('\n')
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// skipOwnFrames trims runtime internals and this package's own frames.
func skipOwnFrames(funcName string) bool {
	if strings.HasPrefix(funcName, "runtime.") {
		return true
	}
	if !strings.HasPrefix(funcName, "github.com/pjscruggs/slogfold") {
		return false
	}
	// Frames from subpackages (middleware, interceptors) stay; only the
	// root package's reporting helpers are trimmed.
	rest := strings.TrimPrefix(funcName, "github.com/pjscruggs/slogfold")
	return strings.HasPrefix(rest, ".")
}

// goroutineHeader returns the "goroutine N [running]:" line the runtime
// prints, taken from a minimal runtime.Stack call so the goroutine ID is
// real.
func goroutineHeader() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
		return string(buf[:i+1])
	}
	return "goroutine 1 [running]:\n"
}
