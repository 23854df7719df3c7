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

package slogfold_test

import (
	"slices"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/pjscruggs/slogfold"
)

// TestEnsurePropagationInstallsCloudTrace verifies the global propagator
// understands both the Google and W3C header formats after setup.
func TestEnsurePropagationInstallsCloudTrace(t *testing.T) {
	slogfold.EnsurePropagation()

	fields := otel.GetTextMapPropagator().Fields()
	for _, want := range []string{"x-cloud-trace-context", "traceparent"} {
		if !slices.Contains(fields, want) {
			t.Errorf("propagator fields = %v, want %q included", fields, want)
		}
	}
}
