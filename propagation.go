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
	"os"
	"strconv"
	"sync"

	gcppropagator "github.com/GoogleCloudPlatform/opentelemetry-operations-go/propagator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// envDisablePropagatorAutoset suppresses the automatic installation of the
// composite propagator in init. Set it when the application configures
// propagation itself.
const envDisablePropagatorAutoset = "SLOGFOLD_DISABLE_PROPAGATOR_AUTOSET"

var propagationOnce sync.Once

func init() {
	if v, err := strconv.ParseBool(os.Getenv(envDisablePropagatorAutoset)); err == nil && v {
		return
	}
	EnsurePropagation()
}

// EnsurePropagation installs a global OpenTelemetry text map propagator that
// understands X-Cloud-Trace-Context alongside W3C traceparent and baggage.
// With it in place, spans started by instrumented servers carry the trace
// IDs Google's load balancers assign, so folded entries and OTel spans agree
// on the trace.
//
// The propagator is installed at most once, and never over a propagator the
// application installed itself.
func EnsurePropagation() {
	propagationOnce.Do(func() {
		current := otel.GetTextMapPropagator()
		if current != nil && len(current.Fields()) > 0 {
			return
		}
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			gcppropagator.CloudTraceOneWayPropagator{},
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})
}
