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
	"net/http"
	"strings"
)

// Paths that platform and Kubernetes probes request. Matched exactly, so
// application routes like /healthz-dashboard keep logging.
var probePaths = map[string]struct{}{
	"/healthz":    {},
	"/livez":      {},
	"/readyz":     {},
	"/_ah/health": {},
}

// User agents sent by Google load balancer health checks, uptime checks,
// and kubelet probes.
var probeUserAgentPrefixes = []string{
	"GoogleHC/",
	"GoogleStackdriverMonitoring-UptimeChecks",
	"kube-probe/",
}

// isProbe reports whether the request looks like an automated health or
// readiness probe.
func isProbe(r *http.Request) bool {
	if _, ok := probePaths[r.URL.Path]; ok {
		return true
	}
	ua := r.Header.Get("User-Agent")
	for _, prefix := range probeUserAgentPrefixes {
		if strings.HasPrefix(ua, prefix) {
			return true
		}
	}
	return false
}
