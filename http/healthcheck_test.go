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
	"net/http/httptest"
	"testing"
)

func TestIsProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		userAgent string
		want      bool
	}{
		{name: "HealthzPath", path: "/healthz", want: true},
		{name: "LivezPath", path: "/livez", want: true},
		{name: "ReadyzPath", path: "/readyz", want: true},
		{name: "AppEnginePath", path: "/_ah/health", want: true},
		{name: "GoogleLoadBalancer", path: "/", userAgent: "GoogleHC/1.0", want: true},
		{name: "UptimeCheck", path: "/", userAgent: "GoogleStackdriverMonitoring-UptimeChecks(https://cloud.google.com/uptime)", want: true},
		{name: "KubeletProbe", path: "/", userAgent: "kube-probe/1.31", want: true},
		{name: "RootWithBrowser", path: "/", userAgent: "Mozilla/5.0", want: false},
		{name: "HealthzPrefixOnly", path: "/healthz-dashboard", want: false},
		{name: "NestedHealthz", path: "/api/healthz", want: false},
		{name: "PlainRequest", path: "/orders", userAgent: "curl/8.5", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "http://example.com"+tt.path, nil)
			if tt.userAgent != "" {
				r.Header.Set("User-Agent", tt.userAgent)
			}
			if got := isProbe(r); got != tt.want {
				t.Errorf("isProbe(%s, UA=%q) = %v, want %v", tt.path, tt.userAgent, got, tt.want)
			}
		})
	}
}
