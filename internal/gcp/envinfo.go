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

package gcp

import (
	"os"
	"strings"
	"sync"
)

// RuntimeInfo describes the managed runtime the process executes on.
// ServiceContext follows the Cloud Error Reporting shape: a "service" key
// and, when known, a "version" key.
type RuntimeInfo struct {
	ServiceContext map[string]string
}

var (
	runtimeInfo     RuntimeInfo
	runtimeInfoOnce sync.Once
)

// DetectRuntimeInfo inspects well-known environment variables to identify
// the platform. The result is cached; the variables do not change within a
// process lifetime on the platforms that set them.
func DetectRuntimeInfo() RuntimeInfo {
	runtimeInfoOnce.Do(func() {
		runtimeInfo = detectRuntimeInfo()
	})
	return runtimeInfo
}

func detectRuntimeInfo() RuntimeInfo {
	var info RuntimeInfo

	service := strings.TrimSpace(os.Getenv("K_SERVICE"))
	revision := strings.TrimSpace(os.Getenv("K_REVISION"))

	// Cloud Run services and jobs
	if service != "" && revision != "" {
		info.ServiceContext = map[string]string{
			"service": service,
			"version": revision,
		}
		return info
	}

	// Cloud Functions (Gen 2 also sets K_SERVICE)
	if service != "" && strings.TrimSpace(os.Getenv("FUNCTION_TARGET")) != "" {
		info.ServiceContext = map[string]string{"service": service}
		if revision != "" {
			info.ServiceContext["version"] = revision
		}
		return info
	}

	// App Engine
	if gaeService := strings.TrimSpace(os.Getenv("GAE_SERVICE")); gaeService != "" {
		info.ServiceContext = map[string]string{"service": gaeService}
		if gaeVersion := strings.TrimSpace(os.Getenv("GAE_VERSION")); gaeVersion != "" {
			info.ServiceContext["version"] = gaeVersion
		}
		return info
	}

	return info
}
