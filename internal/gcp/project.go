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
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/compute/metadata"
)

// projectEnvVars are checked in order. GCP_PROJECT is first for
// compatibility with older runtimes and existing deployments that still set
// it; the newer GOOGLE_CLOUD_PROJECT follows.
var projectEnvVars = []string{
	"GCP_PROJECT",
	"GOOGLE_CLOUD_PROJECT",
	"GCLOUD_PROJECT",
}

// projectIDPattern matches valid Google Cloud project IDs: 6 to 30
// characters, lowercase letters, digits, and hyphens, starting with a
// letter and not ending with a hyphen.
var projectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)

const metadataTimeout = 2 * time.Second

var (
	metadataProjectOnce sync.Once
	metadataProjectID   string
)

// ProjectID resolves the current project ID. Environment variables are
// consulted on every call so tests and reconfiguration see fresh values;
// the metadata server, when reachable, is queried once and cached.
// Returns "" when no project can be determined.
func ProjectID() string {
	for _, name := range projectEnvVars {
		if id, ok := NormalizeProjectID(os.Getenv(name)); ok {
			return id
		}
	}
	metadataProjectOnce.Do(func() {
		metadataProjectID = projectIDFromMetadata()
	})
	return metadataProjectID
}

func projectIDFromMetadata() string {
	if !metadata.OnGCE() {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()
	id, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[slogfold config] WARNING: on GCE but could not read project ID from metadata: %v\n", err)
		return ""
	}
	return strings.TrimSpace(id)
}

// NormalizeProjectID cleans raw input from the environment: surrounding
// whitespace is trimmed, a "projects/" resource prefix is stripped, and the
// result is validated against the project ID syntax. ok=false means raw held
// nothing usable.
func NormalizeProjectID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "projects/")
	if id == "" {
		return "", false
	}
	id = strings.ToLower(id)
	if !projectIDPattern.MatchString(id) {
		fmt.Fprintf(os.Stderr, "[slogfold config] WARNING: ignoring malformed project ID %q\n", raw)
		return "", false
	}
	return id, true
}
