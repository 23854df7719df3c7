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

import "testing"

func TestNormalizeProjectID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"Plain", "my-project", "my-project", true},
		{"ResourcePrefix", "projects/my-project", "my-project", true},
		{"Whitespace", "  my-project \n", "my-project", true},
		{"Uppercase", "My-Project", "my-project", true},
		{"ShortButValid", "my-proj", "my-proj", true},
		{"Empty", "", "", false},
		{"PrefixOnly", "projects/", "", false},
		{"TooShort", "abc", "", false},
		{"LeadingDigit", "1project", "", false},
		{"TrailingHyphen", "my-project-", "", false},
		{"IllegalCharacters", "my_project!", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeProjectID(tc.raw)
			if ok != tc.wantOK {
				t.Fatalf("NormalizeProjectID(%q) ok = %v, want %v", tc.raw, ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("NormalizeProjectID(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestProjectIDEnvironmentOrder(t *testing.T) {
	t.Setenv("GCP_PROJECT", "legacy-project")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "modern-project")
	t.Setenv("GCLOUD_PROJECT", "older-project")

	if got := ProjectID(); got != "legacy-project" {
		t.Errorf("ProjectID() = %q, want GCP_PROJECT first", got)
	}

	t.Setenv("GCP_PROJECT", "")
	if got := ProjectID(); got != "modern-project" {
		t.Errorf("ProjectID() = %q, want GOOGLE_CLOUD_PROJECT second", got)
	}

	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	if got := ProjectID(); got != "older-project" {
		t.Errorf("ProjectID() = %q, want GCLOUD_PROJECT third", got)
	}
}

func TestProjectIDSkipsMalformedValues(t *testing.T) {
	t.Setenv("GCP_PROJECT", "Not A Project!")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "valid-project")

	if got := ProjectID(); got != "valid-project" {
		t.Errorf("ProjectID() = %q, want malformed first variable skipped", got)
	}
}
