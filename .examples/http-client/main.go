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

// Command http-client forwards trace context on outbound requests and folds
// each call into the caller's request entry. When run, it exercises the
// client against local test servers to demonstrate propagation.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"

	"github.com/pjscruggs/slogfold"
	foldhttp "github.com/pjscruggs/slogfold/http"
)

func main() {
	handler := slogfold.New(slogfold.WithLoggerName("http-client-example"))

	// The backend reports whether the legacy trace header reached it.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if trace := r.Header.Get("X-Cloud-Trace-Context"); trace != "" {
			w.Header().Set("X-Received-Trace", trace)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	client := &http.Client{Transport: foldhttp.NewTraceTransport(nil)}

	frontend := httptest.NewServer(foldhttp.Middleware(handler)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, backend.URL, nil)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)
			fmt.Fprintln(w, resp.Header.Get("X-Received-Trace"))
		}),
	))
	defer frontend.Close()

	req, err := http.NewRequest(http.MethodGet, frontend.URL+"/checkout", nil)
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Cloud-Trace-Context", "4bf92f3577b34da6a3ce929d0e0e4736/1;o=1")

	resp, err := frontend.Client().Do(req)
	if err != nil {
		log.Fatalf("frontend request: %v", err)
	}
	defer resp.Body.Close()

	forwarded, _ := io.ReadAll(resp.Body)
	log.Printf("backend saw trace: %s", forwarded)
}
