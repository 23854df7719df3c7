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

// Command http-server emits one log entry per handled request.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/pjscruggs/slogfold"
	foldhttp "github.com/pjscruggs/slogfold/http"
)

func main() {
	handler := slogfold.New(slogfold.WithLoggerName("http-server-example"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		// Records logged with the request context fold into the
		// request's entry rather than appearing on their own.
		logger := slogfold.Logger(r.Context())
		logger.InfoContext(r.Context(), "looking up order", slog.String("path", r.URL.Path))
		fmt.Fprintln(w, "ok")
	})

	mw := foldhttp.Middleware(handler,
		foldhttp.WithRequestID(true),
		foldhttp.WithSkipHealthChecks(),
	)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	log.Fatal(http.ListenAndServe(addr, mw(mux)))
}
