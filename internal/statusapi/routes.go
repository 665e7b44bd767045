/*
Copyright 2026 The Launchline Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package statusapi serves the sequencer's observability endpoints: health,
// prometheus metrics, and a JSON view of the current startup run.
package statusapi

import (
	"fmt"
	"net/http"

	"github.com/launchline/launchline/internal/journal"
)

type Route struct {
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type RouteProvider interface {
	GetRoutes() []Route
}

func RegisterHandler(mux *http.ServeMux, p RouteProvider) {
	for _, r := range p.GetRoutes() {
		mux.Handle(fmt.Sprintf("%s %s", r.Method, r.Pattern), r.HandlerFunc)
	}
}

// NewMux assembles the observability handler over the in-memory journal.
func NewMux(mem *journal.Memory) http.Handler {
	mux := http.NewServeMux()
	RegisterHandler(mux, NewHealthApiHandler())
	RegisterHandler(mux, NewMetricsApiHandler())
	RegisterHandler(mux, NewStatusApiHandler(mem))
	return RequestMiddleware(mux)
}
