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

// The file provides the HTTP handler exposing the current startup run's
// journal as JSON.
package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/launchline/launchline/internal/journal"
	"github.com/launchline/launchline/internal/util/logging"
)

const (
	StatusPath = "/status"
)

type StatusApiHandler struct {
	mem *journal.Memory
}

func NewStatusApiHandler(mem *journal.Memory) *StatusApiHandler {
	return &StatusApiHandler{mem: mem}
}

func (c *StatusApiHandler) GetRoutes() []Route {
	return []Route{
		{
			Method:      http.MethodGet,
			Pattern:     StatusPath,
			HandlerFunc: c.StatusHandler,
		},
	}
}

type statusResponse struct {
	Events []journal.Event `json:"events"`
}

func (c *StatusApiHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetRequestLogger(r)

	resp := statusResponse{Events: c.mem.Snapshot()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error(err, "Failed to encode status response")
	}
}
