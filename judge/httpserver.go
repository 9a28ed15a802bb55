// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"encoding/json"
	"net/http"

	"github.com/pepper-platform/pepper/judgerpc"
)

// HTTPHandler serves the plain HTTP fallback: the same operations as
// the data channel, minus pairing. /languages answers the bare
// language map; /execute shares the RPC execute path.
func (h *Handler) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /languages", h.serveLanguages)
	mux.HandleFunc("POST /execute", h.serveExecute)
	return mux
}

func (h *Handler) serveLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.detect(r.Context()))
}

func (h *Handler) serveExecute(w http.ResponseWriter, r *http.Request) {
	var request judgerpc.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	response, err := h.ExecuteCases(r.Context(), request)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
