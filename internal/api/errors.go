// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError writes a 400 response for err
func writeError(w http.ResponseWriter, err error) {
	writeErrorCode(w, http.StatusBadRequest, err.Error())
}

// writeNotFound writes a 404 Not Found response
func writeNotFound(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "not found"
	}
	writeErrorCode(w, http.StatusNotFound, msg)
}

// writeInternal writes a 500 response without leaking err
func writeInternal(w http.ResponseWriter) {
	writeErrorCode(w, http.StatusInternalServerError, "internal error")
}

// decodeBody strictly decodes a JSON request body of at most 1 MiB.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
