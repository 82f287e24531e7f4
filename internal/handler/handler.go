// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Hello is a simple hello endpoint for testing.
// GET /
func Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "Hello from Plixa!",
		"version": "1.0.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "resource not found"})
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing left to do
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
