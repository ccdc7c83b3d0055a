// Package httpx shapes HTTP error responses as RFC7807 problem details and
// holds the JSON request/response helpers handlers share.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Request bodies larger than this are rejected; documents with hundreds of
// lines stay far below it.
const maxBodyBytes = 1 << 20

// ProblemDetail is an RFC7807 problem response body.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes an RFC7807 problem response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{Title: title, Status: status, Detail: detail})
}

// DecodeJSON reads the request body into target, capped at maxBodyBytes.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(target)
}
