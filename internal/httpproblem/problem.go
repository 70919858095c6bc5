// Package httpproblem renders RFC 7807 style error bodies for the HTTP
// collaborators in spec.md §6 (the /healthz and /metrics surface, and any
// narrow REST the server exposes alongside the websocket endpoint), adapted
// from the teacher's go/mucks Problem type.
package httpproblem

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Problem is a single error body shared across the server's HTTP surface.
type Problem struct {
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance"`
}

func NewBadRequest(detail string) Problem {
	return Problem{Status: http.StatusBadRequest, Code: "bad_request", Message: "Bad Request", Detail: detail, Instance: uuid.NewString()}
}

func NewNotFound(code string) Problem {
	return Problem{Status: http.StatusNotFound, Code: code, Message: "Not Found", Instance: uuid.NewString()}
}

func NewServerError() Problem {
	return Problem{Status: http.StatusInternalServerError, Code: "server_error", Message: "Internal Error", Instance: uuid.NewString()}
}

func NewUnavailable(detail string) Problem {
	return Problem{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "Service Unavailable", Detail: detail, Instance: uuid.NewString()}
}

const ContentType = "Content-Type"
const ApplicationJSON = "application/json; charset=utf-8"

// Write sends p as the HTTP response body with its own Status as the code.
func Write(w http.ResponseWriter, p Problem) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	Write(w, NewNotFound("not_found"))
}
