package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/pulse/internal/approach"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/validation"
)

const problemBaseURI = "https://pulse.hyperengineering.dev/errors/"

// Problem is an RFC 7807 body. Errors is only set on 422 responses.
type Problem struct {
	Type     string                       `json:"type"`
	Title    string                       `json:"title"`
	Status   int                          `json:"status"`
	Detail   string                       `json:"detail"`
	Instance string                       `json:"instance,omitempty"`
	Errors   []validation.ValidationError `json:"errors,omitempty"`
}

// problemSlugs names the error documents the service can return; any other
// status is reported as "unknown".
var problemSlugs = map[int]string{
	http.StatusBadRequest:          "bad-request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusNotFound:            "not-found",
	http.StatusUnprocessableEntity: "validation-error",
	http.StatusInternalServerError: "internal-error",
	http.StatusServiceUnavailable:  "service-unavailable",
}

func newProblem(r *http.Request, status int, detail string) Problem {
	slug, ok := problemSlugs[status]
	if !ok {
		slug = "unknown"
	}
	title := http.StatusText(status)
	if status == http.StatusUnprocessableEntity {
		title = "Validation Error"
	}
	return Problem{
		Type:     problemBaseURI + slug,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

func (p Problem) write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("encode problem", "status", p.Status, "error", err)
	}
}

// WriteProblem writes a problem response for status.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	newProblem(r, status, detail).write(w)
}

// WriteProblemWithErrors writes a 422 listing every offending field.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	p := newProblem(r, http.StatusUnprocessableEntity, detail)
	p.Errors = errs
	p.write(w)
}

// MapStoreError turns a service or store error into a problem response.
// Unclassified errors become a bare 500; their text stays in the logs.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *approach.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		WriteProblemWithErrors(w, r, "Request contains invalid fields", invalid.Errors)
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	default:
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
