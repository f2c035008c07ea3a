package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/negotiate"
	"github.com/pcarana/rdap-server/pkg/policy"
)

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var reqErr *domain.RequestError
	var missing *policy.MissingPolicyError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &reqErr):
		return reqErr.Status
	case errors.As(err, &missing):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody builds the RFC 9083 error response for err. Server-side failures
// carry no description unless err is a RequestError; their causes are logged,
// not returned.
func ErrorBody(status int, err error) domain.ErrorResponse {
	body := domain.ErrorResponse{
		Conformance: []string{domain.ConformanceLevel},
		ErrorCode:   status,
		Title:       http.StatusText(status),
	}

	var reqErr *domain.RequestError
	var domErr *domain.DomainError
	switch {
	case errors.As(err, &reqErr):
		if reqErr.Message != "" {
			body.Description = []string{reqErr.Message}
		}
	case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
	case errors.As(err, &domErr):
		body.Description = []string{domErr.Error()}
	}
	return body
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	w.Header().Set("Content-Type", negotiate.MediaTypeRDAP)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(ErrorBody(status, err))
}
