package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/samcharles93/setupconv/pkg/record"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrBodyTooLarge   = errors.New("request body too large")
)

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps a conversion error to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, convert.ErrUsage):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "invalid_request_error"
	case errors.Is(err, record.ErrStructuralParse):
		return http.StatusUnprocessableEntity, "structural_parse_error"
	case errors.Is(err, record.ErrMissingSection):
		return http.StatusUnprocessableEntity, "missing_section_error"
	case errors.Is(err, record.ErrSchemaViolation):
		return http.StatusUnprocessableEntity, "schema_violation_error"
	case errors.Is(err, record.ErrInconsistentGraph):
		return http.StatusUnprocessableEntity, "inconsistent_graph_error"
	case errors.Is(err, record.ErrCorruptImage):
		return http.StatusUnprocessableEntity, "corrupt_image_error"
	}
	return http.StatusInternalServerError, "server_error"
}
