// Package apierror holds the JSON envelope every non-2xx response uses.
package apierror

// Code classifies a failure so clients can branch without parsing Detail.
type Code string

const (
	CodeInvalid      Code = "invalid_argument"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal"
)

type APIError struct {
	Code   Code   `json:"code"`
	Detail string `json:"detail"`
}

func New(code Code, detail string) *APIError {
	return &APIError{Code: code, Detail: detail}
}

// Internal is the only body a 5xx ever carries; driver errors stay in the log.
func Internal() *APIError {
	return New(CodeInternal, "internal server error")
}

// ValidationError reports request fields that failed their binding rule,
// keyed by JSON name, e.g. {"quantityDelta": "required"}.
type ValidationError struct {
	APIError
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{
		APIError: APIError{Code: CodeInvalid, Detail: "validation failed"},
		Fields:   fields,
	}
}
