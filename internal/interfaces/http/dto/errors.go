package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
)

// Resource error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONCURRENCY_CONFLICT"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here fall back to 500.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	"ITEM_NOT_FOUND":     http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Reconciliation conflicts: the request was well formed but collides
	// with the current scan state
	"ALREADY_SCANNED":     http.StatusConflict,
	"POSTING_IN_PROGRESS": http.StatusConflict,

	// Lifecycle violations -> 422 Unprocessable Entity
	"INVALID_STATE":              http.StatusUnprocessableEntity,
	"INVALID_STATUS":             http.StatusUnprocessableEntity,
	"INVALID_TRANSITION":         http.StatusUnprocessableEntity,
	"INCOMPLETE_TRANSFER":        http.StatusUnprocessableEntity,
	"QUANTITY_EXCEEDS_AVAILABLE": http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	"INVALID_INPUT":               http.StatusBadRequest,
	"INVALID_QUANTITY":            http.StatusBadRequest,
	"INVALID_ITEM_TYPE":           http.StatusBadRequest,
	"UNKNOWN_ITEM_CLASSIFICATION": http.StatusBadRequest,
	"INVALID_TRANSFER_NUMBER":     http.StatusBadRequest,
	"INVALID_WAREHOUSE":           http.StatusBadRequest,
	"INVALID_CREATOR":             http.StatusBadRequest,
	"INVALID_APPROVER":            http.StatusBadRequest,
	"INVALID_REASON":              http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
