package graph

import (
	"errors"
	"net/http"

	"github.com/openstudy/course-api/internal/core/domain"
)

// Error codes reported in extensions.code.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeConflict           = "CONFLICT"
	CodeBadUserInput       = "BAD_USER_INPUT"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

const internalMessage = "internal server error"

// Error is a resolver error carrying a machine readable code. graphql-go
// copies Extensions into the response.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// Classify maps a domain error to its GraphQL code and the HTTP status used
// outside of GraphQL execution. Unknown errors classify as internal.
func Classify(err error) (code string, status int) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return CodeUnauthenticated, http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAuthorized):
		return CodeForbidden, http.StatusForbidden
	case errors.Is(err, domain.ErrCourseNotFound), errors.Is(err, domain.ErrCollectionNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		return CodeInvalidCredentials, http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidToken):
		return CodeInvalidToken, http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrRequestInProgress):
		return CodeConflict, http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return CodeBadUserInput, http.StatusBadRequest
	}
	return CodeInternal, http.StatusInternalServerError
}

// NewError converts err into an *Error. Internal errors get a generic
// message; the caller is responsible for logging the cause.
func NewError(err error) *Error {
	code, _ := Classify(err)
	msg := err.Error()
	switch code {
	case CodeInternal:
		msg = internalMessage
	case CodeUnauthenticated, CodeForbidden, CodeInvalidCredentials, CodeInvalidToken, CodeConflict:
		// sentinel text only, never wrapped context
		msg = sentinelMessage(err)
	}
	return &Error{Code: code, Message: msg}
}

func sentinelMessage(err error) string {
	for _, s := range []error{
		domain.ErrNotAuthenticated,
		domain.ErrNotAuthorized,
		domain.ErrInvalidCredentials,
		domain.ErrInvalidToken,
		domain.ErrUserExists,
		domain.ErrRequestInProgress,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
