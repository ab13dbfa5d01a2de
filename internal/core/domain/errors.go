package domain

import "errors"

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrCourseNotFound     = errors.New("course not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRequestInProgress  = errors.New("a request with this idempotency key is in progress")
)
