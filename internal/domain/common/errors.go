package common

import "errors"

var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Statement import errors. PasswordRequired is not among them: an encrypted
// PDF without a password is reported as a status, not a failure.
var (
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrWrongPassword        = errors.New("incorrect password for encrypted document")
	ErrParseFailure         = errors.New("could not extract transactions from file")
	ErrUploadNotFound       = errors.New("upload session expired or not found, please upload again")
	ErrInvalidDateRange     = errors.New("start date must not be after end date")
	ErrInvalidCategory      = errors.New("unknown category")
	ErrInvalidClarification = errors.New("clarification refers to a transaction that does not exist")
)
