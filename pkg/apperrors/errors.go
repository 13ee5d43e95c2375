package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrQueryInUse      = errors.New("query is referenced by generated export files")
	ErrDisabled        = errors.New("disabled")
	ErrUserNotAllowed  = errors.New("user is not allowed to use this backend")
	ErrInsecureBackend = errors.New("backend URL must use https")
)
