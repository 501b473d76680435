package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds returned by every service. Handlers map them to HTTP statuses
// with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// CustomError carries a human readable message and the kind it belongs to.
type CustomError struct {
	Kind    error
	Message string
}

func (e *CustomError) Error() string { return e.Message }

func (e *CustomError) Unwrap() error { return e.Kind }

func validationf(format string, args ...interface{}) error {
	return &CustomError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &CustomError{Kind: ErrNotFound, Message: what + " not found"}
}

func forbiddenf(format string, args ...interface{}) error {
	return &CustomError{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) error {
	return &CustomError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// notFoundOr translates gorm.ErrRecordNotFound and passes everything else
// through.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}
