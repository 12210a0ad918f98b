// Package apperrors defines the error taxonomy shared by the tool surface,
// the workflows, and the ledger. Messages are kept verbatim from the upstream
// failure where one exists so callers can relay them without rewriting.
package apperrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeInvalidIndex     Code = "invalid_index"
	CodePreviewMissing   Code = "preview_missing"
	CodeAlreadySelected  Code = "already_selected"
	CodeUpstreamProvider Code = "upstream_provider"
	CodeUpstreamStorage  Code = "upstream_storage"
	CodePersistence      Code = "persistence"
	CodeInvalidParam     Code = "invalid_param"
)

type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches two AppErrors by code, so sentinel-style checks like
// errors.Is(err, apperrors.New(apperrors.CodeNotFound, "")) work without
// comparing messages.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the taxonomy code of err; ok is false when err carries no
// AppError anywhere in its chain.
func CodeOf(err error) (Code, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
