// Package domainerrors defines the fixed error taxonomy returned by the domain core.
//
// Errors are constructed at the point of failure and carry a Code that callers
// branch on with HasCode. The transport layer maps codes to status codes with
// HTTPStatus; nothing downstream re-derives a code from message text.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeInvalidPhoneNumber: a phone number failed validation before any mutation.
	CodeInvalidPhoneNumber Code = "invalid_phone_number"
	// CodeInvalidID: a referenced id does not resolve to a vertex.
	CodeInvalidID Code = "invalid_id"
	// CodeEntityCreation: a create path failed after validation passed.
	CodeEntityCreation Code = "entity_creation_failed"
	// CodeUpdateFailed: a property mutation failed at the engine.
	CodeUpdateFailed Code = "update_failed"
	// CodeQueryFailed: a read traversal failed at the engine.
	CodeQueryFailed Code = "query_failed"
	// CodeCorruptRecord: a stored vertex is missing a property its record requires.
	CodeCorruptRecord Code = "corrupt_record"
	// CodeValidation: any other malformed input rejected before a mutation.
	CodeValidation Code = "validation"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	// ID is set for CodeInvalidID.
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidID reports an id that does not resolve to an entity.
func InvalidID(id string) *Error {
	return &Error{
		Code:    CodeInvalidID,
		Message: fmt.Sprintf("the provided id [%s] was not found", id),
		ID:      id,
	}
}

// HasCode reports whether any error in err's tree is a domain error with code.
// Joined errors are searched branch by branch.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*Error); ok && de.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}

// CodeOf returns the code of the outermost domain error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// HTTPStatus maps a code to the status class the resource layer responds with:
// invalid input is 400, unknown ids are 404, everything else is 500.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidPhoneNumber, CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidID:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
