package core

import (
	"errors"
	"fmt"
)

// Error is a coded failure that travels across package boundaries.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func NewError(err error, code string, details map[string]any) *Error {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Message: msg, Details: details, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsMap renders the error for JSON payloads.
func (e *Error) AsMap() map[string]any {
	out := map[string]any{"code": e.Code, "message": RedactString(e.Message)}
	if len(e.Details) > 0 {
		out["details"] = e.Details
	}
	return out
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
