// Package status defines the stable numeric result codes that cross the
// client/server and client/caller boundaries, and the error type that
// carries them through normal Go error handling.
package status

import "fmt"

// Code is a stable numeric result code. Negative values are errors;
// zero is success. These numbers are part of the wire compatibility
// contract with the server and must never be renumbered.
type Code int32

// Result codes, per the protocol's status taxonomy.
const (
	Success       Code = 0
	ParamError    Code = -1
	MemoryError   Code = -2
	IoError       Code = -3
	ProtocolError Code = -4
	DeviceError   Code = -5
	KeyNotFound   Code = -6
	Busy          Code = -7
	Overflow      Code = -8
)

var codeName = map[Code]string{
	Success:       "Success",
	ParamError:    "ParamError",
	MemoryError:   "MemoryError",
	IoError:       "IoError",
	ProtocolError: "ProtocolError",
	DeviceError:   "DeviceError",
	KeyNotFound:   "KeyNotFound",
	Busy:          "Busy",
	Overflow:      "Overflow",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	s, ok := codeName[c]
	if !ok {
		return fmt.Sprintf("UnknownCode(%d)", int32(c))
	}
	return s
}

// OK reports whether c represents success.
func (c Code) OK() bool {
	return c == Success
}

// Error wraps a Code as a Go error, for the operations in this module that
// return errors rather than bare codes (connect, batch assembly, submit,
// result lookup).
type Error struct {
	Code Code
	// Msg gives additional context; it is never part of the wire protocol.
	Msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// New builds an *Error from a code and an optional formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	msg := ""
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Msg: msg}
}

// CodeOf extracts the Code from err, returning IoError for any non-nil error
// that is not a *Error (e.g. an unwrapped I/O error), and Success for nil.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if se, ok := err.(*Error); ok {
		return se.Code
	}
	return IoError
}
