// Package firmerr implements the error taxonomy described for Firm's RPC
// surface: InvalidArgument, NotFound, AlreadyExists, FailedPrecondition,
// Unauthenticated, PermissionDenied, ResourceExhausted, Cancelled,
// Internal and Unavailable. It follows knative-func's pattern of small
// named error types carrying structured data (see pkg/functions/errors.go)
// but additionally exposes a real grpc/codes.Code and GRPCStatus(), so a
// future generated gRPC server can return these directly without another
// translation layer.
package firmerr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a Firm error carrying one of the taxonomy codes.
type Error struct {
	Code codes.Code
	Msg  string
	err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// GRPCStatus implements the interface github.com/grpc-ecosystem-adjacent
// gRPC servers look for when converting a returned error into a wire
// status, letting a real generated server hand this back unmodified.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Msg)
}

func newf(code codes.Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a taxonomy code and message, preserving err as
// the unwrap cause.
func Wrap(code codes.Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), err: err}
}

func InvalidArgument(format string, args ...any) *Error    { return newf(codes.InvalidArgument, format, args...) }
func NotFound(format string, args ...any) *Error           { return newf(codes.NotFound, format, args...) }
func AlreadyExists(format string, args ...any) *Error      { return newf(codes.AlreadyExists, format, args...) }
func FailedPrecondition(format string, args ...any) *Error { return newf(codes.FailedPrecondition, format, args...) }
func Unauthenticated(format string, args ...any) *Error    { return newf(codes.Unauthenticated, format, args...) }
func PermissionDenied(format string, args ...any) *Error   { return newf(codes.PermissionDenied, format, args...) }
func ResourceExhausted(format string, args ...any) *Error  { return newf(codes.ResourceExhausted, format, args...) }
func Cancelled(format string, args ...any) *Error          { return newf(codes.Canceled, format, args...) }
func Internal(format string, args ...any) *Error           { return newf(codes.Internal, format, args...) }
func Unavailable(format string, args ...any) *Error        { return newf(codes.Unavailable, format, args...) }

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code codes.Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the taxonomy code from err, defaulting to Unknown when
// err isn't a *Error.
func CodeOf(err error) codes.Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codes.Unknown
}
