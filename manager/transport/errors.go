package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
)

// ErrorCode classifies a transport failure.
type ErrorCode uint8

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeAccessDenied
	ErrorCodeNotSupported
	ErrorCodeInvalidArgument
	ErrorCodeOutOfMemory
	ErrorCodeTimeout
	ErrorCodeConcurrencyConflict
	ErrorCodeNotInProgress
	ErrorCodeWouldBlock
	ErrorCodeInvalidState
	ErrorCodeNewSocketLimit
	ErrorCodeAddressNotBindable
	ErrorCodeAddressInUse
	ErrorCodeRemoteUnreachable
	ErrorCodeConnectionRefused
	ErrorCodeConnectionReset
	ErrorCodeConnectionAborted
	ErrorCodeDatagramTooLarge
	ErrorCodeNameUnresolvable
	ErrorCodeTemporaryResolverFailure
	ErrorCodePermanentResolverFailure
)

// Error is a failure reported by the transport. It is surfaced to callers
// verbatim and never retried.
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[Error %d]: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapError turns a Go network error into an *Error.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return &Error{Code: mapOsError(err), Msg: op + ": " + err.Error(), Err: err}
}

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// errClosed is returned by every handle operation after Close.
var errClosed = newError(ErrorCodeInvalidState, "socket is closed")

// mapDNSError maps a resolver failure.
func mapDNSError(err error) ErrorCode {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTemporary {
			return ErrorCodeTemporaryResolverFailure
		}
		if dnsErr.IsNotFound {
			return ErrorCodeNameUnresolvable
		}
		return ErrorCodePermanentResolverFailure
	}
	return ErrorCodeNameUnresolvable
}

// mapOsError maps os/syscall network errors to an ErrorCode.
func mapOsError(err error) ErrorCode {
	if err == nil {
		return ErrorCodeUnknown
	}
	if errors.Is(err, fs.ErrPermission) {
		return ErrorCodeAccessDenied
	}
	if errors.Is(err, fs.ErrInvalid) {
		return ErrorCodeInvalidArgument
	}
	if errors.Is(err, net.ErrClosed) {
		return ErrorCodeInvalidState
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return mapDNSError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCodeTimeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return ErrorCodeAccessDenied
		case syscall.EADDRINUSE:
			return ErrorCodeAddressInUse
		case syscall.EADDRNOTAVAIL:
			return ErrorCodeAddressNotBindable
		case syscall.EAFNOSUPPORT:
			return ErrorCodeNotSupported
		case syscall.EALREADY, syscall.EINPROGRESS:
			return ErrorCodeConcurrencyConflict
		case syscall.ECONNABORTED:
			return ErrorCodeConnectionAborted
		case syscall.ECONNREFUSED:
			return ErrorCodeConnectionRefused
		case syscall.ECONNRESET, syscall.EPIPE:
			return ErrorCodeConnectionReset
		case syscall.EINVAL:
			return ErrorCodeInvalidArgument
		case syscall.EISCONN, syscall.ENOTCONN:
			return ErrorCodeInvalidState
		case syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return ErrorCodeRemoteUnreachable
		case syscall.ENFILE, syscall.EMFILE:
			return ErrorCodeNewSocketLimit
		case syscall.EMSGSIZE:
			return ErrorCodeDatagramTooLarge
		case syscall.ENOMEM, syscall.ENOBUFS:
			return ErrorCodeOutOfMemory
		case syscall.EOPNOTSUPP:
			return ErrorCodeNotSupported
		case syscall.ETIMEDOUT:
			return ErrorCodeTimeout
		case syscall.EWOULDBLOCK:
			return ErrorCodeWouldBlock
		}
	}

	return ErrorCodeUnknown
}
