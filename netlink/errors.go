package netlink

import (
	"errors"
	"fmt"

	"github.com/OpenListTeam/wazero-netlink/argparse"
)

// ProtocolMisuseError reports an operation the socket's flavor does not
// support, or construction of the base class.
type ProtocolMisuseError struct {
	Msg string
}

func (e *ProtocolMisuseError) Error() string { return e.Msg }

func misuse(format string, args ...any) error {
	return &ProtocolMisuseError{Msg: fmt.Sprintf(format, args...)}
}

// PropertyError reports a rejected property write.
type PropertyError struct {
	Property string
	Class    string
	// ReadOnly is set when the property cannot be written at all, as
	// opposed to being written with a value of the wrong type.
	ReadOnly bool
}

func (e *PropertyError) Error() string {
	if e.ReadOnly {
		return fmt.Sprintf("Property %q on %s instance cannot be set as it is a readonly property.", e.Property, e.Class)
	}
	return fmt.Sprintf("Value to set %q to must be a boolean.", e.Property)
}

// ErrUnknownHandle is returned for handles that were never issued or were
// already released.
var ErrUnknownHandle = errors.New("unknown socket handle")

// Class is the error class delivered to the caller.
type Class uint8

const (
	// ClassRuntime is a generic runtime error.
	ClassRuntime Class = iota
	// ClassBadInput is an argument or value the caller can correct.
	ClassBadInput
)

func (c Class) String() string {
	if c == ClassBadInput {
		return "bad input"
	}
	return "runtime"
}

// Classify maps err to the class it is delivered with.
func Classify(err error) Class {
	var argErr *argparse.ArgumentError
	if errors.As(err, &argErr) {
		return ClassBadInput
	}
	var propErr *PropertyError
	if errors.As(err, &propErr) && !propErr.ReadOnly {
		return ClassBadInput
	}
	return ClassRuntime
}
