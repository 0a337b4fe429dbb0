// Package argparse binds the loosely-typed argument list of one boundary call
// to native Go values.
//
// Bindings are declared in positional order:
//
//	var (
//		host string
//		port uint16
//		ver  = transport.IPv4
//	)
//	if err := argparse.New(raw).
//		Required("host", argparse.Bytes, &host).
//		Required("port", argparse.Uint16, &port).
//		Optional("ipVersion", argparse.IPVersion, &ver).
//		Err(); err != nil {
//		return err
//	}
//
// The first failing binding stops evaluation. Later bindings still take a
// position so ordinal numbering stays stable.
package argparse

import "fmt"

// SubType refines how a Kind accepts its input.
type SubType uint8

const (
	// None accepts only the canonical caller type for the kind.
	None SubType = iota
	// SendableData widens Bytes to strings, buffers and fixed-width byte arrays.
	SendableData
)

type undefined struct{}

// Undefined is the caller-side "no value" marker. A nil element means the same.
var Undefined = undefined{}

// Uint8Array is a typed byte view handed over by a caller that tells it
// apart from a Buffer. SendableData accepts it like a []byte.
type Uint8Array []byte

// IsUndefined reports whether raw carries no value.
func IsUndefined(raw any) bool {
	return raw == nil || raw == Undefined
}

// Args is the binding list of one call. It is not safe for concurrent use
// and must not outlive the call it was created for.
type Args struct {
	raw      []any
	position int
	err      *ArgumentError
}

// New starts a binding list over the raw arguments of one call.
func New(raw []any) *Args {
	return &Args{raw: raw, position: -1}
}

// Required declares the next positional binding as mandatory.
func (a *Args) Required(name string, kind Kind, dst any, sub ...SubType) *Args {
	return a.bind(name, kind, dst, false, sub)
}

// Optional declares the next positional binding as optional. A missing or
// undefined argument leaves dst untouched.
func (a *Args) Optional(name string, kind Kind, dst any, sub ...SubType) *Args {
	return a.bind(name, kind, dst, true, sub)
}

func (a *Args) bind(name string, kind Kind, dst any, optional bool, sub []SubType) *Args {
	a.position++

	if a.err != nil {
		return a
	}

	if a.position >= len(a.raw) {
		if !optional {
			a.invalidate(name, fmt.Sprintf("is required, but not enough arguments passed (%d).", len(a.raw)))
		}
		return a
	}

	raw := a.raw[a.position]
	if optional && IsUndefined(raw) {
		return a
	}

	subType := None
	if len(sub) > 0 {
		subType = sub[0]
	}

	native, reason := kind.validate(raw, subType)
	if reason != "" {
		a.invalidate(name, reason)
		return a
	}
	assign(dst, native)
	return a
}

func (a *Args) invalidate(name, reason string) {
	a.err = &ArgumentError{Position: a.position, Name: name, Reason: reason}
}

// Invalid reports whether any binding failed.
func (a *Args) Invalid() bool {
	return a.err != nil
}

// Err returns the single failure of this call, or nil.
func (a *Args) Err() error {
	if a.err == nil {
		return nil
	}
	return a.err
}

// Len returns the number of raw arguments passed by the caller.
func (a *Args) Len() int {
	return len(a.raw)
}
