package argparse

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// Kind selects the validator applied to one binding.
type Kind uint8

const (
	// Uint16 accepts a strictly positive number no larger than 65535.
	Uint16 Kind = iota
	// Bool accepts a boolean.
	Bool
	// IPVersion accepts the literals "IPv4" and "IPv6".
	IPVersion
	// Bytes accepts a string, or with SendableData also a buffer or byte array.
	Bytes
)

func (k Kind) String() string {
	switch k {
	case Uint16:
		return "uint16"
	case Bool:
		return "bool"
	case IPVersion:
		return "ip-version"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

func (k Kind) validate(raw any, sub SubType) (any, string) {
	switch k {
	case Uint16:
		return validateUint16(raw)
	case Bool:
		return validateBool(raw)
	case IPVersion:
		return validateIPVersion(raw)
	case Bytes:
		return validateBytes(raw, sub)
	default:
		return nil, "Cannot handle unknown type."
	}
}

func validateUint16(raw any) (any, string) {
	n, ok := toNumber(raw)
	if !ok {
		return nil, "must be a number. " + gotType(raw)
	}

	// Callers hand over floating point numbers; only the integer part counts.
	n = math.Trunc(n)
	if math.IsNaN(n) {
		n = 0
	}
	if n <= 0 {
		return nil, formatNumber(n) + " must be greater than 0."
	}
	if n > math.MaxUint16 {
		return nil, fmt.Sprintf("%s beyond max port range of %d.", formatNumber(n), math.MaxUint16)
	}
	return uint16(n), ""
}

func validateBool(raw any) (any, string) {
	b, ok := raw.(bool)
	if !ok {
		return nil, "must be a boolean. " + gotType(raw)
	}
	return b, ""
}

const invalidIPVersion = "must be an ip version string either 'IPv4' or 'IPv6'."

func validateIPVersion(raw any) (any, string) {
	s, ok := raw.(string)
	if !ok {
		return nil, invalidIPVersion + " " + gotType(raw)
	}
	switch s {
	case "IPv4":
		return transport.IPv4, ""
	case "IPv6":
		return transport.IPv6, ""
	default:
		return nil, fmt.Sprintf("%s Got: '%s'.", invalidIPVersion, s)
	}
}

func validateBytes(raw any, sub SubType) (any, string) {
	if s, ok := raw.(string); ok {
		return []byte(s), ""
	}
	if sub != SendableData {
		return nil, "must be a string. " + gotType(raw)
	}

	switch buf := raw.(type) {
	case []byte:
		return append([]byte{}, buf...), ""
	case Uint8Array:
		return append([]byte{}, buf...), ""
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		owned := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(owned), rv)
		return owned, ""
	}
	return nil, "must be a string, Buffer, or Uint8Array."
}

func toNumber(raw any) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// gotType names raw the way the calling side spells its types.
func gotType(raw any) string {
	return fmt.Sprintf("Got type %q.", typeName(raw))
}

func typeName(raw any) string {
	if IsUndefined(raw) {
		return "undefined"
	}
	switch raw.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	}
	if _, ok := toNumber(raw); ok {
		return "number"
	}
	return "object"
}

func assign(dst any, native any) {
	switch d := dst.(type) {
	case *uint16:
		*d = native.(uint16)
	case *bool:
		*d = native.(bool)
	case *transport.IPVersion:
		*d = native.(transport.IPVersion)
	case *[]byte:
		*d = native.([]byte)
	case *string:
		*d = string(native.([]byte))
	default:
		panic(fmt.Sprintf("argparse: unsupported destination %T", dst))
	}
}
