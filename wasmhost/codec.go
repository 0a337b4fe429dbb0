package wasmhost

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/valyala/bytebufferpool"

	"github.com/OpenListTeam/wazero-netlink/argparse"
	"github.com/OpenListTeam/wazero-netlink/netlink"
)

// Value tags. Every value is one tag byte followed by its payload; integers
// are little endian and lengths are u32.
const (
	TagUndefined  byte = 0 // no payload
	TagNumber     byte = 1 // f64
	TagBool       byte = 2 // u8, 0 or 1
	TagString     byte = 3 // len, utf-8 bytes
	TagBuffer     byte = 4 // len, bytes
	TagUint8Array byte = 5 // len, bytes
	TagObject     byte = 6 // count, then count × (key string, value)
	TagHandle     byte = 7 // u32
)

// Outcome status bytes.
const (
	StatusOK       byte = 0
	StatusBadInput byte = 1
	StatusRuntime  byte = 2
)

const maxDepth = 32

// Handle is a socket handle as seen by the guest.
type Handle uint32

var errTruncated = errors.New("wasmhost: truncated value")

// Outcome is the decoded result of one host call.
type Outcome struct {
	Status  byte
	Value   any
	Message string
}

// Err returns the failure carried by the outcome, or nil.
func (o Outcome) Err() error {
	if o.Status == StatusOK {
		return nil
	}
	return errors.New(o.Message)
}

// EncodeArgs encodes an argument list the way guests pass it to the host.
func EncodeArgs(args ...any) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(len(args)))
	for _, a := range args {
		if err := encodeValue(buf, a, 0); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), buf.B...), nil
}

// DecodeArgs decodes an argument list produced by EncodeArgs.
func DecodeArgs(b []byte) ([]any, error) {
	d := decoder{b: b}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	// Every value takes at least its tag byte.
	if int(n) > len(b)-d.off {
		return nil, errTruncated
	}
	args := make([]any, 0, n)
	for range n {
		v, err := d.value(0)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// DecodeOutcome decodes what take-outcome copied into guest memory.
func DecodeOutcome(b []byte) (Outcome, error) {
	d := decoder{b: b}
	status, err := d.u8()
	if err != nil {
		return Outcome{}, err
	}
	if status == StatusOK {
		v, err := d.value(0)
		return Outcome{Status: status, Value: v}, err
	}
	msg, err := d.bytes()
	return Outcome{Status: status, Message: string(msg)}, err
}

func encodeOutcome(v any, callErr error) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if callErr == nil {
		buf.WriteByte(StatusOK)
		if callErr = encodeValue(buf, v, 0); callErr == nil {
			return append([]byte(nil), buf.B...)
		}
		buf.Reset()
	}

	status := StatusRuntime
	if netlink.Classify(callErr) == netlink.ClassBadInput {
		status = StatusBadInput
	}
	buf.WriteByte(status)
	appendBytes(buf, []byte(callErr.Error()))
	return append([]byte(nil), buf.B...)
}

func appendBytes(buf *bytebufferpool.ByteBuffer, p []byte) {
	buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(len(p)))
	buf.B = append(buf.B, p...)
}

func encodeValue(buf *bytebufferpool.ByteBuffer, v any, depth int) error {
	if depth > maxDepth {
		return errors.New("wasmhost: value nested too deeply")
	}
	if argparse.IsUndefined(v) {
		buf.WriteByte(TagUndefined)
		return nil
	}

	switch v := v.(type) {
	case bool:
		buf.WriteByte(TagBool)
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case string:
		buf.WriteByte(TagString)
		appendBytes(buf, []byte(v))
	case []byte:
		buf.WriteByte(TagBuffer)
		appendBytes(buf, v)
	case argparse.Uint8Array:
		buf.WriteByte(TagUint8Array)
		appendBytes(buf, v)
	case Handle:
		buf.WriteByte(TagHandle)
		buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(v))
	case *netlink.Socket:
		buf.WriteByte(TagHandle)
		buf.B = binary.LittleEndian.AppendUint32(buf.B, v.Handle())
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte(TagObject)
		buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(len(keys)))
		for _, k := range keys {
			appendBytes(buf, []byte(k))
			if err := encodeValue(buf, v[k], depth+1); err != nil {
				return err
			}
		}
	default:
		return encodeReflect(buf, v)
	}
	return nil
}

// encodeReflect handles numbers of any Go kind and fixed-width byte arrays.
func encodeReflect(buf *bytebufferpool.ByteBuffer, v any) error {
	rv := reflect.ValueOf(v)
	var f float64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f = float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	case reflect.Array:
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("wasmhost: cannot encode %T", v)
		}
		p := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(p), rv)
		buf.WriteByte(TagUint8Array)
		appendBytes(buf, p)
		return nil
	default:
		return fmt.Errorf("wasmhost: cannot encode %T", v)
	}
	buf.WriteByte(TagNumber)
	buf.B = binary.LittleEndian.AppendUint64(buf.B, math.Float64bits(f))
	return nil
}

type decoder struct {
	b   []byte
	off int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.b)-d.off < n {
		return nil, errTruncated
	}
	p := d.b[d.off : d.off+n]
	d.off += n
	return p, nil
}

func (d *decoder) u8() (byte, error) {
	p, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (d *decoder) u32() (uint32, error) {
	p, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// bytes returns a length-prefixed byte string. The result aliases d.b.
func (d *decoder) bytes() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	return d.take(int(n))
}

func (d *decoder) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.New("wasmhost: value nested too deeply")
	}
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagUndefined:
		return argparse.Undefined, nil
	case TagNumber:
		p, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
	case TagBool:
		b, err := d.u8()
		return b != 0, err
	case TagString:
		p, err := d.bytes()
		return string(p), err
	case TagBuffer:
		p, err := d.bytes()
		if err != nil {
			return nil, err
		}
		return append([]byte{}, p...), nil
	case TagUint8Array:
		p, err := d.bytes()
		if err != nil {
			return nil, err
		}
		return argparse.Uint8Array(append([]byte{}, p...)), nil
	case TagObject:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any)
		for range n {
			k, err := d.bytes()
			if err != nil {
				return nil, err
			}
			v, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			obj[string(k)] = v
		}
		return obj, nil
	case TagHandle:
		h, err := d.u32()
		return Handle(h), err
	default:
		return nil, fmt.Errorf("wasmhost: unknown value tag %d", tag)
	}
}
