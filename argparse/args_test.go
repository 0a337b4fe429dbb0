package argparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

func TestOrdinal(t *testing.T) {
	assert.Equal(t, "First", Ordinal(0))
	assert.Equal(t, "Tenth", Ordinal(9))
	assert.Equal(t, "Some", Ordinal(10))
	assert.Equal(t, "Some", Ordinal(-1))
}

func TestRequiredMissing(t *testing.T) {
	var host string
	var port uint16
	err := New([]any{"localhost"}).
		Required("host", Bytes, &host).
		Required("port", Uint16, &port).
		Err()

	require.EqualError(t, err, `Second argument "port" is required, but not enough arguments passed (1).`)
	require.Equal(t, "localhost", host)

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Equal(t, 1, argErr.Position)
}

func TestOptionalSkipsUndefined(t *testing.T) {
	var (
		hostFrom = "default"
		portFrom uint16
		ver      = transport.IPv4
	)
	args := New([]any{nil, Undefined}).
		Optional("hostFrom", Bytes, &hostFrom).
		Optional("portFrom", Uint16, &portFrom).
		Optional("ipVersion", IPVersion, &ver)

	require.False(t, args.Invalid())
	require.NoError(t, args.Err())
	require.Equal(t, 2, args.Len())
	require.Equal(t, "default", hostFrom)
	require.Zero(t, portFrom)
	require.Equal(t, transport.IPv4, ver)
}

func TestUint16Range(t *testing.T) {
	cases := []struct {
		raw    any
		want   uint16
		errMsg string
	}{
		{raw: 1, want: 1},
		{raw: 65535, want: 65535},
		{raw: 8080.9, want: 8080},
		{raw: uint8(7), want: 7},
		{raw: 0, errMsg: `First argument "port" 0 must be greater than 0.`},
		{raw: -3, errMsg: `First argument "port" -3 must be greater than 0.`},
		{raw: 0.5, errMsg: `First argument "port" 0 must be greater than 0.`},
		{raw: math.NaN(), errMsg: `First argument "port" 0 must be greater than 0.`},
		{raw: 65536, errMsg: `First argument "port" 65536 beyond max port range of 65535.`},
		{raw: "80", errMsg: `First argument "port" must be a number. Got type "string".`},
		{raw: true, errMsg: `First argument "port" must be a number. Got type "boolean".`},
	}

	for _, tc := range cases {
		var port uint16
		err := New([]any{tc.raw}).Required("port", Uint16, &port).Err()
		if tc.errMsg != "" {
			assert.EqualError(t, err, tc.errMsg, "%v", tc.raw)
			continue
		}
		if assert.NoError(t, err, "%v", tc.raw) {
			assert.Equal(t, tc.want, port)
		}
	}
}

func TestBool(t *testing.T) {
	var b bool
	require.NoError(t, New([]any{true}).Required("isBlocking", Bool, &b).Err())
	require.True(t, b)

	err := New([]any{1}).Required("isBlocking", Bool, &b).Err()
	require.EqualError(t, err, `First argument "isBlocking" must be a boolean. Got type "number".`)
}

func TestIPVersionExact(t *testing.T) {
	ver := transport.IPv4
	require.NoError(t, New([]any{"IPv6"}).Optional("ipVersion", IPVersion, &ver).Err())
	require.Equal(t, transport.IPv6, ver)

	err := New([]any{"ipv4"}).Optional("ipVersion", IPVersion, &ver).Err()
	require.EqualError(t, err, `First argument "ipVersion" must be an ip version string either 'IPv4' or 'IPv6'. Got: 'ipv4'.`)
	require.Equal(t, transport.IPv6, ver)

	err = New([]any{4}).Optional("ipVersion", IPVersion, &ver).Err()
	require.ErrorContains(t, err, `Got type "number".`)
}

func TestBytesSendableData(t *testing.T) {
	src := []byte("buffer")
	cases := []struct {
		name string
		raw  any
		want string
	}{
		{name: "string", raw: "text", want: "text"},
		{name: "buffer", raw: src, want: "buffer"},
		{name: "uint8array", raw: Uint8Array("abc"), want: "abc"},
		{name: "fixed array", raw: [3]byte{'a', 'b', 'c'}, want: "abc"},
		{name: "empty", raw: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var data []byte
			require.NoError(t, New([]any{tc.raw}).Required("data", Bytes, &data, SendableData).Err())
			require.Equal(t, tc.want, string(data))
		})
	}

	var data []byte
	require.NoError(t, New([]any{src}).Required("data", Bytes, &data, SendableData).Err())
	src[0] = 'X'
	require.Equal(t, "buffer", string(data), "buffers are copied")

	view := Uint8Array("view")
	require.NoError(t, New([]any{view}).Required("data", Bytes, &data, SendableData).Err())
	view[0] = 'X'
	require.Equal(t, "view", string(data))

	err := New([]any{42}).Required("data", Bytes, &data, SendableData).Err()
	require.EqualError(t, err, `First argument "data" must be a string, Buffer, or Uint8Array.`)

	var host string
	err = New([]any{[]byte("h")}).Required("host", Bytes, &host).Err()
	require.EqualError(t, err, `First argument "host" must be a string. Got type "object".`)
}

func TestFirstFailureStopsEvaluation(t *testing.T) {
	var (
		host = "unchanged"
		port uint16
		ver  = transport.IPv4
	)
	args := New([]any{42, 99, "IPv6"}).
		Required("host", Bytes, &host).
		Required("port", Uint16, &port).
		Optional("ipVersion", IPVersion, &ver)

	require.True(t, args.Invalid())
	require.EqualError(t, args.Err(), `First argument "host" must be a string. Got type "number".`)
	require.Equal(t, "unchanged", host)
	require.Zero(t, port)
	require.Equal(t, transport.IPv4, ver)
}

func TestPositionsAdvanceAcrossOptionals(t *testing.T) {
	var hostTo string
	var portTo, portFrom uint16
	err := New([]any{nil, nil, nil, 70000}).
		Optional("hostTo", Bytes, &hostTo).
		Optional("portTo", Uint16, &portTo).
		Optional("hostFrom", Bytes, &hostTo).
		Optional("portFrom", Uint16, &portFrom).
		Err()
	require.EqualError(t, err, `Fourth argument "portFrom" 70000 beyond max port range of 65535.`)
}
