package wasmhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

type guestImport struct {
	name    string
	params  int
	results int
}

var guestImports = []guestImport{
	{"construct", 4, 1},
	{"call", 5, 1},
	{"get-property", 3, 1},
	{"set-property", 5, 1},
	{"drop", 1, 0},
	{"take-outcome", 2, 1},
}

func uleb(v int) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func wasmName(s string) []byte {
	return append(uleb(len(s)), s...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items [][]byte) []byte {
	return concat(uleb(len(items)), concat(items...))
}

func section(id byte, payload []byte) []byte {
	return concat([]byte{id}, uleb(len(payload)), payload)
}

// buildGuest assembles a module that imports every host function from
// module and re-exports each one through a trampoline of the same name,
// together with one page of memory.
func buildGuest(module string) []byte {
	n := len(guestImports)
	var types, imports, funcs, exports, codes [][]byte
	for i, f := range guestImports {
		typ := []byte{0x60}
		typ = append(typ, uleb(f.params)...)
		for range f.params {
			typ = append(typ, 0x7f)
		}
		typ = append(typ, uleb(f.results)...)
		for range f.results {
			typ = append(typ, 0x7f)
		}
		types = append(types, typ)

		imports = append(imports, concat(wasmName(module), wasmName(f.name), []byte{0x00}, uleb(i)))
		funcs = append(funcs, uleb(i))
		exports = append(exports, concat(wasmName(f.name), []byte{0x00}, uleb(n+i)))

		body := []byte{0x00}
		for p := range f.params {
			body = append(body, 0x20)
			body = append(body, uleb(p)...)
		}
		body = append(body, 0x10)
		body = append(body, uleb(i)...)
		body = append(body, 0x0b)
		codes = append(codes, concat(uleb(len(body)), body))
	}
	exports = append(exports, concat(wasmName("memory"), []byte{0x02, 0x00}))

	return concat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, vec(types)),
		section(2, vec(imports)),
		section(3, vec(funcs)),
		section(5, concat(uleb(1), []byte{0x00, 0x01})),
		section(7, vec(exports)),
		section(10, vec(codes)),
	)
}

const (
	scratchBase = 0
	outcomeBase = 32 * 1024
	outcomeCap  = 32 * 1024
)

type guest struct {
	t    *testing.T
	ctx  context.Context
	mod  api.Module
	next uint32
}

func newGuest(t *testing.T, ctx context.Context, r wazero.Runtime, module, name string) *guest {
	t.Helper()
	mod, err := r.InstantiateWithConfig(ctx, buildGuest(module), wazero.NewModuleConfig().WithName(name))
	require.NoError(t, err)
	return &guest{t: t, ctx: ctx, mod: mod}
}

// put copies p into scratch memory and returns its pointer and length.
func (g *guest) put(p []byte) (uint64, uint64) {
	g.t.Helper()
	ptr := scratchBase + g.next
	require.True(g.t, g.mod.Memory().Write(ptr, p))
	g.next += uint32(len(p))
	return api.EncodeU32(ptr), api.EncodeU32(uint32(len(p)))
}

func (g *guest) str(s string) (uint64, uint64) {
	return g.put([]byte(s))
}

func (g *guest) args(args ...any) (uint64, uint64) {
	g.t.Helper()
	b, err := EncodeArgs(args...)
	require.NoError(g.t, err)
	return g.put(b)
}

func (g *guest) raw(fn string, params ...uint64) []uint64 {
	g.t.Helper()
	g.next = 0
	res, err := g.mod.ExportedFunction(fn).Call(g.ctx, params...)
	require.NoError(g.t, err)
	return res
}

func (g *guest) take(n int32) Outcome {
	g.t.Helper()
	got := g.raw("take-outcome", api.EncodeU32(outcomeBase), api.EncodeU32(outcomeCap))
	require.Equal(g.t, n, api.DecodeI32(got[0]))

	p, ok := g.mod.Memory().Read(outcomeBase, uint32(n))
	require.True(g.t, ok)
	out, err := DecodeOutcome(p)
	require.NoError(g.t, err)
	return out
}

func (g *guest) construct(class string, args ...any) Outcome {
	g.t.Helper()
	g.next = 0
	cp, cl := g.str(class)
	ap, al := g.args(args...)
	res, err := g.mod.ExportedFunction("construct").Call(g.ctx, cp, cl, ap, al)
	require.NoError(g.t, err)
	return g.take(api.DecodeI32(res[0]))
}

func (g *guest) call(handle Handle, method string, args ...any) Outcome {
	g.t.Helper()
	g.next = 0
	mp, ml := g.str(method)
	ap, al := g.args(args...)
	res, err := g.mod.ExportedFunction("call").Call(g.ctx, api.EncodeU32(uint32(handle)), mp, ml, ap, al)
	require.NoError(g.t, err)
	return g.take(api.DecodeI32(res[0]))
}

func (g *guest) getProperty(handle Handle, name string) Outcome {
	g.t.Helper()
	g.next = 0
	np, nl := g.str(name)
	res, err := g.mod.ExportedFunction("get-property").Call(g.ctx, api.EncodeU32(uint32(handle)), np, nl)
	require.NoError(g.t, err)
	return g.take(api.DecodeI32(res[0]))
}

func (g *guest) setProperty(handle Handle, name string, value any) Outcome {
	g.t.Helper()
	g.next = 0
	np, nl := g.str(name)
	ap, al := g.args(value)
	res, err := g.mod.ExportedFunction("set-property").Call(g.ctx, api.EncodeU32(uint32(handle)), np, nl, ap, al)
	require.NoError(g.t, err)
	return g.take(api.DecodeI32(res[0]))
}

func (g *guest) drop(handle Handle) {
	g.t.Helper()
	_, err := g.mod.ExportedFunction("drop").Call(g.ctx, api.EncodeU32(uint32(handle)))
	require.NoError(g.t, err)
}
