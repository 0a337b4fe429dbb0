// Package wasmhost exports a netlink.Host to WebAssembly guests as a wazero
// host module.
//
// Every call that produces a result stores one encoded Outcome for the
// calling guest and returns its length. The guest then copies it out with
// take-outcome:
//
//	n := construct(classPtr, classLen, argsPtr, argsLen)
//	take-outcome(bufPtr, n)
//
// Arguments are passed as a list encoded with EncodeArgs.
package wasmhost

import (
	"context"
	"errors"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/OpenListTeam/wazero-netlink/netlink"
)

// DefaultModuleName is the import module name guests use.
const DefaultModuleName = "netlink"

// Results of take-outcome other than a length.
const (
	OutcomeTooLarge   int32 = -1
	OutcomeNone       int32 = -2
	OutcomeOutOfRange int32 = -3
)

var errMemory = errors.New("wasmhost: memory access out of range")

// Module is the host side of the netlink import module.
type Module struct {
	name string
	host *netlink.Host

	mu      sync.Mutex
	pending map[api.Module][]byte
}

// Option configures a Module.
type Option func(*Module)

// WithModuleName overrides DefaultModuleName.
func WithModuleName(name string) Option {
	return func(m *Module) { m.name = name }
}

// New creates a Module serving sockets from host.
func New(host *netlink.Host, opts ...Option) *Module {
	m := &Module{
		name:    DefaultModuleName,
		host:    host,
		pending: make(map[api.Module][]byte),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the import module name.
func (m *Module) Name() string { return m.name }

// Instantiate registers the host module in r.
func (m *Module) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	b := r.NewHostModuleBuilder(m.name)
	m.Export(b)
	return b.Instantiate(ctx)
}

// Export adds the host functions to b.
func (m *Module) Export(b wazero.HostModuleBuilder) {
	i32 := api.ValueTypeI32

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(m.construct), []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("class_ptr", "class_len", "args_ptr", "args_len").
		Export("construct")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(m.call), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("handle", "method_ptr", "method_len", "args_ptr", "args_len").
		Export("call")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(m.getProperty), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("handle", "name_ptr", "name_len").
		Export("get-property")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(m.setProperty), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("handle", "name_ptr", "name_len", "args_ptr", "args_len").
		Export("set-property")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(m.drop), []api.ValueType{i32}, nil).
		WithParameterNames("handle").
		Export("drop")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(m.takeOutcome), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		WithParameterNames("ptr", "cap").
		Export("take-outcome")
}

// Forget drops the outcome still pending for a guest that went away.
func (m *Module) Forget(guest api.Module) {
	m.mu.Lock()
	delete(m.pending, guest)
	m.mu.Unlock()
}

func (m *Module) construct(_ context.Context, mod api.Module, stack []uint64) {
	var result any
	class, err := readString(mod, stack[0], stack[1])
	if err == nil {
		var args []any
		if args, err = readArgs(mod, stack[2], stack[3]); err == nil {
			var s *netlink.Socket
			if s, err = m.host.Construct(class, args); err == nil {
				result = s
			}
		}
	}
	stack[0] = m.store(mod, result, err)
}

func (m *Module) call(_ context.Context, mod api.Module, stack []uint64) {
	var result any
	handle := api.DecodeU32(stack[0])
	method, err := readString(mod, stack[1], stack[2])
	if err == nil {
		var args []any
		if args, err = readArgs(mod, stack[3], stack[4]); err == nil {
			result, err = m.host.Call(handle, method, args)
		}
	}
	stack[0] = m.store(mod, result, err)
}

func (m *Module) getProperty(_ context.Context, mod api.Module, stack []uint64) {
	var result any
	handle := api.DecodeU32(stack[0])
	name, err := readString(mod, stack[1], stack[2])
	if err == nil {
		result, err = m.host.GetProperty(handle, name)
	}
	stack[0] = m.store(mod, result, err)
}

// setProperty takes the new value as the first element of an argument
// list; an empty list writes undefined.
func (m *Module) setProperty(_ context.Context, mod api.Module, stack []uint64) {
	handle := api.DecodeU32(stack[0])
	name, err := readString(mod, stack[1], stack[2])
	if err == nil {
		var args []any
		if args, err = readArgs(mod, stack[3], stack[4]); err == nil {
			var value any
			if len(args) > 0 {
				value = args[0]
			}
			err = m.host.SetProperty(handle, name, value)
		}
	}
	stack[0] = m.store(mod, nil, err)
}

func (m *Module) drop(_ context.Context, _ api.Module, stack []uint64) {
	handle := api.DecodeU32(stack[0])
	if err := m.host.Release(handle); err != nil {
		netlink.Logger().Debug("drop failed", zap.Uint32("handle", handle), zap.Error(err))
	}
}

func (m *Module) takeOutcome(_ context.Context, mod api.Module, stack []uint64) {
	ptr, capacity := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])

	m.mu.Lock()
	defer m.mu.Unlock()

	out, ok := m.pending[mod]
	switch {
	case !ok:
		stack[0] = api.EncodeI32(OutcomeNone)
	case uint32(len(out)) > capacity:
		stack[0] = api.EncodeI32(OutcomeTooLarge)
	case mod.Memory() == nil || !mod.Memory().Write(ptr, out):
		stack[0] = api.EncodeI32(OutcomeOutOfRange)
	default:
		delete(m.pending, mod)
		stack[0] = api.EncodeI32(int32(len(out)))
	}
}

// store replaces the guest's pending outcome and returns its length.
func (m *Module) store(mod api.Module, v any, err error) uint64 {
	out := encodeOutcome(v, err)
	m.mu.Lock()
	m.pending[mod] = out
	m.mu.Unlock()
	return api.EncodeI32(int32(len(out)))
}

func read(mod api.Module, ptr, size uint64) ([]byte, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errMemory
	}
	p, ok := mem.Read(api.DecodeU32(ptr), api.DecodeU32(size))
	if !ok {
		return nil, errMemory
	}
	return p, nil
}

func readString(mod api.Module, ptr, size uint64) (string, error) {
	p, err := read(mod, ptr, size)
	return string(p), err
}

func readArgs(mod api.Module, ptr, size uint64) ([]any, error) {
	if api.DecodeU32(size) == 0 {
		return nil, nil
	}
	p, err := read(mod, ptr, size)
	if err != nil {
		return nil, err
	}
	return DecodeArgs(p)
}
