// Package netlink exposes TCP client, TCP server and UDP sockets to callers
// that pass loosely-typed argument lists, such as script runtimes and
// WebAssembly guests.
//
// A Host owns every socket it creates. Callers refer to sockets by handle,
// invoke methods by name and receive plain Go values back: bool, string,
// uint16, int, []byte, map[string]any for datagrams, *Socket for accepted
// connections, and nil for "no value".
package netlink

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/OpenListTeam/wazero-netlink/argparse"
	"github.com/OpenListTeam/wazero-netlink/common/handles"
	"github.com/OpenListTeam/wazero-netlink/manager/sockets"
	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// Socket is a session seen through one flavor.
type Socket struct {
	flavor  Flavor
	session *sockets.Session
	handle  uint32
}

func (s *Socket) Flavor() Flavor             { return s.flavor }
func (s *Socket) Session() *sockets.Session { return s.session }
func (s *Socket) Handle() uint32             { return s.handle }

// Host creates sockets and routes calls to them.
type Host struct {
	manager        *sockets.Manager
	table          *handles.Table[*Socket]
	defaultVersion transport.IPVersion
	listenBacklog  int
	tracer         trace.Tracer
}

// Option configures a Host.
type Option func(*Host)

// WithDefaultIPVersion sets the IP version used when a constructor omits it.
func WithDefaultIPVersion(v transport.IPVersion) Option {
	return func(h *Host) { h.defaultVersion = v }
}

// WithListenBacklog sets the backlog used when a server omits listenQueue.
// Zero keeps the system default.
func WithListenBacklog(n int) Option {
	return func(h *Host) { h.listenBacklog = n }
}

// NewHost creates a Host that opens sessions through m.
func NewHost(m *sockets.Manager, opts ...Option) *Host {
	h := &Host{
		manager:        m,
		defaultVersion: transport.IPv4,
		tracer:         noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.table = handles.New(releaseSocket)
	return h
}

// releaseSocket runs when a caller drops its last reference.
func releaseSocket(s *Socket) error {
	if s.session.IsDestroyed() {
		return nil
	}
	return s.session.Disconnect()
}

// Construct creates a socket of the named class from raw constructor
// arguments. On failure nothing is created.
func (h *Host) Construct(class string, raw []any) (*Socket, error) {
	span := h.startSpan("netlink.construct", attribute.String("netlink.class", class))
	s, err := h.construct(class, raw)
	if s != nil {
		span.SetAttributes(attribute.Int64("netlink.handle", int64(s.handle)))
	}
	endSpan(span, err)
	return s, err
}

func (h *Host) construct(class string, raw []any) (*Socket, error) {
	flavor, ok := FlavorByClass(class)
	if !ok {
		return nil, misuse("%s is not a socket class", class)
	}

	var (
		session *sockets.Session
		err     error
	)
	switch flavor {
	case FlavorTCPClient:
		session, err = h.newTCPClient(raw)
	case FlavorTCPServer:
		session, err = h.newTCPServer(raw)
	case FlavorUDP:
		session, err = h.newUDP(raw)
	default:
		return nil, misuse("%s should not be directly constructed", flavor.ClassName())
	}
	if err != nil {
		Logger().Debug("construct failed", zap.String("class", class), zap.Error(err))
		return nil, err
	}
	return h.register(flavor, session), nil
}

func (h *Host) register(flavor Flavor, session *sockets.Session) *Socket {
	s := &Socket{flavor: flavor, session: session}
	s.handle = h.table.Add(s)
	Logger().Debug("socket registered",
		zap.Uint32("handle", s.handle),
		zap.String("class", flavor.ClassName()))
	return s
}

func (h *Host) newTCPClient(raw []any) (*sockets.Session, error) {
	var (
		host    string
		port    uint16
		version = h.defaultVersion
	)
	if err := argparse.New(raw).
		Required("host", argparse.Bytes, &host).
		Required("port", argparse.Uint16, &port).
		Optional("ipVersion", argparse.IPVersion, &version).
		Err(); err != nil {
		return nil, err
	}
	return h.manager.Connect(host, port, version)
}

func (h *Host) newTCPServer(raw []any) (*sockets.Session, error) {
	var (
		portFrom    uint16
		hostFrom    string
		version     = h.defaultVersion
		listenQueue uint16
	)
	if err := argparse.New(raw).
		Required("portFrom", argparse.Uint16, &portFrom).
		Optional("hostFrom", argparse.Bytes, &hostFrom).
		Optional("ipVersion", argparse.IPVersion, &version).
		Optional("listenQueue", argparse.Uint16, &listenQueue).
		Err(); err != nil {
		return nil, err
	}

	backlog := h.listenBacklog
	if listenQueue > 0 {
		backlog = int(listenQueue)
	}
	return h.manager.Listen(hostFrom, portFrom, version, backlog)
}

func (h *Host) newUDP(raw []any) (*sockets.Session, error) {
	var (
		hostTo   string
		portTo   uint16
		hostFrom string
		portFrom uint16
		version  = h.defaultVersion
	)
	if err := argparse.New(raw).
		Optional("hostTo", argparse.Bytes, &hostTo).
		Optional("portTo", argparse.Uint16, &portTo).
		Optional("hostFrom", argparse.Bytes, &hostFrom).
		Optional("portFrom", argparse.Uint16, &portFrom).
		Optional("ipVersion", argparse.IPVersion, &version).
		Err(); err != nil {
		return nil, err
	}

	// A peer is only recorded when both halves are given.
	if hostTo == "" || portTo == 0 {
		hostTo, portTo = "", 0
	}
	return h.manager.BindUDP(hostFrom, portFrom, hostTo, portTo, version)
}

// Socket returns the socket behind handle.
func (h *Host) Socket(handle uint32) (*Socket, bool) {
	return h.table.Get(handle)
}

// Call invokes method on the socket behind handle. Arguments are validated
// before the socket's state is looked at.
func (h *Host) Call(handle uint32, method string, raw []any) (any, error) {
	span := h.startSpan("netlink."+method, attribute.Int64("netlink.handle", int64(handle)))
	result, err := h.call(handle, method, raw)
	endSpan(span, err)
	return result, err
}

func (h *Host) call(handle uint32, method string, raw []any) (any, error) {
	s, ok := h.table.Get(handle)
	if !ok {
		return nil, ErrUnknownHandle
	}
	if !s.flavor.HasMethod(method) {
		return nil, misuse("%s is not a method of %s", method, s.flavor.ClassName())
	}
	fn, ok := methods[method]
	if !ok {
		return nil, misuse("%s is not a method of %s", method, s.flavor.ClassName())
	}

	result, err := fn(h, s, raw)
	if err != nil {
		Logger().Debug("call failed",
			zap.Uint32("handle", handle),
			zap.String("method", method),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Release drops the caller's reference to handle. A live session is
// disconnected; a destroyed one is just forgotten.
func (h *Host) Release(handle uint32) error {
	found, err := h.table.Remove(handle)
	if !found {
		return ErrUnknownHandle
	}
	return err
}

// Len returns the number of sockets the caller still references.
func (h *Host) Len() int {
	return h.table.Len()
}

// Close releases every socket.
func (h *Host) Close() error {
	return h.table.Close()
}
