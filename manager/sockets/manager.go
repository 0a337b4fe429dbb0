package sockets

import (
	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// Manager creates sessions over one transport.
type Manager struct {
	transport transport.Transport
	metrics   *Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records session metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// NewManager creates a Manager over t.
func NewManager(t transport.Transport, opts ...Option) *Manager {
	m := &Manager{transport: t}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens a TCP client session to host:port. On failure no session
// exists.
func (m *Manager) Connect(host string, port uint16, version transport.IPVersion) (*Session, error) {
	h, err := m.transport.Connect(host, port, transport.TCP, version)
	if err != nil {
		return nil, err
	}
	return newSession(h, m.metrics), nil
}

// Listen opens a TCP server session bound to hostFrom:portFrom. An empty
// hostFrom binds every interface.
func (m *Manager) Listen(hostFrom string, portFrom uint16, version transport.IPVersion, backlog int) (*Session, error) {
	h, err := m.transport.Listen(hostFrom, portFrom, version, backlog)
	if err != nil {
		return nil, err
	}
	return newSession(h, m.metrics), nil
}

// BindUDP opens a UDP session bound to hostFrom:portFrom. When both hostTo
// and portTo are given the session is directed at that peer.
func (m *Manager) BindUDP(hostFrom string, portFrom uint16, hostTo string, portTo uint16, version transport.IPVersion) (*Session, error) {
	h, err := m.transport.BindUDP(hostFrom, portFrom, hostTo, portTo, version)
	if err != nil {
		return nil, err
	}
	return newSession(h, m.metrics), nil
}

// Wrap makes a session own an existing handle.
func (m *Manager) Wrap(h transport.Handle) *Session {
	return newSession(h, m.metrics)
}
