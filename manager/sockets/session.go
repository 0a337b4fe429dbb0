// Package sockets implements the session state machine that owns one
// transport handle, plus the message framing built on top of it.
//
// A Session is either connected or destroyed. Disconnect is the only way
// out of the connected state and nothing brings a session back. Sessions are
// not safe for concurrent use; callers serialize calls per session.
package sockets

import (
	"errors"

	"go.uber.org/zap"

	"github.com/OpenListTeam/wazero-netlink/common/bytespool"
	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// Session wraps exactly one transport handle.
type Session struct {
	handle  transport.Handle
	metrics *Metrics

	protocol transport.Protocol
	version  transport.IPVersion
	role     transport.Role
	blocking bool

	hostFrom string
	portFrom uint16
	// hostTo/portTo are set only when the session has a peer.
	hostTo    string
	portTo    uint16
	hasRemote bool

	listenBacklog int
	destroyed     bool
}

func newSession(h transport.Handle, m *Metrics) *Session {
	s := &Session{
		handle:        h,
		metrics:       m,
		protocol:      h.Protocol(),
		version:       h.IPVersion(),
		role:          h.Role(),
		blocking:      h.Blocking(),
		hostFrom:      h.LocalHost(),
		portFrom:      h.LocalPort(),
		listenBacklog: h.ListenBacklog(),
	}
	if s.role == transport.RoleClient {
		s.hostTo = h.RemoteHost()
		s.portTo = h.RemotePort()
		s.hasRemote = s.portTo != 0
	}

	m.sessionOpened(s.protocol, s.role)
	Logger().Debug("session opened",
		zap.Stringer("protocol", s.protocol),
		zap.Stringer("role", s.role),
		zap.String("hostFrom", s.hostFrom),
		zap.Uint16("portFrom", s.portFrom),
		zap.String("hostTo", s.hostTo),
		zap.Uint16("portTo", s.portTo))
	return s
}

func (s *Session) Protocol() transport.Protocol   { return s.protocol }
func (s *Session) IPVersion() transport.IPVersion { return s.version }
func (s *Session) Role() transport.Role           { return s.role }

func (s *Session) IsBlocking() bool  { return s.blocking }
func (s *Session) IsDestroyed() bool { return s.destroyed }
func (s *Session) IsIPv4() bool      { return s.version == transport.IPv4 }
func (s *Session) IsIPv6() bool      { return s.version == transport.IPv6 }
func (s *Session) IsTCP() bool       { return s.protocol == transport.TCP }
func (s *Session) IsUDP() bool       { return s.protocol == transport.UDP }
func (s *Session) IsClient() bool    { return s.role == transport.RoleClient }
func (s *Session) IsServer() bool    { return s.role == transport.RoleServer }

func (s *Session) HostFrom() string { return s.hostFrom }
func (s *Session) PortFrom() uint16 { return s.portFrom }

// HostTo returns the peer host. It is empty when HasRemote is false.
func (s *Session) HostTo() string { return s.hostTo }
func (s *Session) PortTo() uint16 { return s.portTo }

// HasRemote reports whether the session is directed at a peer.
func (s *Session) HasRemote() bool { return s.hasRemote }

// ListenBacklog returns the backlog requested for a listening session.
func (s *Session) ListenBacklog() int { return s.listenBacklog }

// SetBlocking switches the blocking mode. The cached flag changes only after
// the transport accepted the change.
func (s *Session) SetBlocking(blocking bool) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if err := s.handle.SetBlocking(blocking); err != nil {
		return err
	}
	s.blocking = blocking
	return nil
}

// NextReadSize returns the number of bytes that can be read right now.
func (s *Session) NextReadSize() (int, error) {
	if s.destroyed {
		return 0, ErrDestroyed
	}
	return s.handle.NextReadSize()
}

// Accept returns a session for the next pending connection, or nil when
// none is pending. The new session owns a new handle; the listening handle
// is untouched.
func (s *Session) Accept() (*Session, error) {
	if s.destroyed {
		return nil, ErrDestroyed
	}
	h, err := s.handle.Accept()
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return newSession(h, s.metrics), nil
}

// Disconnect drains buffered input, closes the handle and destroys the
// session. The session ends destroyed even when draining or closing fails;
// the failure is still returned. A second call returns ErrDestroyed.
func (s *Session) Disconnect() error {
	if s.destroyed {
		return ErrDestroyed
	}
	s.destroyed = true

	var drainErr error
	// 监听中的 TCP socket 不能直接读取，跳过 drain。
	if s.protocol != transport.TCP || s.role != transport.RoleServer {
		drainErr = s.drain()
	}
	closeErr := s.handle.Close()

	s.metrics.sessionClosed(s.protocol, s.role)
	err := errors.Join(drainErr, closeErr)
	if err != nil {
		Logger().Warn("session disconnect failed",
			zap.Stringer("protocol", s.protocol),
			zap.Uint16("portFrom", s.portFrom),
			zap.Error(err))
	} else {
		Logger().Debug("session closed",
			zap.Stringer("protocol", s.protocol),
			zap.Uint16("portFrom", s.portFrom))
	}
	return err
}

// drain reads and discards whatever is buffered, in one read, so closing
// never waits on unread input.
func (s *Session) drain() error {
	n, err := s.handle.NextReadSize()
	if isNotSupported(err) {
		return nil
	}
	if err != nil || n < 1 {
		return err
	}

	buf := bytespool.Alloc(n)
	defer bytespool.Free(buf)

	read, err := s.handle.Read(buf)
	s.metrics.bytesDrained(read)
	return err
}
