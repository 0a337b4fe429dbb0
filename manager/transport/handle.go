package transport

import (
	"errors"
	"io"
	"net"
	"sync"
)

// netHandle is a Handle over one TCP connection, TCP listener or UDP socket.
// Exactly one of tcp, listener and udp is set.
type netHandle struct {
	protocol Protocol
	version  IPVersion
	role     Role
	blocking bool

	tcp      *net.TCPConn
	listener *net.TCPListener
	udp      *net.UDPConn

	local net.Addr
	peer  net.Addr
	// remote is the peer a UDP socket is connected to.
	remote *net.UDPAddr

	backlog  int
	resolver *resolver

	closed    bool
	closeOnce sync.Once
}

func (h *netHandle) Protocol() Protocol   { return h.protocol }
func (h *netHandle) IPVersion() IPVersion { return h.version }
func (h *netHandle) Role() Role           { return h.role }
func (h *netHandle) Blocking() bool       { return h.blocking }
func (h *netHandle) ListenBacklog() int   { return h.backlog }

func (h *netHandle) LocalHost() string {
	host, _ := splitAddr(h.local)
	return host
}

func (h *netHandle) LocalPort() uint16 {
	_, port := splitAddr(h.local)
	return port
}

func (h *netHandle) RemoteHost() string {
	if h.remote != nil {
		return h.remote.IP.String()
	}
	host, _ := splitAddr(h.peer)
	return host
}

func (h *netHandle) RemotePort() uint16 {
	if h.remote != nil {
		return uint16(h.remote.Port)
	}
	_, port := splitAddr(h.peer)
	return port
}

func (h *netHandle) SetBlocking(blocking bool) error {
	if h.closed {
		return errClosed
	}
	h.blocking = blocking
	return nil
}

// conn returns the connection data flows over, nil for listeners.
func (h *netHandle) conn() net.Conn {
	switch {
	case h.tcp != nil:
		return h.tcp
	case h.udp != nil:
		return h.udp
	default:
		return nil
	}
}

func (h *netHandle) NextReadSize() (int, error) {
	if h.closed {
		return 0, errClosed
	}
	var n int
	var err error
	switch {
	case h.tcp != nil:
		n, err = nextReadSize(h.tcp)
	case h.udp != nil:
		n, err = nextReadSize(h.udp)
	default:
		return 0, nil
	}
	return n, wrapError("next read size", err)
}

func (h *netHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, errClosed
	}
	c := h.conn()
	if c == nil {
		return 0, newError(ErrorCodeInvalidState, "read: socket is listening")
	}

	if !h.blocking {
		n, err := readNow(c, p)
		return n, wrapError("read", err)
	}

	n, err := c.Read(p)
	if errors.Is(err, io.EOF) {
		// Peer finished sending; an empty read ends the current message.
		return n, nil
	}
	return n, wrapError("read", err)
}

func (h *netHandle) ReadFrom(p []byte) (int, string, uint16, error) {
	if h.closed {
		return 0, "", 0, errClosed
	}
	if h.udp == nil {
		n, err := h.Read(p)
		if err != nil || n == 0 {
			return n, "", 0, err
		}
		return n, h.RemoteHost(), h.RemotePort(), nil
	}

	if !h.blocking {
		n, addr, err := recvFromNow(h.udp, p)
		if err != nil {
			return 0, "", 0, wrapError("read from", err)
		}
		host, port := splitAddr(addr)
		return n, host, port, nil
	}

	n, addr, err := h.udp.ReadFromUDP(p)
	if err != nil {
		return 0, "", 0, wrapError("read from", err)
	}
	host, port := splitAddr(addr)
	return n, host, port, nil
}

func (h *netHandle) Send(p []byte) (int, error) {
	if h.closed {
		return 0, errClosed
	}
	switch {
	case h.tcp != nil:
		n, err := h.tcp.Write(p)
		return n, wrapError("send", err)
	case h.udp != nil:
		if h.remote == nil {
			return 0, newError(ErrorCodeInvalidState, "send: UDP socket has no destination")
		}
		n, err := h.udp.Write(p)
		return n, wrapError("send", err)
	default:
		return 0, newError(ErrorCodeInvalidState, "send: socket is listening")
	}
}

func (h *netHandle) SendTo(p []byte, host string, port uint16) (int, error) {
	if h.closed {
		return 0, errClosed
	}
	if h.udp == nil {
		return 0, newError(ErrorCodeNotSupported, "send to: not a datagram socket")
	}

	ip, err := h.resolver.resolve(host, h.version)
	if err != nil {
		return 0, err
	}
	if ip == nil {
		return 0, newError(ErrorCodeInvalidArgument, "send to: host is required")
	}

	if h.remote != nil {
		if !ip.Equal(h.remote.IP) || int(port) != h.remote.Port {
			return 0, newError(ErrorCodeInvalidState, "send to: socket is connected to "+h.remote.String())
		}
		n, err := h.udp.Write(p)
		return n, wrapError("send to", err)
	}

	n, err := h.udp.WriteToUDP(p, &net.UDPAddr{IP: ip, Port: int(port)})
	return n, wrapError("send to", err)
}

func (h *netHandle) Accept() (Handle, error) {
	if h.closed {
		return nil, errClosed
	}
	if h.listener == nil {
		return nil, newError(ErrorCodeInvalidState, "accept: socket is not listening")
	}

	var conn *net.TCPConn
	var err error
	if h.blocking {
		conn, err = h.listener.AcceptTCP()
	} else {
		conn, err = acceptNow(h.listener)
	}
	if err != nil {
		return nil, wrapError("accept", err)
	}
	if conn == nil {
		return nil, nil
	}

	version := IPv4
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		version = versionOf(addr.IP)
	}
	return newConnHandle(conn, version, h.resolver), nil
}

func (h *netHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.closed = true
		if h.listener != nil {
			err = h.listener.Close()
		}
		if h.tcp != nil {
			err = errors.Join(err, h.tcp.Close())
		}
		if h.udp != nil {
			err = errors.Join(err, h.udp.Close())
		}
	})
	return wrapError("disconnect", err)
}

func splitAddr(addr net.Addr) (string, uint16) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String(), uint16(a.Port)
	case *net.UDPAddr:
		return a.IP.String(), uint16(a.Port)
	default:
		return "", 0
	}
}
