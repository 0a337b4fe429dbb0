package transport

import (
	"net"
	"strconv"
	"time"
)

const (
	defaultResolverCacheSize = 64
	defaultDialTimeout       = 30 * time.Second
)

// Net is the Transport backed by the operating system sockets.
type Net struct {
	resolver    *resolver
	dialTimeout time.Duration
}

// Option configures a Net transport.
type Option func(*netOptions)

type netOptions struct {
	dialTimeout       time.Duration
	resolverCacheSize int
}

// WithDialTimeout bounds Connect. Zero disables the bound.
func WithDialTimeout(d time.Duration) Option {
	return func(o *netOptions) { o.dialTimeout = d }
}

// WithResolverCacheSize sets how many host lookups are cached. Zero disables caching.
func WithResolverCacheSize(n int) Option {
	return func(o *netOptions) { o.resolverCacheSize = n }
}

// New creates a Net transport.
func New(opts ...Option) *Net {
	o := netOptions{
		dialTimeout:       defaultDialTimeout,
		resolverCacheSize: defaultResolverCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Net{
		resolver:    newResolver(o.resolverCacheSize, o.dialTimeout),
		dialTimeout: o.dialTimeout,
	}
}

// Connect opens a connection to host:port. For UDP this binds an ephemeral
// local port and makes host:port the default destination.
func (t *Net) Connect(host string, port uint16, protocol Protocol, version IPVersion) (Handle, error) {
	if protocol == UDP {
		return t.BindUDP("", 0, host, port, version)
	}
	if host == "" {
		return nil, newError(ErrorCodeInvalidArgument, "connect: host is required")
	}

	ip, err := t.resolver.resolve(host, version)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.Dial(network(TCP, version), net.JoinHostPort(ip.String(), strconv.Itoa(int(port))))
	if err != nil {
		return nil, wrapError("connect", err)
	}

	if version == IPAny {
		version = versionOf(ip)
	}
	return newConnHandle(conn.(*net.TCPConn), version, t.resolver), nil
}

// Listen binds host:port and starts listening. An empty host binds the
// wildcard address. A positive backlog overrides the system default.
func (t *Net) Listen(host string, port uint16, version IPVersion, backlog int) (Handle, error) {
	ip, err := t.resolver.resolve(host, version)
	if err != nil {
		return nil, err
	}

	ln, err := net.ListenTCP(network(TCP, version), &net.TCPAddr{IP: ip, Port: int(port)})
	if err != nil {
		return nil, wrapError("listen", err)
	}
	if backlog > 0 {
		if err := setBacklog(ln, backlog); err != nil {
			ln.Close()
			return nil, wrapError("listen", err)
		}
	}

	return &netHandle{
		protocol: TCP,
		version:  version,
		role:     RoleServer,
		blocking: true,
		listener: ln,
		local:    ln.Addr(),
		backlog:  backlog,
		resolver: t.resolver,
	}, nil
}

// BindUDP binds a datagram socket. When both remote values are set the
// socket is connected to them: Send goes there and only that peer's
// datagrams are received.
func (t *Net) BindUDP(localHost string, localPort uint16, remoteHost string, remotePort uint16, version IPVersion) (Handle, error) {
	var remote *net.UDPAddr
	if remoteHost != "" && remotePort != 0 {
		ip, err := t.resolver.resolve(remoteHost, version)
		if err != nil {
			return nil, err
		}
		remote = &net.UDPAddr{IP: ip, Port: int(remotePort)}
		if version == IPAny {
			version = versionOf(ip)
		}
	}

	ip, err := t.resolver.resolve(localHost, version)
	if err != nil {
		return nil, err
	}

	laddr := &net.UDPAddr{IP: ip, Port: int(localPort)}
	var conn *net.UDPConn
	if remote != nil {
		// Connected: the kernel drops datagrams from any other peer.
		conn, err = net.DialUDP(network(UDP, version), laddr, remote)
	} else {
		conn, err = net.ListenUDP(network(UDP, version), laddr)
	}
	if err != nil {
		return nil, wrapError("bind", err)
	}

	role := RoleServer
	if remote != nil {
		role = RoleClient
	}
	return &netHandle{
		protocol: UDP,
		version:  version,
		role:     role,
		blocking: true,
		udp:      conn,
		local:    conn.LocalAddr(),
		remote:   remote,
		resolver: t.resolver,
	}, nil
}

func newConnHandle(conn *net.TCPConn, version IPVersion, r *resolver) *netHandle {
	return &netHandle{
		protocol: TCP,
		version:  version,
		role:     RoleClient,
		blocking: true,
		tcp:      conn,
		local:    conn.LocalAddr(),
		peer:     conn.RemoteAddr(),
		resolver: r,
	}
}
