package transport

// Protocol is the transport protocol of a handle.
type Protocol uint8

const (
	TCP Protocol = iota
	UDP
)

func (p Protocol) String() string {
	if p == UDP {
		return "UDP"
	}
	return "TCP"
}

// IPVersion is the address family a handle was created for.
type IPVersion uint8

const (
	IPv4 IPVersion = iota
	IPv6
	IPAny
)

func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return "Any"
	}
}

// ParseIPVersion parses "IPv4", "IPv6" or "Any".
func ParseIPVersion(s string) (IPVersion, bool) {
	switch s {
	case "IPv4":
		return IPv4, true
	case "IPv6":
		return IPv6, true
	case "Any":
		return IPAny, true
	default:
		return IPv4, false
	}
}

// Role tells whether a handle is directed at a peer or waiting for peers.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Handle is one exclusively owned transport binding.
//
// Read, ReadFrom and Accept honour the blocking flag: in non-blocking mode
// they return zero values instead of waiting.
type Handle interface {
	Protocol() Protocol
	IPVersion() IPVersion
	Role() Role

	LocalHost() string
	LocalPort() uint16
	RemoteHost() string
	RemotePort() uint16

	Blocking() bool
	SetBlocking(blocking bool) error

	// NextReadSize returns the number of bytes readable without blocking.
	NextReadSize() (int, error)

	Read(p []byte) (int, error)
	ReadFrom(p []byte) (n int, host string, port uint16, err error)
	Send(p []byte) (int, error)
	SendTo(p []byte, host string, port uint16) (int, error)

	// Accept returns a newly accepted connection, or nil when none is pending
	// on a non-blocking listener.
	Accept() (Handle, error)

	// ListenBacklog returns the backlog requested for a listener.
	ListenBacklog() int

	Close() error
}

// Transport creates handles.
type Transport interface {
	Connect(host string, port uint16, protocol Protocol, version IPVersion) (Handle, error)
	Listen(host string, port uint16, version IPVersion, backlog int) (Handle, error)
	BindUDP(localHost string, localPort uint16, remoteHost string, remotePort uint16, version IPVersion) (Handle, error)
}
