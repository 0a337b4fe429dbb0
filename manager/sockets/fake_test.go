package sockets

import (
	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

type read struct {
	data []byte
	host string
	port uint16
	err  error
}

// fakeHandle replays scripted reads and records what the session asked for.
type fakeHandle struct {
	protocol transport.Protocol
	role     transport.Role
	blocking bool

	available   int
	sizeErr     error
	reads       []read
	blockingErr error
	closeErr    error

	sizeCalls  int
	readCalls  int
	readSizes  []int
	sent       [][]byte
	closeCalls int
}

func newFake(protocol transport.Protocol, role transport.Role) *fakeHandle {
	return &fakeHandle{protocol: protocol, role: role, blocking: true}
}

func (f *fakeHandle) Protocol() transport.Protocol   { return f.protocol }
func (f *fakeHandle) IPVersion() transport.IPVersion { return transport.IPv4 }
func (f *fakeHandle) Role() transport.Role           { return f.role }
func (f *fakeHandle) LocalHost() string              { return "127.0.0.1" }
func (f *fakeHandle) LocalPort() uint16              { return 4000 }
func (f *fakeHandle) RemoteHost() string             { return "127.0.0.1" }
func (f *fakeHandle) RemotePort() uint16             { return 5000 }
func (f *fakeHandle) Blocking() bool                 { return f.blocking }
func (f *fakeHandle) ListenBacklog() int             { return 0 }

func (f *fakeHandle) SetBlocking(b bool) error {
	if f.blockingErr != nil {
		return f.blockingErr
	}
	f.blocking = b
	return nil
}

func (f *fakeHandle) NextReadSize() (int, error) {
	f.sizeCalls++
	return f.available, f.sizeErr
}

func (f *fakeHandle) next(p []byte) (int, read) {
	f.readCalls++
	f.readSizes = append(f.readSizes, len(p))
	if len(f.reads) == 0 {
		return 0, read{}
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	return copy(p, r.data), r
}

func (f *fakeHandle) Read(p []byte) (int, error) {
	n, r := f.next(p)
	return n, r.err
}

func (f *fakeHandle) ReadFrom(p []byte) (int, string, uint16, error) {
	n, r := f.next(p)
	return n, r.host, r.port, r.err
}

func (f *fakeHandle) Send(p []byte) (int, error) {
	f.sent = append(f.sent, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeHandle) SendTo(p []byte, host string, port uint16) (int, error) {
	return f.Send(p)
}

func (f *fakeHandle) Accept() (transport.Handle, error) { return nil, nil }

func (f *fakeHandle) Close() error {
	f.closeCalls++
	return f.closeErr
}
