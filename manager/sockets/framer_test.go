package sockets

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

func TestReceiveFramesAcrossChunks(t *testing.T) {
	mgr := NewManager(transport.New())
	port := freeTCPPort(t)

	server, err := mgr.Listen("127.0.0.1", port, transport.IPv4, 0)
	require.NoError(t, err)
	defer server.Disconnect()

	client, err := mgr.Connect("127.0.0.1", port, transport.IPv4)
	require.NoError(t, err)
	defer client.Disconnect()

	peer, err := server.Accept()
	require.NoError(t, err)
	defer peer.Disconnect()

	// Exactly ChunkSize bytes would block a blocking read waiting for more.
	require.NoError(t, peer.SetBlocking(false))

	for _, size := range []int{ChunkSize, ChunkSize - 1, 2*ChunkSize + 10, ChunkSize} {
		msg := bytes.Repeat([]byte{byte(size)}, size)
		require.NoError(t, client.Send(msg))

		waitFor(t, func() bool {
			n, err := peer.NextReadSize()
			require.NoError(t, err)
			return n == size
		})

		got, err := peer.Receive()
		require.NoError(t, err)
		require.Equal(t, msg, got, "size %d", size)
	}

	got, err := peer.Receive()
	require.NoError(t, err)
	require.Nil(t, got, "nothing buffered")
}

func TestReceiveLoopTermination(t *testing.T) {
	cases := []struct {
		name   string
		chunks []int
		reads  int
	}{
		{name: "short", chunks: []int{10}, reads: 1},
		{name: "exact", chunks: []int{ChunkSize, 0}, reads: 2},
		{name: "multi", chunks: []int{ChunkSize, ChunkSize, 10}, reads: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFake(transport.TCP, transport.RoleClient)
			var want []byte
			for i, n := range tc.chunks {
				chunk := bytes.Repeat([]byte{byte('a' + i)}, n)
				want = append(want, chunk...)
				fake.reads = append(fake.reads, read{data: chunk})
			}

			got, err := NewManager(nil).Wrap(fake).Receive()
			require.NoError(t, err)
			require.Equal(t, string(want), string(got))
			require.Equal(t, tc.reads, fake.readCalls)
		})
	}
}

func TestReceiveZeroLengthMessage(t *testing.T) {
	fake := newFake(transport.TCP, transport.RoleClient)
	got, err := NewManager(nil).Wrap(fake).Receive()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestNonBlockingReceiveNoData(t *testing.T) {
	fake := newFake(transport.TCP, transport.RoleClient)
	s := NewManager(nil).Wrap(fake)
	require.NoError(t, s.SetBlocking(false))

	got, err := s.Receive()
	require.NoError(t, err)
	require.Nil(t, got)
	require.Zero(t, fake.readCalls)

	dg, err := s.ReceiveFrom()
	require.NoError(t, err)
	require.Nil(t, dg)
	require.Zero(t, fake.readCalls)
}

func TestNonBlockingReceiveSizeUnsupported(t *testing.T) {
	fake := newFake(transport.TCP, transport.RoleClient)
	fake.sizeErr = &transport.Error{Code: transport.ErrorCodeNotSupported, Msg: "next read size"}
	s := NewManager(nil).Wrap(fake)
	require.NoError(t, s.SetBlocking(false))

	got, err := s.Receive()
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, 1, fake.readCalls)
}

func TestReceiveErrorDiscardsPartial(t *testing.T) {
	boom := errors.New("reset")
	fake := newFake(transport.TCP, transport.RoleClient)
	fake.reads = []read{
		{data: bytes.Repeat([]byte{'x'}, ChunkSize)},
		{err: boom},
	}

	got, err := NewManager(nil).Wrap(fake).Receive()
	require.ErrorIs(t, err, boom)
	require.Nil(t, got)
}

func TestReceiveFromKeepsLastPeer(t *testing.T) {
	fake := newFake(transport.TCP, transport.RoleClient)
	fake.reads = []read{
		{data: bytes.Repeat([]byte{'a'}, ChunkSize), host: "10.0.0.1", port: 1},
		{data: []byte("bc"), host: "10.0.0.2", port: 2},
	}

	dg, err := NewManager(nil).Wrap(fake).ReceiveFrom()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.2", dg.Host)
	require.Equal(t, uint16(2), dg.Port)
	require.Len(t, dg.Data, ChunkSize+2)
}

func TestUDPReceiveReadsOneDatagram(t *testing.T) {
	fake := newFake(transport.UDP, transport.RoleServer)
	fake.reads = []read{
		{data: bytes.Repeat([]byte{'a'}, ChunkSize), host: "10.0.0.1", port: 1},
		{data: []byte("bc"), host: "10.0.0.2", port: 2},
	}
	session := NewManager(nil).Wrap(fake)

	dg, err := session.ReceiveFrom()
	require.NoError(t, err)
	require.Equal(t, &Datagram{Host: "10.0.0.1", Port: 1, Data: bytes.Repeat([]byte{'a'}, ChunkSize)}, dg)
	require.Equal(t, 1, fake.readCalls)

	got, err := session.Receive()
	require.NoError(t, err)
	require.Equal(t, "bc", string(got))
	require.Equal(t, 2, fake.readCalls)
}

func TestUDPLongDatagramStaysWithItsPeer(t *testing.T) {
	mgr := NewManager(transport.New())
	serverPort := freeUDPPort(t)

	server, err := mgr.BindUDP("127.0.0.1", serverPort, "", 0, transport.IPv4)
	require.NoError(t, err)
	defer server.Disconnect()

	peerA, err := mgr.BindUDP("127.0.0.1", freeUDPPort(t), "", 0, transport.IPv4)
	require.NoError(t, err)
	defer peerA.Disconnect()
	peerB, err := mgr.BindUDP("127.0.0.1", freeUDPPort(t), "", 0, transport.IPv4)
	require.NoError(t, err)
	defer peerB.Disconnect()

	require.NoError(t, peerA.SendTo("127.0.0.1", serverPort, bytes.Repeat([]byte{'a'}, 300)))
	require.NoError(t, peerB.SendTo("127.0.0.1", serverPort, []byte("tail")))

	first, err := server.ReceiveFrom()
	require.NoError(t, err)
	require.Equal(t, peerA.PortFrom(), first.Port)
	require.Equal(t, bytes.Repeat([]byte{'a'}, ChunkSize), first.Data)

	second, err := server.ReceiveFrom()
	require.NoError(t, err)
	require.Equal(t, peerB.PortFrom(), second.Port)
	require.Equal(t, "tail", string(second.Data))
}

func TestReceiveFromPeerWithoutData(t *testing.T) {
	fake := newFake(transport.UDP, transport.RoleServer)
	fake.reads = []read{{host: "10.0.0.1", port: 9}}

	dg, err := NewManager(nil).Wrap(fake).ReceiveFrom()
	require.NoError(t, err)
	require.NotNil(t, dg)
	require.Empty(t, dg.Data)
	require.Equal(t, uint16(9), dg.Port)
}

func TestUDPReceiveFromScenario(t *testing.T) {
	metrics := NewMetrics("test")
	mgr := NewManager(transport.New(), WithMetrics(metrics))
	serverPort, peerPort := freeUDPPort(t), freeUDPPort(t)

	server, err := mgr.BindUDP("127.0.0.1", serverPort, "", 0, transport.IPv4)
	require.NoError(t, err)
	defer server.Disconnect()
	require.False(t, server.HasRemote())

	peer, err := mgr.BindUDP("127.0.0.1", peerPort, "", 0, transport.IPv4)
	require.NoError(t, err)
	defer peer.Disconnect()

	require.NoError(t, peer.SendTo("127.0.0.1", serverPort, []byte("hello")))

	dg, err := server.ReceiveFrom()
	require.NoError(t, err)
	require.Equal(t, &Datagram{Host: "127.0.0.1", Port: peerPort, Data: []byte("hello")}, dg)

	require.Equal(t, float64(5), counterValue(t, metrics.sent.WithLabelValues("UDP")))
	require.Equal(t, float64(5), counterValue(t, metrics.received.WithLabelValues("UDP")))
}

func TestUDPPreConnectedSend(t *testing.T) {
	mgr := NewManager(transport.New())
	serverPort := freeUDPPort(t)

	server, err := mgr.BindUDP("127.0.0.1", serverPort, "", 0, transport.IPv4)
	require.NoError(t, err)
	defer server.Disconnect()

	client, err := mgr.BindUDP("", 0, "127.0.0.1", serverPort, transport.IPv4)
	require.NoError(t, err)
	defer client.Disconnect()
	require.True(t, client.IsClient())
	require.Equal(t, "127.0.0.1", client.HostTo())

	require.NoError(t, client.Send([]byte("ping")))
	got, err := server.Receive()
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))
}
