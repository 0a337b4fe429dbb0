package netlink

import (
	"github.com/OpenListTeam/wazero-netlink/argparse"
)

type methodFunc func(h *Host, s *Socket, raw []any) (any, error)

// methods holds every method of every flavor. Membership in a flavor is
// decided by methodSets.
var methods = map[string]methodFunc{
	"isBlocking":  query(func(s *Socket) any { return s.session.IsBlocking() }),
	"isDestroyed": query(func(s *Socket) any { return s.session.IsDestroyed() }),
	"isIPv4":      query(func(s *Socket) any { return s.session.IsIPv4() }),
	"isIPv6":      query(func(s *Socket) any { return s.session.IsIPv6() }),
	"isTCP":       query(func(s *Socket) any { return s.session.IsTCP() }),
	"isUDP":       query(func(s *Socket) any { return s.session.IsUDP() }),
	"isClient":    query(func(s *Socket) any { return s.session.IsClient() }),
	"isServer":    query(func(s *Socket) any { return s.session.IsServer() }),
	"getPortFrom": query(func(s *Socket) any { return s.session.PortFrom() }),
	"getHostFrom": query(func(s *Socket) any { return s.session.HostFrom() }),
	"getHostTo": query(func(s *Socket) any {
		if !s.session.HasRemote() {
			return nil
		}
		return s.session.HostTo()
	}),
	"getPortTo": query(func(s *Socket) any {
		if !s.session.HasRemote() {
			return nil
		}
		return s.session.PortTo()
	}),
	"getListenQueue": query(func(s *Socket) any { return s.session.ListenBacklog() }),

	"setBlocking":     setBlocking,
	"disconnect":      disconnect,
	"getNextReadSize": nextReadSize,
	"accept":          accept,
	"receive":         receive,
	"receiveFrom":     receiveFrom,
	"send":            send,
	"sendTo":          sendTo,
}

// query wraps a getter of cached session state. Getters keep working after
// the session is destroyed.
func query(get func(s *Socket) any) methodFunc {
	return func(_ *Host, s *Socket, _ []any) (any, error) {
		return get(s), nil
	}
}

func setBlocking(_ *Host, s *Socket, raw []any) (any, error) {
	var blocking bool
	if err := argparse.New(raw).
		Required("blocking", argparse.Bool, &blocking).
		Err(); err != nil {
		return nil, err
	}
	return nil, s.session.SetBlocking(blocking)
}

func disconnect(_ *Host, s *Socket, _ []any) (any, error) {
	return nil, s.session.Disconnect()
}

func nextReadSize(_ *Host, s *Socket, _ []any) (any, error) {
	n, err := s.session.NextReadSize()
	if err != nil {
		return nil, err
	}
	return n, nil
}

// accept registers the accepted session as a new TCP client socket owned
// by the caller.
func accept(h *Host, s *Socket, _ []any) (any, error) {
	child, err := s.session.Accept()
	if err != nil || child == nil {
		return nil, err
	}
	return h.register(FlavorTCPClient, child), nil
}

func receive(_ *Host, s *Socket, _ []any) (any, error) {
	data, err := s.session.Receive()
	if err != nil || data == nil {
		return nil, err
	}
	return data, nil
}

func receiveFrom(_ *Host, s *Socket, _ []any) (any, error) {
	dg, err := s.session.ReceiveFrom()
	if err != nil || dg == nil {
		return nil, err
	}
	return map[string]any{
		"host": dg.Host,
		"port": dg.Port,
		"data": dg.Data,
	}, nil
}

func send(_ *Host, s *Socket, raw []any) (any, error) {
	var data []byte
	if err := argparse.New(raw).
		Required("data", argparse.Bytes, &data, argparse.SendableData).
		Err(); err != nil {
		return nil, err
	}
	return nil, s.session.Send(data)
}

func sendTo(_ *Host, s *Socket, raw []any) (any, error) {
	var (
		host string
		port uint16
		data []byte
	)
	if err := argparse.New(raw).
		Required("host", argparse.Bytes, &host).
		Required("port", argparse.Uint16, &port).
		Required("data", argparse.Bytes, &data, argparse.SendableData).
		Err(); err != nil {
		return nil, err
	}
	return nil, s.session.SendTo(host, port, data)
}
