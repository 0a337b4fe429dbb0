package sockets

import (
	"github.com/valyala/bytebufferpool"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// ChunkSize is the size of each transport read while framing a message. A
// read shorter than ChunkSize ends the message. On UDP sessions every read
// consumes one datagram, so a message is always a single read and longer
// datagrams are truncated to ChunkSize.
const ChunkSize = 255

// Datagram is a message together with the peer it came from.
type Datagram struct {
	Host string
	Port uint16
	Data []byte
}

func (d *Datagram) empty() bool {
	return d.Host == "" && d.Port == 0 && len(d.Data) == 0
}

// ready reports whether a receive should enter the read loop. For blocking
// sessions it always does. emptyIsNone is set when the transport cannot tell
// how much is buffered, so an empty result has to stand for "no data".
func (s *Session) ready() (ok bool, emptyIsNone bool, err error) {
	if s.blocking {
		return true, false, nil
	}
	n, err := s.handle.NextReadSize()
	switch {
	case isNotSupported(err):
		return true, true, nil
	case err != nil:
		return false, false, err
	default:
		return n >= 1, false, nil
	}
}

// Receive reads one message. It returns nil when a non-blocking session has
// nothing buffered, and a non-nil empty slice for a zero-length message.
// On a read error the partial message is discarded.
func (s *Session) Receive() ([]byte, error) {
	if s.destroyed {
		return nil, ErrDestroyed
	}
	ok, emptyIsNone, err := s.ready()
	if err != nil || !ok {
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var chunk [ChunkSize]byte
	for {
		n, err := s.handle.Read(chunk[:])
		if err != nil {
			return nil, err
		}
		buf.Write(chunk[:n])
		if n < ChunkSize || s.protocol == transport.UDP {
			break
		}
	}

	if emptyIsNone && buf.Len() == 0 {
		return nil, nil
	}
	data := make([]byte, buf.Len())
	copy(data, buf.B)
	s.metrics.bytesReceived(s.protocol, len(data))
	return data, nil
}

// ReceiveFrom reads one message and records the peer of every chunk. It
// returns nil when neither a peer nor any data was seen. A UDP datagram is
// never merged with the one after it.
func (s *Session) ReceiveFrom() (*Datagram, error) {
	if s.destroyed {
		return nil, ErrDestroyed
	}
	ok, _, err := s.ready()
	if err != nil || !ok {
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	dg := &Datagram{}
	var chunk [ChunkSize]byte
	for {
		n, host, port, err := s.handle.ReadFrom(chunk[:])
		if err != nil {
			return nil, err
		}
		if host != "" || port != 0 {
			dg.Host, dg.Port = host, port
		}
		buf.Write(chunk[:n])
		if n < ChunkSize || s.protocol == transport.UDP {
			break
		}
	}

	dg.Data = make([]byte, buf.Len())
	copy(dg.Data, buf.B)
	if dg.empty() {
		return nil, nil
	}
	s.metrics.bytesReceived(s.protocol, len(dg.Data))
	return dg, nil
}

// Send hands data to the transport in a single call.
func (s *Session) Send(data []byte) error {
	if s.destroyed {
		return ErrDestroyed
	}
	n, err := s.handle.Send(data)
	s.metrics.bytesSent(s.protocol, n)
	return err
}

// SendTo sends data to host:port in a single call.
func (s *Session) SendTo(host string, port uint16, data []byte) error {
	if s.destroyed {
		return ErrDestroyed
	}
	n, err := s.handle.SendTo(data, host, port)
	s.metrics.bytesSent(s.protocol, n)
	return err
}
