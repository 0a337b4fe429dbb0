//go:build !unix

package transport

import (
	"errors"
	"net"
	"os"
	"syscall"
	"time"
)

// Without FIONREAD and raw descriptors the non-blocking mode is emulated with
// a short read deadline.
const pollWindow = time.Millisecond

func nextReadSize(c syscall.Conn) (int, error) {
	return 0, newError(ErrorCodeNotSupported, "next read size is not supported on this platform")
}

func readNow(c net.Conn, p []byte) (int, error) {
	c.SetReadDeadline(time.Now().Add(pollWindow))
	defer c.SetReadDeadline(time.Time{})
	n, err := c.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func recvFromNow(c *net.UDPConn, p []byte) (int, net.Addr, error) {
	c.SetReadDeadline(time.Now().Add(pollWindow))
	defer c.SetReadDeadline(time.Time{})
	n, addr, err := c.ReadFromUDP(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return n, addr, nil
}

func acceptNow(ln *net.TCPListener) (*net.TCPConn, error) {
	ln.SetDeadline(time.Now().Add(pollWindow))
	defer ln.SetDeadline(time.Time{})
	conn, err := ln.AcceptTCP()
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, nil
	}
	return conn, err
}

func setBacklog(ln *net.TCPListener, backlog int) error {
	return nil
}
