//go:build unix

package transport

import (
	"errors"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// The runtime keeps every socket in O_NONBLOCK mode, so a raw syscall issued
// from Control never parks the calling goroutine. These helpers back the
// non-blocking mode of a handle.

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func nextReadSize(c syscall.Conn) (int, error) {
	rawConn, err := c.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var ioErr error
	err = rawConn.Control(func(fd uintptr) {
		n, ioErr = unix.IoctlGetInt(int(fd), ioctlReadSize)
	})
	if err != nil {
		return 0, err
	}
	return n, ioErr
}

func readNow(c net.Conn, p []byte) (int, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return 0, errors.New("connection does not expose a file descriptor")
	}
	rawConn, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var readErr error
	err = rawConn.Control(func(fd uintptr) {
		n, readErr = unix.Read(int(fd), p)
	})
	if err != nil {
		return 0, err
	}
	if wouldBlock(readErr) {
		return 0, nil
	}
	if n < 0 {
		n = 0
	}
	return n, readErr
}

func recvFromNow(c *net.UDPConn, p []byte) (int, net.Addr, error) {
	rawConn, err := c.SyscallConn()
	if err != nil {
		return 0, nil, err
	}

	var n int
	var from unix.Sockaddr
	var recvErr error
	err = rawConn.Control(func(fd uintptr) {
		n, from, recvErr = unix.Recvfrom(int(fd), p, 0)
	})
	if err != nil {
		return 0, nil, err
	}
	if wouldBlock(recvErr) {
		return 0, nil, nil
	}
	if recvErr != nil {
		return 0, nil, recvErr
	}

	switch sa := from.(type) {
	case *unix.SockaddrInet4:
		return n, &net.UDPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}, nil
	case *unix.SockaddrInet6:
		return n, &net.UDPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}, nil
	default:
		return n, nil, nil
	}
}

func acceptNow(ln *net.TCPListener) (*net.TCPConn, error) {
	rawConn, err := ln.SyscallConn()
	if err != nil {
		return nil, err
	}

	nfd := -1
	var acceptErr error
	err = rawConn.Control(func(fd uintptr) {
		nfd, _, acceptErr = unix.Accept(int(fd))
	})
	if err != nil {
		return nil, err
	}
	if wouldBlock(acceptErr) || errors.Is(acceptErr, unix.ECONNABORTED) {
		return nil, nil
	}
	if acceptErr != nil {
		return nil, acceptErr
	}
	unix.CloseOnExec(nfd)

	// FileConn duplicates the descriptor, so nfd is closed with f.
	f := os.NewFile(uintptr(nfd), "accepted")
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, errors.New("accepted connection is not TCP")
	}
	return tc, nil
}

func setBacklog(ln *net.TCPListener, backlog int) error {
	rawConn, err := ln.SyscallConn()
	if err != nil {
		return err
	}
	var listenErr error
	err = rawConn.Control(func(fd uintptr) {
		listenErr = unix.Listen(int(fd), backlog)
	})
	if err != nil {
		return err
	}
	return listenErr
}
