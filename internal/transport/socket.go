//go:build linux

// Package transport provides the non-blocking unix stream socket and the
// epoll readiness poller the client runs its event loop on.
package transport

import (
	"errors"
	"fmt"
	"io"
	"os"

	"code.hybscloud.com/iox"
	"golang.org/x/sys/unix"
)

var ErrClosed = errors.New("transport: socket closed")

// Socket is a non-blocking unix stream socket. Read returns
// iox.ErrWouldBlock when no data is available and io.EOF when the peer
// has closed.
type Socket struct {
	fd int
}

// Dial connects to the unix socket at path.
func Dial(path string) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setnonblock", err)
	}
	return &Socket{fd: fd}, nil
}

// Pair returns two connected sockets.
func Pair() (*Socket, *Socket, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, os.NewSyscallError("socketpair", err)
	}
	return &Socket{fd: fds[0]}, &Socket{fd: fds[1]}, nil
}

func (s *Socket) Fd() int { return s.fd }

func (s *Socket) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, iox.ErrWouldBlock
		case err != nil:
			return 0, os.NewSyscallError("read", err)
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes all of p, waiting for the socket to drain when the
// kernel buffer is full.
func (s *Socket) Write(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(s.fd, p[written:])
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			if err := s.waitWritable(); err != nil {
				return written, err
			}
			continue
		case err != nil:
			return written, os.NewSyscallError("write", err)
		}
		written += n
	}
	return written, nil
}

func (s *Socket) waitWritable() error {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP) != 0 {
			return ErrClosed
		}
		return nil
	}
}

func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
