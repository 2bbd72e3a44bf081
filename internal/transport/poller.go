//go:build linux

package transport

import (
	"os"

	"golang.org/x/sys/unix"
)

// Poller waits for a single socket to become readable.
type Poller struct {
	epfd   int
	events [1]unix.EpollEvent
}

func NewPoller(s *Socket) (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(s.fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, s.fd, &ev); err != nil {
		unix.Close(epfd)
		return nil, os.NewSyscallError("epoll_ctl", err)
	}
	return &Poller{epfd: epfd}, nil
}

// Wait blocks until the socket is readable or hung up. There is no
// timeout.
func (p *Poller) Wait() error {
	for {
		n, err := unix.EpollWait(p.epfd, p.events[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("epoll_wait", err)
		}
		if n > 0 {
			return nil
		}
	}
}

func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
