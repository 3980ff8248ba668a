// Copyright (c) 2024 The neighsnoopd Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eventloop

import (
	"golang.org/x/sys/unix"
)

// Loop is a single epoll set over the daemon's five always-registered fds
// (signal, timer, kernel-subscription RX, capture ring, stats server) plus
// at most one dynamically registered stats client fd.
type Loop struct {
	epfd int

	signalFD      int
	timerFD       int
	netlinkRXFD   int
	captureFD     int
	statsServerFD int
	statsClientFD int // -1 when no client is connected

	h Handlers
}

// New creates the epoll set and registers the four always-on readable fds
// plus the stats server listening socket. Ownership of the fds themselves
// stays with the caller; Loop only ever adds/removes them from its epoll
// set, it never closes them.
func New(signalFD, timerFD, netlinkRXFD, captureFD, statsServerFD int, h Handlers) (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		epfd:          epfd,
		signalFD:      signalFD,
		timerFD:       timerFD,
		netlinkRXFD:   netlinkRXFD,
		captureFD:     captureFD,
		statsServerFD: statsServerFD,
		statsClientFD: -1,
		h:             h,
	}
	for _, fd := range []int{signalFD, timerFD, netlinkRXFD, captureFD, statsServerFD} {
		if err := l.add(fd, unix.EPOLLIN); err != nil {
			unix.Close(epfd)
			return nil, err
		}
	}
	return l, nil
}

func (l *Loop) add(fd int, events uint32) error {
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *Loop) del(fd int) error {
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Close releases the epoll fd itself. The registered source fds are left
// untouched; the caller closes those as part of its own teardown order.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}

// Run blocks, dispatching events in fixed priority order, until a signal
// handler requests a stop or an unrecoverable error occurs. When count is
// non-nil, it is checked at the top of every wakeup: once it has reached
// zero, the loop performs exactly one more full pass and then returns. count
// is decremented by the Capture handler (once per processed reply), not by
// Run itself; Run only observes it.
func (l *Loop) Run(count *int) error {
	lastRound := false
	events := make([]unix.EpollEvent, 8)

	for {
		if count != nil {
			if lastRound {
				return nil
			}
			if *count <= 0 {
				lastRound = true
			}
		}

		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		var signalReady, timerReady, netlinkReady, captureReady, serverReady bool
		var clientReady, clientHup bool
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch fd {
			case l.signalFD:
				signalReady = true
			case l.timerFD:
				timerReady = true
			case l.netlinkRXFD:
				netlinkReady = true
			case l.captureFD:
				captureReady = true
			case l.statsServerFD:
				serverReady = true
			default:
				if fd == l.statsClientFD {
					clientReady = true
					if events[i].Events&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
						clientHup = true
					}
				}
			}
		}

		// 1. Signals.
		if signalReady {
			stop, err := l.h.Signal()
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}

		// 2. Timer expirations.
		if timerReady {
			if err := l.h.Timer(); err != nil {
				return err
			}
		}

		// 3. Kernel subscription RX: fully drained by the handler.
		if netlinkReady {
			if err := l.h.NetlinkRX(); err != nil {
				return err
			}
		}

		// 4. Packet-capture records.
		if captureReady {
			if err := l.h.Capture(); err != nil {
				return err
			}
		}

		// 5. One kernel subscription TX send, every wakeup.
		if err := l.h.SendTX(); err != nil {
			return err
		}

		// 6. New statistics client accept.
		if serverReady && l.statsClientFD < 0 {
			fd, ok, err := l.h.AcceptStats()
			if err != nil {
				return err
			}
			if ok {
				if err := l.add(fd, unix.EPOLLOUT|unix.EPOLLRDHUP); err != nil {
					return err
				}
				l.statsClientFD = fd
			}
		}

		// 7. Statistics client writable (or hung up).
		if (clientReady || clientHup) && l.statsClientFD >= 0 {
			done, err := l.h.ServeStats()
			if err != nil {
				return err
			}
			if done {
				_ = l.del(l.statsClientFD)
				l.statsClientFD = -1
			}
		}
	}
}
