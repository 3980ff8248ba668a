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

// Package probe builds and emits gratuitous ARP/NDP frames that keep a
// learned neighbor from aging out of the kernel's neighbor table.
package probe

import (
	"golang.org/x/sys/unix"
)

// socket is a raw AF_PACKET/SOCK_RAW socket bound to a single SVI ifindex.
// We own frame construction; the bind/send plumbing is a thin wrapper, per
// the "OUT OF SCOPE: raw packet socket" framing carried into SPEC_FULL.md.
type socket struct {
	fd      int
	ifindex int
}

func newSocket(ifindex int) (*socket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, err
	}
	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &socket{fd: fd, ifindex: ifindex}, nil
}

func (s *socket) send(frame []byte) error {
	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  s.ifindex,
		Halen:    6,
	}
	return unix.Sendto(s.fd, frame, 0, &addr)
}

func (s *socket) Close() error { return unix.Close(s.fd) }

// htons converts a 16-bit value from host to network byte order, needed
// because SockaddrLinklayer.Protocol and ETH_P_ALL are big-endian on the
// wire but golang.org/x/sys/unix leaves the conversion to the caller.
func htons(v int) uint16 {
	return uint16(v<<8)&0xff00 | uint16(v>>8)&0x00ff
}
