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

// Package statsexporter serves a single-shot cache snapshot to whatever
// connects to a fixed-path Unix stream socket: accept, dump a snapshot into
// an anonymous memory-backed file, stream it out with non-blocking
// sendfile(2) calls, then close (spec §4.8).
package statsexporter

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Server owns the listening Unix socket. Its fd is extracted for direct
// registration with the event loop's epoll set; accepts happen via a raw
// accept4(2) call rather than through net.Listener.Accept, so the single
// event loop goroutine never blocks on it.
type Server struct {
	path string
	ln   *net.UnixListener
	file *os.File
	fd   int
}

// NewServer binds path, removing any stale socket file left behind by a
// prior unclean exit.
func NewServer(path string) (*Server, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	file, err := ln.File()
	if err != nil {
		ln.Close()
		return nil, err
	}
	// File.Fd returns the descriptor in blocking mode; Accept relies on
	// accept4 failing with EAGAIN when nothing is pending.
	fd := int(file.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		file.Close()
		ln.Close()
		return nil, err
	}
	return &Server{path: path, ln: ln, file: file, fd: fd}, nil
}

// FD is the listening socket's fd, for eventloop.New's statsServerFD.
func (s *Server) FD() int { return s.fd }

// Accept accepts at most one pending connection, non-blocking. ok=false with
// a nil error means nothing was actually pending (a spurious wakeup, or
// another accept already claimed it).
func (s *Server) Accept() (fd int, ok bool, err error) {
	fd, _, err = unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, false, nil
		}
		return 0, false, err
	}
	return fd, true, nil
}

// Close releases the listening socket and removes the socket file.
func (s *Server) Close() error {
	s.file.Close()
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}
