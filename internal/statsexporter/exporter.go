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

package statsexporter

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// SnapshotFunc produces the bytes to hand the next connecting client. It is
// called once per accept, never in between.
type SnapshotFunc func() ([]byte, error)

// Exporter tracks the listening server plus, at most, one in-flight client;
// spec §4.8 is explicit that a single memory-backed file/client pair is
// owned by the client-serving state at a time. Its Accept/Serve methods are
// shaped to plug directly into eventloop.Handlers.AcceptStats/ServeStats.
type Exporter struct {
	srv      *Server
	client   *Client
	snapshot SnapshotFunc
}

// NewExporter binds the stats socket at path.
func NewExporter(path string, snapshot SnapshotFunc) (*Exporter, error) {
	srv, err := NewServer(path)
	if err != nil {
		return nil, err
	}
	return &Exporter{srv: srv, snapshot: snapshot}, nil
}

// ListenerFD is the fd to register as the event loop's statsServerFD.
func (e *Exporter) ListenerFD() int { return e.srv.FD() }

// Accept implements eventloop.Handlers.AcceptStats: accept the pending
// connection, snapshot the cache into a memfd, and start tracking it as the
// current client.
func (e *Exporter) Accept() (fd int, ok bool, err error) {
	fd, ok, err = e.srv.Accept()
	if err != nil || !ok {
		return 0, false, err
	}
	data, err := e.snapshot()
	if err != nil {
		log.WithError(err).Warn("Could not build stats snapshot; dropping client.")
		unix.Close(fd)
		return 0, false, nil
	}
	client, err := NewClient(fd, data)
	if err != nil {
		log.WithError(err).Warn("Could not create stats memfd; dropping client.")
		return 0, false, nil
	}
	e.client = client
	return fd, true, nil
}

// Serve implements eventloop.Handlers.ServeStats: push one more chunk to the
// current client, closing it out once the snapshot is fully delivered.
func (e *Exporter) Serve() (done bool, err error) {
	if e.client == nil {
		return true, nil
	}
	done, err = e.client.WriteChunk()
	if err != nil {
		log.WithError(err).Warn("Stats client write failed; closing.")
		e.client.Close()
		e.client = nil
		return true, nil
	}
	if done {
		e.client.Close()
		e.client = nil
	}
	return done, nil
}

// Close tears down any in-flight client and the listening socket.
func (e *Exporter) Close() error {
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	return e.srv.Close()
}
