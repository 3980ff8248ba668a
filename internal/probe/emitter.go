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

package probe

import (
	log "github.com/sirupsen/logrus"

	"github.com/joolli/neighsnoopd/internal/cache"
)

// Emitter sends gratuitous ARP/NDP probes for neighbors whose
// sending_link_network is known, over a raw L2 socket bound per SVI
// ifindex (spec §4.5).
type Emitter struct {
	sockets map[int]*socket
}

// NewEmitter builds an empty Emitter; sockets are opened lazily per ifindex.
func NewEmitter() *Emitter {
	return &Emitter{sockets: map[int]*socket{}}
}

// Probe builds and sends the appropriate frame for neigh. Failures are
// logged and non-fatal, per spec §4.5.
func (e *Emitter) Probe(neigh *cache.Neighbor) {
	ln := neigh.SendingLinkNetwork
	if ln == nil {
		log.WithField("neigh_id", neigh.ID).Debug("No sending LinkNetwork for neighbor; skipping probe.")
		return
	}

	sock, err := e.socketFor(ln.Link.Ifindex)
	if err != nil {
		log.WithError(err).WithField("ifindex", ln.Link.Ifindex).Warn("Could not open probe socket.")
		return
	}

	senderMAC := ln.Link.MAC
	senderIP := ln.IP.AsSlice()
	targetIP := neigh.IP.AsSlice()

	var frame []byte
	if neigh.IP.Is4() {
		frame, err = buildARPRequest(senderMAC, senderIP, targetIP)
	} else {
		frame, err = buildNeighborSolicitation(senderMAC, senderIP, targetIP)
	}
	if err != nil {
		log.WithError(err).WithField("ip", neigh.IP).Warn("Could not build probe frame.")
		return
	}

	if err := sock.send(frame); err != nil {
		log.WithError(err).WithField("ip", neigh.IP).Warn("Could not send probe frame.")
	}
}

func (e *Emitter) socketFor(ifindex int) (*socket, error) {
	if s, ok := e.sockets[ifindex]; ok {
		return s, nil
	}
	s, err := newSocket(ifindex)
	if err != nil {
		return nil, err
	}
	e.sockets[ifindex] = s
	return s, nil
}

// Close releases every socket opened so far.
func (e *Emitter) Close() {
	for ifindex, s := range e.sockets {
		_ = s.Close()
		delete(e.sockets, ifindex)
	}
}
