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

package kernelsub

import (
	"encoding/binary"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Adapter consumes the kernel's link/address/neighbor broadcast and turns it
// into a FIFO of typed Commands, gated so no neighbor is dispatched before
// its link, address and FDB dependencies are known (spec §4.2). Its
// structure mirrors Felix's ifacemonitor.InterfaceMonitor: a netlinkStub
// seam, a resync-on-start dump, and a background goroutine funneling
// netlink channel traffic into the shared queue. Because the event loop
// dispatches everything from a single epoll_wait, the goroutine signals
// readiness through an eventfd rather than touching the loop directly.
type Adapter struct {
	stub netlinkStub

	mu       sync.Mutex
	fifo     []Command
	tx       *TXQueue
	eventFD  int
	hasLinks, hasNetworks, hasFDB bool
	pending  []Command // live addr/neigh/FDB events buffered until the dump gates open
}

// New builds an Adapter backed by the real kernel.
func New() (*Adapter, error) {
	return newWithStub(netlinkReal{})
}

func newWithStub(stub netlinkStub) (*Adapter, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		stub:    stub,
		tx:      NewTXQueue(),
		eventFD: fd,
	}, nil
}

// EventFD returns the file descriptor the event loop should register with
// epoll for the "kernel subscription RX" source.
func (a *Adapter) EventFD() int { return a.eventFD }

// TX returns the outbound neighbor-install queue.
func (a *Adapter) TX() *TXQueue { return a.tx }

// Init performs the synchronous dump in the fixed order links -> addresses
// -> fdb -> neighbors, pushing commands directly into the FIFO, and signals
// the eventfd once at the end so the event loop dispatches the dump on its
// first wakeup. Any live address/neigh/FDB events that arrived before the
// three dependency flags are all set are held in pending and flushed ahead
// of the neighbor dump.
func (a *Adapter) Init() error {
	links, err := a.stub.LinkList()
	if err != nil {
		return err
	}
	for _, link := range links {
		a.push(LinkAdd{Cmd: linkCmdFrom(link)})
	}
	a.hasLinks = true

	for _, link := range links {
		addrsV4, err := a.stub.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			log.WithError(err).WithField("link", link.Attrs().Name).Warn("Netlink addr list (v4) failed.")
		}
		addrsV6, err := a.stub.AddrList(link, netlink.FAMILY_V6)
		if err != nil {
			log.WithError(err).WithField("link", link.Attrs().Name).Warn("Netlink addr list (v6) failed.")
		}
		for _, addr := range append(addrsV4, addrsV6...) {
			cmd, err := addrCmdFrom(addr, link.Attrs().Index)
			if err != nil {
				log.WithError(err).Warn("Skipping unparsable address.")
				continue
			}
			a.push(AddrAdd{Cmd: cmd})
		}
	}
	a.hasNetworks = true

	for _, link := range links {
		fdbs, err := a.stub.NeighList(link.Attrs().Index, unix.AF_BRIDGE)
		if err != nil {
			log.WithError(err).WithField("link", link.Attrs().Name).Warn("Netlink FDB list failed.")
			continue
		}
		for _, n := range fdbs {
			cmd, err := neighCmdFrom(n)
			if err != nil {
				continue
			}
			a.push(FDBAdd{Cmd: cmd})
		}
	}
	a.hasFDB = true

	a.mu.Lock()
	a.fifo = append(a.fifo, a.pending...)
	a.pending = nil
	a.mu.Unlock()

	for _, link := range links {
		neighs, err := a.stub.NeighList(link.Attrs().Index, netlink.FAMILY_ALL)
		if err != nil {
			log.WithError(err).WithField("link", link.Attrs().Name).Warn("Netlink neigh list failed.")
			continue
		}
		for _, n := range neighs {
			cmd, err := neighCmdFrom(n)
			if err != nil {
				continue
			}
			a.push(NeighAdd{Cmd: cmd})
		}
	}
	a.signal()
	return nil
}

// Subscribe starts the background goroutine that forwards live netlink
// updates into the FIFO and signals the eventfd for each batch.
func (a *Adapter) Subscribe() error {
	linkUpdates := make(chan netlink.LinkUpdate, 16)
	addrUpdates := make(chan netlink.AddrUpdate, 16)
	neighUpdates := make(chan netlink.NeighUpdate, 16)
	if err := a.stub.Subscribe(linkUpdates, addrUpdates, neighUpdates); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case u, ok := <-linkUpdates:
				if !ok {
					log.Warn("Link update channel closed.")
					return
				}
				a.handleLinkUpdate(u)
			case u, ok := <-addrUpdates:
				if !ok {
					log.Warn("Address update channel closed.")
					return
				}
				a.handleAddrUpdate(u)
			case u, ok := <-neighUpdates:
				if !ok {
					log.Warn("Neighbor update channel closed.")
					return
				}
				a.handleNeighUpdate(u)
			}
			a.signal()
		}
	}()
	return nil
}

func (a *Adapter) handleLinkUpdate(u netlink.LinkUpdate) {
	if u.Header.Type == syscall.RTM_DELLINK {
		a.push(LinkDel{Ifindex: u.Link.Attrs().Index})
		return
	}
	a.push(LinkAdd{Cmd: linkCmdFrom(u.Link)})
}

func (a *Adapter) handleAddrUpdate(u netlink.AddrUpdate) {
	cmd, err := addrCmdFrom(netlink.Addr{IPNet: &u.LinkAddress}, u.LinkIndex)
	if err != nil {
		log.WithError(err).Warn("Skipping unparsable address update.")
		return
	}
	if u.NewAddr {
		a.pushGated(AddrAdd{Cmd: cmd})
		return
	}
	a.pushGated(AddrDel{Cmd: cmd})
}

func (a *Adapter) handleNeighUpdate(u netlink.NeighUpdate) {
	cmd, err := neighCmdFrom(u.Neigh)
	if err != nil {
		return
	}
	isFDB := u.Neigh.Family == unix.AF_BRIDGE
	isDel := u.Type == syscall.RTM_DELNEIGH

	var c Command
	switch {
	case isFDB && isDel:
		c = FDBDel{Cmd: cmd}
	case isFDB:
		c = FDBAdd{Cmd: cmd}
	case isDel:
		c = NeighDel{Cmd: cmd}
	default:
		c = NeighAdd{Cmd: cmd}
	}
	a.pushGated(c)
}

// pushGated defers a command until the initial dump has established links,
// networks and FDB state, matching spec §4.2's ordering guarantee.
func (a *Adapter) pushGated(c Command) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasLinks && a.hasNetworks && a.hasFDB {
		a.fifo = append(a.fifo, c)
		return
	}
	a.pending = append(a.pending, c)
}

func (a *Adapter) push(c Command) {
	a.mu.Lock()
	a.fifo = append(a.fifo, c)
	a.mu.Unlock()
}

func (a *Adapter) signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(a.eventFD, buf[:])
}

// Drain consumes the accumulated eventfd counter and returns every Command
// queued since the last Drain, clearing the FIFO.
func (a *Adapter) Drain() []Command {
	var buf [8]byte
	_, _ = unix.Read(a.eventFD, buf[:])

	a.mu.Lock()
	defer a.mu.Unlock()
	cmds := a.fifo
	a.fifo = nil
	return cmds
}
