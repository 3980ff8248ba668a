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

// Package kernelsub adapts the kernel's link/address/neighbor/FDB broadcast
// into a typed command stream and owns the outbound neighbor-install queue.
package kernelsub

import (
	"net"
	"net/netip"

	"github.com/joolli/neighsnoopd/internal/cache"
)

// Command is the typed union produced by the adapter. The event loop
// dispatches on it with an exhaustive type switch; a new variant must be
// added to that switch or the default arm panics, by design (no command
// kind is silently ignored).
type Command interface{ isCommand() }

// LinkAdd carries a new or updated link observed via RTM_NEWLINK.
type LinkAdd struct{ Cmd cache.LinkCmd }

// LinkDel carries a link removal observed via RTM_DELLINK.
type LinkDel struct{ Ifindex int }

// AddrAdd carries a new address observed via RTM_NEWADDR.
type AddrAdd struct{ Cmd cache.AddrCmd }

// AddrDel carries an address removal observed via RTM_DELADDR.
type AddrDel struct{ Cmd cache.AddrCmd }

// NeighAdd carries a new or updated neighbor-table entry observed via
// RTM_NEWNEIGH.
type NeighAdd struct{ Cmd cache.NeighCmd }

// NeighDel carries a neighbor-table removal observed via RTM_DELNEIGH.
type NeighDel struct{ Cmd cache.NeighCmd }

// FDBAdd carries a bridge forwarding-database entry observed on the same
// RTM_NEWNEIGH stream, distinguished by AF_BRIDGE family.
type FDBAdd struct{ Cmd cache.NeighCmd }

// FDBDel carries a bridge forwarding-database removal.
type FDBDel struct{ Cmd cache.NeighCmd }

func (LinkAdd) isCommand()  {}
func (LinkDel) isCommand()  {}
func (AddrAdd) isCommand()  {}
func (AddrDel) isCommand()  {}
func (NeighAdd) isCommand() {}
func (NeighDel) isCommand() {}
func (FDBAdd) isCommand()   {}
func (FDBDel) isCommand()   {}

// NeighborInstall is the outbound request the pipeline enqueues to persuade
// the kernel to create or refresh a neighbor-table entry; the kernel's own
// echo-back notification is what actually updates the cache (spec §4.4).
type NeighborInstall struct {
	Ifindex int
	IP      netip.Addr
	MAC     net.HardwareAddr
}
