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

package cache

import (
	"bytes"
	"net/netip"
)

// AddNeigh inserts a new Neighbor, recording the LinkNetwork that should
// originate probes for it.
func (c *Cache) AddNeigh(linkNetwork *LinkNetwork, cmd NeighCmd) *Neighbor {
	now := c.now()
	neigh := &Neighbor{
		ID:                 c.nextNeighID,
		Ifindex:            cmd.Ifindex,
		IP:                 cmd.IP,
		MAC:                cmd.MAC,
		NUD:                cmd.NUD,
		SendingLinkNetwork: linkNetwork,
	}
	neigh.Times = Timestamps{Created: now, Referenced: now}
	c.nextNeighID++

	c.neighByIfindexIP[neighKey{Ifindex: cmd.Ifindex, IP: cmd.IP}] = neigh
	return neigh
}

// GetNeigh looks up a Neighbor by (ifindex, IP), bumping its reference
// bookkeeping on a hit.
func (c *Cache) GetNeigh(ifindex int, ip netip.Addr) *Neighbor {
	neigh, ok := c.neighByIfindexIP[neighKey{Ifindex: ifindex, IP: ip}]
	if !ok {
		return nil
	}
	neigh.Times.Referenced = c.now()
	neigh.ReferenceCount++
	return neigh
}

// UpdateNeigh updates the MAC silently and the NUD state (with timestamp
// and update-count bump) only when the NUD state actually changed.
func (c *Cache) UpdateNeigh(neigh *Neighbor, cmd NeighCmd) {
	if !bytes.Equal(neigh.MAC, cmd.MAC) {
		neigh.MAC = cmd.MAC
	}
	if neigh.NUD != cmd.NUD {
		neigh.NUD = cmd.NUD
		neigh.Times.Updated = c.now()
		neigh.Times.Referenced = neigh.Times.Updated
		neigh.UpdateCount++
	}
}

// DelNeigh removes a Neighbor by (ifindex, IP), clearing its timer epoch
// first so any outstanding probe-timer heap entry for it is discarded as
// stale rather than firing after the neighbor is gone.
func (c *Cache) DelNeigh(neigh *Neighbor) {
	neigh.TimerEpoch = 0
	delete(c.neighByIfindexIP, neighKey{Ifindex: neigh.Ifindex, IP: neigh.IP})
}
