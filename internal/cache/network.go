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
	"fmt"
	"net/netip"
)

// AddNetwork requires the Link named by cmd.Ifindex to already exist. It
// assigns the next network id, inserts into both network indices,
// constructs the initial LinkNetwork, inserts it into both link-network
// indices, and writes the kernel prefix-table entry. Any failure reverses
// every partial effect performed so far (spec §9's scoped acquire-release
// pattern, adapted from the teacher's iptables-restore undo stack).
func (c *Cache) AddNetwork(cmd AddrCmd) (*Network, error) {
	var undo []func()
	defer func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()

	link := c.GetLink(cmd.Ifindex)
	if link == nil {
		return nil, fmt.Errorf("%w: ifindex %d", ErrUnknownLink, cmd.Ifindex)
	}

	if existing, ok := c.networkByAddress[cmd.Network]; ok {
		return nil, fmt.Errorf("%w: %s already owned by network id %d",
			ErrDuplicateNetworkAddress, cmd.Network, existing.ID)
	}

	now := c.now()
	network := &Network{
		ID:            c.nextNetworkID,
		Address:       cmd.Network,
		PrefixLen:     cmd.PrefixLen,
		TruePrefixLen: cmd.TruePrefixLen,
		String:        fmt.Sprintf("%s/%d", cmd.Network, cmd.PrefixLen),
	}
	network.Times = Timestamps{Created: now, Referenced: now}

	c.nextNetworkID++
	c.networkByID[network.ID] = network
	undo = append(undo, func() { delete(c.networkByID, network.ID) })

	c.networkByAddress[network.Address] = network
	undo = append(undo, func() { delete(c.networkByAddress, network.Address) })

	linkNetwork := &LinkNetwork{Link: link, Network: network, IP: cmd.IP}
	c.insertLinkNetwork(linkNetwork)
	undo = append(undo, func() { c.delLinkNetwork(linkNetwork) })

	if err := c.prefixTable.Put(network.PrefixLen, network.Address, network.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrefixTable, err)
	}

	undo = nil // commit: nothing left to reverse
	return network, nil
}

// GetNetworkByID returns the cached Network for id, bumping its reference
// bookkeeping on a hit.
func (c *Cache) GetNetworkByID(id uint32) *Network {
	network, ok := c.networkByID[id]
	if !ok {
		return nil
	}
	network.Times.Referenced = c.now()
	network.ReferenceCount++
	return network
}

// GetNetworkByAddress looks up a Network by its address alone, independent
// of ifindex. network_by_address is keyed by address only across all SVIs
// (spec §4.1). The address-del path (DelNetwork) does not use it; it
// searches the Link's own link-network list instead.
func (c *Cache) GetNetworkByAddress(addr netip.Addr) *Network {
	return c.networkByAddress[addr]
}

// DelNetwork locates the Network via the Link's link-network list matching
// (network, prefixlen), cascades delete of every incident LinkNetwork,
// removes both Network indices, and deletes the kernel prefix-table entry.
// Absence is not an error.
func (c *Cache) DelNetwork(cmd AddrCmd) bool {
	link := c.GetLink(cmd.Ifindex)
	if link == nil {
		return false
	}

	var network *Network
	for _, ln := range link.networks {
		if ln.Network.Address == cmd.Network && ln.Network.PrefixLen == cmd.PrefixLen {
			network = ln.Network
			break
		}
	}
	if network == nil {
		return false
	}

	delete(c.networkByID, network.ID)
	delete(c.networkByAddress, network.Address)

	for _, ln := range append([]*LinkNetwork(nil), network.linkNetworks...) {
		c.delLinkNetwork(ln)
	}

	if err := c.prefixTable.Delete(network.PrefixLen, network.Address); err != nil {
		// Non-fatal: the cache is already consistent; the BPF map is
		// left stale until the next full resync. The error is discarded
		// and not logged.
		_ = err
	}
	return true
}
