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

import "net/netip"

// insertLinkNetwork wires a freshly constructed LinkNetwork into both
// indices and both owning entities' back-reference lists, and bumps the
// Network's refcount (invariant: refcount equals the number of incident
// LinkNetworks).
func (c *Cache) insertLinkNetwork(ln *LinkNetwork) {
	vnKey := vlanNetworkKey{NetworkID: ln.Network.ID, VLANID: ln.Link.VLANID}
	niKey := netIfindexKey{NetworkAddr: ln.Network.Address, Ifindex: ln.Link.Ifindex}

	c.linkNetworkByVLANNetwork[vnKey] = ln
	c.linkNetworkByNetIfindex[niKey] = ln

	ln.Network.linkNetworks = append(ln.Network.linkNetworks, ln)
	ln.Network.RefCount++
	ln.Link.networks = append(ln.Link.networks, ln)
}

// delLinkNetwork removes a LinkNetwork from both indices and both
// back-reference lists, decrementing the Network's refcount.
func (c *Cache) delLinkNetwork(ln *LinkNetwork) {
	vnKey := vlanNetworkKey{NetworkID: ln.Network.ID, VLANID: ln.Link.VLANID}
	niKey := netIfindexKey{NetworkAddr: ln.Network.Address, Ifindex: ln.Link.Ifindex}

	delete(c.linkNetworkByVLANNetwork, vnKey)
	delete(c.linkNetworkByNetIfindex, niKey)

	ln.Network.linkNetworks = removeLinkNetwork(ln.Network.linkNetworks, ln)
	ln.Network.RefCount--
	ln.Link.networks = removeLinkNetwork(ln.Link.networks, ln)
}

func removeLinkNetwork(list []*LinkNetwork, target *LinkNetwork) []*LinkNetwork {
	for i, ln := range list {
		if ln == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// GetLinkNetworkByVLANNetwork is the reply-pipeline correlation path:
// (network_id, vlan_id) -> LinkNetwork. Cheap integer keys, produced by the
// packet-capture records.
func (c *Cache) GetLinkNetworkByVLANNetwork(networkID uint32, vlanID uint16) *LinkNetwork {
	return c.linkNetworkByVLANNetwork[vlanNetworkKey{NetworkID: networkID, VLANID: vlanID}]
}

// GetLinkNetworkByNetIfindex resolves (network address, ifindex) ->
// LinkNetwork. AddNetwork does not consult it; a repeated address-add is
// rejected by AddNetwork's network_by_address check instead.
func (c *Cache) GetLinkNetworkByNetIfindex(networkAddr netip.Addr, ifindex int) *LinkNetwork {
	return c.linkNetworkByNetIfindex[netIfindexKey{NetworkAddr: networkAddr, Ifindex: ifindex}]
}

// GetLinkNetworkByAddr finds, among a Link's own LinkNetworks, the one
// whose Network contains ip under that network's prefix length. This is
// the subscription-side correlation used by neigh-add handling (as opposed
// to the packet-capture side's (network_id, vlan_id) lookup).
func (c *Cache) GetLinkNetworkByAddr(link *Link, ip netip.Addr) *LinkNetwork {
	for _, ln := range link.networks {
		prefix, err := ln.Network.Address.Prefix(int(ln.Network.PrefixLen))
		if err != nil {
			continue
		}
		if prefix.Contains(ip) {
			return ln
		}
	}
	return nil
}
