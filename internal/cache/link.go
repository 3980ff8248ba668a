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

import "bytes"

// AddLink inserts a Link if absent. Monitor ifindex is the ifindex of the
// bridge/SVI parent interface given on the command line; a Link becomes SVI
// when its parent equals it.
func (c *Cache) AddLink(cmd LinkCmd, monitorIfindex int) *Link {
	now := c.now()
	link := &Link{
		Ifindex:       cmd.Ifindex,
		Name:          cmd.Name,
		MAC:           cmd.MAC,
		Kind:          cmd.Kind,
		SlaveKind:     cmd.SlaveKind,
		VLANID:        cmd.VLANID,
		VLANProtocol:  cmd.VLANProtocol,
		HasVLAN:       cmd.HasVLAN,
		IsMACVLAN:     cmd.IsMACVLAN,
		ParentIfindex: cmd.ParentIfindex,
		IsSVI:         cmd.ParentIfindex != 0 && cmd.ParentIfindex == monitorIfindex,
		IgnoreLink:    cmd.IgnoreLink,
	}
	link.Times = Timestamps{Created: now, Updated: now, Referenced: now}
	c.linkByIfindex[link.Ifindex] = link
	return link
}

// UpdateLink overwrites mutable fields on an existing Link, setting Updated
// only if at least one field differed.
func (c *Cache) UpdateLink(link *Link, cmd LinkCmd) {
	updated := false

	if link.ParentIfindex != cmd.ParentIfindex {
		link.ParentIfindex = cmd.ParentIfindex
		updated = true
	}
	if link.Name != cmd.Name {
		link.Name = cmd.Name
		updated = true
	}
	if !bytes.Equal(link.MAC, cmd.MAC) {
		link.MAC = cmd.MAC
		updated = true
	}
	if link.Kind != cmd.Kind {
		link.Kind = cmd.Kind
		updated = true
	}
	if link.SlaveKind != cmd.SlaveKind {
		link.SlaveKind = cmd.SlaveKind
		updated = true
	}
	if link.VLANProtocol != cmd.VLANProtocol {
		link.VLANProtocol = cmd.VLANProtocol
		updated = true
	}
	if link.VLANID != cmd.VLANID {
		link.VLANID = cmd.VLANID
		updated = true
	}
	if link.HasVLAN != cmd.HasVLAN {
		link.HasVLAN = cmd.HasVLAN
		updated = true
	}
	if link.IsMACVLAN != cmd.IsMACVLAN {
		link.IsMACVLAN = cmd.IsMACVLAN
		updated = true
	}
	if link.IgnoreLink != cmd.IgnoreLink {
		link.IgnoreLink = cmd.IgnoreLink
		updated = true
	}

	if updated {
		link.Times.Updated = c.now()
	}
}

// GetLink returns the cached Link for ifindex, bumping its reference count
// and Referenced timestamp on a hit.
func (c *Cache) GetLink(ifindex int) *Link {
	link, ok := c.linkByIfindex[ifindex]
	if !ok {
		return nil
	}
	link.Times.Referenced = c.now()
	link.ReferenceCount++
	return link
}

// DelLink cascades delete over every incident LinkNetwork, FDB entry and
// Neighbor (and any Network that no longer has a LinkNetwork) before
// removing the Link itself, so no entity keeps referencing
// a deleted ifindex. Deleting an unknown ifindex is not an error; it simply
// reports false.
func (c *Cache) DelLink(ifindex int) bool {
	link, ok := c.linkByIfindex[ifindex]
	if !ok {
		return false
	}

	// Snapshot before cascading: delLinkNetwork mutates link.networks.
	// A Network left with no incident LinkNetwork is removed from both
	// network indices and from the prefix table.
	networks := append([]*LinkNetwork(nil), link.networks...)
	for _, ln := range networks {
		c.delLinkNetwork(ln)
		if network := ln.Network; network.RefCount == 0 {
			delete(c.networkByID, network.ID)
			delete(c.networkByAddress, network.Address)
			_ = c.prefixTable.Delete(network.PrefixLen, network.Address)
		}
	}

	for _, fdb := range append([]*FDBEntry(nil), link.fdb...) {
		delete(c.fdbByMACIfindexVLAN, fdbKey{MAC: fdb.MAC, Ifindex: fdb.Ifindex, VLANID: fdb.VLANID})
	}

	for key, neigh := range c.neighByIfindexIP {
		if key.Ifindex != ifindex {
			continue
		}
		neigh.TimerEpoch = 0
		delete(c.neighByIfindexIP, key)
	}

	delete(c.linkByIfindex, ifindex)
	return true
}
