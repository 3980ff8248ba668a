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

import "fmt"

// AddFDB requires the Link named by cmd.Ifindex to already exist and
// inserts a new (MAC, ifindex, vlan) suppression entry.
func (c *Cache) AddFDB(cmd NeighCmd) (*FDBEntry, error) {
	link := c.GetLink(cmd.Ifindex)
	if link == nil {
		return nil, fmt.Errorf("%w: ifindex %d", ErrUnknownLink, cmd.Ifindex)
	}

	now := c.now()
	entry := &FDBEntry{
		MAC:     macKey(cmd.MAC),
		Ifindex: cmd.Ifindex,
		VLANID:  cmd.VLANID,
		Link:    link,
	}
	entry.Times = Timestamps{Created: now, Referenced: now}

	key := fdbKey{MAC: entry.MAC, Ifindex: entry.Ifindex, VLANID: entry.VLANID}
	c.fdbByMACIfindexVLAN[key] = entry
	link.fdb = append(link.fdb, entry)
	return entry, nil
}

// GetFDB looks up a suppression entry by its triple key, bumping its
// reference bookkeeping on a hit.
func (c *Cache) GetFDB(cmd NeighCmd) *FDBEntry {
	key := fdbKey{MAC: macKey(cmd.MAC), Ifindex: cmd.Ifindex, VLANID: cmd.VLANID}
	entry, ok := c.fdbByMACIfindexVLAN[key]
	if !ok {
		return nil
	}
	entry.Times.Referenced = c.now()
	entry.ReferenceCount++
	return entry
}

// DelFDB removes a suppression entry by its triple key. Absence is not an
// error.
func (c *Cache) DelFDB(cmd NeighCmd) bool {
	key := fdbKey{MAC: macKey(cmd.MAC), Ifindex: cmd.Ifindex, VLANID: cmd.VLANID}
	entry, ok := c.fdbByMACIfindexVLAN[key]
	if !ok {
		return false
	}
	delete(c.fdbByMACIfindexVLAN, key)
	if link := c.linkByIfindex[entry.Ifindex]; link != nil {
		for i, f := range link.fdb {
			if f == entry {
				link.fdb = append(link.fdb[:i], link.fdb[i+1:]...)
				break
			}
		}
	}
	return true
}
