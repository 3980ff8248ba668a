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
	"net/netip"
	"time"
)

// PrefixTableWriter projects the Network set into the kernel's BPF prefix
// table, keyed by (prefix_length, network_address) -> network_id. Every
// add/remove of a Network must update it atomically with the cache mutation
// (spec invariant 4).
type PrefixTableWriter interface {
	Put(prefixLen uint8, addr netip.Addr, id uint32) error
	Delete(prefixLen uint8, addr netip.Addr) error
}

// NoopPrefixTable is a PrefixTableWriter that does nothing; useful for tests
// and for any deployment that doesn't back the cache with a real BPF map.
type NoopPrefixTable struct{}

func (NoopPrefixTable) Put(uint8, netip.Addr, uint32) error { return nil }
func (NoopPrefixTable) Delete(uint8, netip.Addr) error      { return nil }

// Cache is the single-threaded topology store. It is not safe for
// concurrent use; the event loop is its sole caller.
type Cache struct {
	linkByIfindex            map[int]*Link
	networkByID              map[uint32]*Network
	networkByAddress         map[netip.Addr]*Network
	linkNetworkByVLANNetwork map[vlanNetworkKey]*LinkNetwork
	linkNetworkByNetIfindex  map[netIfindexKey]*LinkNetwork
	fdbByMACIfindexVLAN      map[fdbKey]*FDBEntry
	neighByIfindexIP         map[neighKey]*Neighbor

	nextNetworkID uint32
	nextNeighID   uint64

	prefixTable PrefixTableWriter

	now func() time.Time
}

// New builds an empty Cache. prefixTable may be NoopPrefixTable{} when no
// kernel BPF map backs the prefix-table projection (e.g. in tests).
func New(prefixTable PrefixTableWriter) *Cache {
	if prefixTable == nil {
		prefixTable = NoopPrefixTable{}
	}
	return &Cache{
		linkByIfindex:            map[int]*Link{},
		networkByID:              map[uint32]*Network{},
		networkByAddress:         map[netip.Addr]*Network{},
		linkNetworkByVLANNetwork: map[vlanNetworkKey]*LinkNetwork{},
		linkNetworkByNetIfindex:  map[netIfindexKey]*LinkNetwork{},
		fdbByMACIfindexVLAN:      map[fdbKey]*FDBEntry{},
		neighByIfindexIP:         map[neighKey]*Neighbor{},
		nextNetworkID:            1,
		nextNeighID:              1,
		prefixTable:              prefixTable,
		now:                      timeNow,
	}
}

// Teardown cascades a delete over every cached Link, snapshotting the key
// set first since cascade-delete mutates the same table being iterated
// (spec §9's cleanup_cache note).
func (c *Cache) Teardown() {
	ifindexes := make([]int, 0, len(c.linkByIfindex))
	for ifindex := range c.linkByIfindex {
		ifindexes = append(ifindexes, ifindex)
	}
	for _, ifindex := range ifindexes {
		c.DelLink(ifindex)
	}
}

// Stats is a point-in-time snapshot of entity counts, used by the
// statistics exporter.
type Stats struct {
	Links        int
	Networks     int
	LinkNetworks int
	FDBEntries   int
	Neighbors    int
}

func (c *Cache) Stats() Stats {
	return Stats{
		Links:        len(c.linkByIfindex),
		Networks:     len(c.networkByID),
		LinkNetworks: len(c.linkNetworkByVLANNetwork),
		FDBEntries:   len(c.fdbByMACIfindexVLAN),
		Neighbors:    len(c.neighByIfindexIP),
	}
}

// LinkStats is a per-link neighbor count, used by the statistics exporter to
// break the aggregate neighbor count down by interface.
type LinkStats struct {
	Ifindex   int
	Name      string
	Neighbors int
}

// LinkNeighborCounts returns one LinkStats entry per cached Link, in no
// particular order.
func (c *Cache) LinkNeighborCounts() []LinkStats {
	counts := make(map[int]int, len(c.linkByIfindex))
	for _, n := range c.neighByIfindexIP {
		counts[n.Ifindex]++
	}
	out := make([]LinkStats, 0, len(c.linkByIfindex))
	for ifindex, link := range c.linkByIfindex {
		out = append(out, LinkStats{Ifindex: ifindex, Name: link.Name, Neighbors: counts[ifindex]})
	}
	return out
}
