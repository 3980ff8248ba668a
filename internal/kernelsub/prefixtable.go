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
	"net/netip"

	"github.com/cilium/ebpf"
)

// prefixKey mirrors the in-kernel prefix table's key layout exactly: a
// host-endian prefix length followed by the big-endian network address
// (spec §6), padded out to 16 bytes so the same key type covers both
// address families.
type prefixKey struct {
	PrefixLen uint32
	Network   [16]byte
}

// BPFPrefixTable is a cache.PrefixTableWriter backed by a real BPF map, kept
// in lockstep with Network add/remove (spec invariant 4). Loading and
// attaching the classifier program that reads this map is out of scope
// (spec §1); this type only opens the map object once some other process
// has pinned it under bpffs.
type BPFPrefixTable struct {
	m *ebpf.Map
}

// OpenBPFPrefixTable loads the prefix table map from its pinned path.
func OpenBPFPrefixTable(pinPath string) (*BPFPrefixTable, error) {
	m, err := ebpf.LoadPinnedMap(pinPath, nil)
	if err != nil {
		return nil, err
	}
	return &BPFPrefixTable{m: m}, nil
}

func (t *BPFPrefixTable) Put(prefixLen uint8, addr netip.Addr, id uint32) error {
	key := prefixKey{PrefixLen: uint32(prefixLen)}
	copy(key.Network[:], addr.AsSlice())
	return t.m.Put(&key, &id)
}

func (t *BPFPrefixTable) Delete(prefixLen uint8, addr netip.Addr) error {
	key := prefixKey{PrefixLen: uint32(prefixLen)}
	copy(key.Network[:], addr.AsSlice())
	return t.m.Delete(&key)
}

// Close releases the map's fd. It does not unpin it; ownership of the
// pinned path stays with whatever process created it.
func (t *BPFPrefixTable) Close() error {
	return t.m.Close()
}
