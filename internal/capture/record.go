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

// Package capture reads fixed-layout ARP/NA records from the ring buffer
// populated by an in-kernel classifier attached to the monitored interface.
package capture

import (
	"net"
	"net/netip"

	"golang.org/x/sys/unix"
)

// recordSize is the on-wire layout: in_family(1) + pad(1) + vlan_id(2) +
// network_id(4) + MAC[6] + IP[16], aligned to 32 bytes by the producer.
const recordSize = 32

// rawRecord mirrors the wire layout byte-for-byte so binary.Read needs no
// per-field handling.
type rawRecord struct {
	InFamily  uint8
	_         uint8
	VLANID    uint16
	NetworkID uint32
	MAC       [6]byte
	IP        [16]byte
	_         [2]byte
}

// Record is the decoded form handed to the pipeline.
type Record struct {
	InFamily  int
	VLANID    uint16
	NetworkID uint32
	MAC       net.HardwareAddr
	IP        netip.Addr
}

func decode(raw rawRecord) (Record, error) {
	var ip netip.Addr
	var ok bool
	switch raw.InFamily {
	case unix.AF_INET:
		ip, ok = netip.AddrFromSlice(raw.IP[12:16])
	case unix.AF_INET6:
		ip, ok = netip.AddrFromSlice(raw.IP[:])
	default:
		return Record{}, errUnknownFamily
	}
	if !ok {
		return Record{}, errMalformedRecord
	}

	mac := make(net.HardwareAddr, 6)
	copy(mac, raw.MAC[:])

	return Record{
		InFamily:  int(raw.InFamily),
		VLANID:    raw.VLANID,
		NetworkID: raw.NetworkID,
		MAC:       mac,
		IP:        ip,
	}, nil
}
