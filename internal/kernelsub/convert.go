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

	"github.com/vishvananda/netlink"

	"github.com/joolli/neighsnoopd/internal/cache"
)

func linkCmdFrom(link netlink.Link) cache.LinkCmd {
	attrs := link.Attrs()
	cmd := cache.LinkCmd{
		Ifindex:       attrs.Index,
		Name:          attrs.Name,
		MAC:           attrs.HardwareAddr,
		Kind:          link.Type(),
		ParentIfindex: attrs.ParentIndex,
	}
	if attrs.Slave != nil {
		cmd.SlaveKind = attrs.Slave.SlaveType()
	}
	if vlan, ok := link.(*netlink.Vlan); ok {
		cmd.HasVLAN = true
		cmd.VLANID = uint16(vlan.VlanId)
		cmd.VLANProtocol = uint16(vlan.VlanProtocol)
	}
	if _, ok := link.(*netlink.Macvlan); ok {
		cmd.IsMACVLAN = true
	}
	return cmd
}

func addrCmdFrom(addr netlink.Addr, ifindex int) (cache.AddrCmd, error) {
	prefix, err := netip.ParsePrefix(addr.IPNet.String())
	if err != nil {
		return cache.AddrCmd{}, err
	}
	masked := prefix.Masked()
	return cache.AddrCmd{
		Ifindex:       ifindex,
		IP:            prefix.Addr(),
		Network:       masked.Addr(),
		PrefixLen:     uint8(masked.Bits()),
		TruePrefixLen: uint8(masked.Bits()),
	}, nil
}

func neighCmdFrom(n netlink.Neigh) (cache.NeighCmd, error) {
	raw := n.IP.To4()
	if raw == nil {
		raw = n.IP.To16()
	}
	ip, ok := netip.AddrFromSlice(raw)
	if !ok {
		return cache.NeighCmd{}, errUnconvertibleIP
	}
	return cache.NeighCmd{
		Ifindex: n.LinkIndex,
		IP:      ip.Unmap(),
		MAC:     n.HardwareAddr,
		VLANID:  uint16(n.Vlan),
		NUD:     nudFrom(n.State),
	}, nil
}

func nudFrom(state int) cache.NUDState {
	switch state {
	case netlink.NUD_INCOMPLETE:
		return cache.StateIncomplete
	case netlink.NUD_REACHABLE:
		return cache.StateReachable
	case netlink.NUD_STALE:
		return cache.StateStale
	case netlink.NUD_DELAY:
		return cache.StateDelay
	case netlink.NUD_PROBE:
		return cache.StateProbe
	case netlink.NUD_FAILED:
		return cache.StateFailed
	default:
		return cache.StateNone
	}
}
