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

package probe

import (
	"net"

	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/ndp"
)

// solicitedNodeMulticastMAC derives the destination MAC for the
// solicited-node multicast address matching targetIP, per RFC 4861 §7.2.3.
func solicitedNodeMulticastMAC(targetIP net.IP) net.HardwareAddr {
	ip16 := targetIP.To16()
	return net.HardwareAddr{0x33, 0x33, 0xff, ip16[13], ip16[14], ip16[15]}
}

// solicitedNodeMulticastIP derives the IPv6 solicited-node multicast address
// for targetIP.
func solicitedNodeMulticastIP(targetIP net.IP) net.IP {
	ip16 := targetIP.To16()
	dst := net.ParseIP("ff02::1:ff00:0")
	copy(dst[13:], ip16[13:])
	return dst
}

// buildNeighborSolicitation builds an Ethernet frame carrying an ICMPv6
// Neighbor Solicitation with the Source Link-Layer Address option, hop
// limit 255, checksum computed over the IPv6 pseudo-header per spec §4.5
// and §6. The pseudo-header/checksum math is delegated to
// ndp.MarshalMessageChecksum rather than hand-rolled.
func buildNeighborSolicitation(senderMAC net.HardwareAddr, senderIP net.IP, targetIP net.IP) ([]byte, error) {
	msg := &ndp.NeighborSolicitation{
		TargetAddress: targetIP,
		Options: []ndp.Option{
			&ndp.LinkLayerAddress{
				Direction: ndp.Source,
				Addr:      senderMAC,
			},
		},
	}

	dstIP := solicitedNodeMulticastIP(targetIP)
	icmpPayload, err := ndp.MarshalMessageChecksum(msg, senderIP, dstIP)
	if err != nil {
		return nil, err
	}

	ipv6Header := buildIPv6Header(senderIP, dstIP, 255, len(icmpPayload))
	payload := append(ipv6Header, icmpPayload...)

	frame := &ethernet.Frame{
		DestinationMAC: solicitedNodeMulticastMAC(targetIP),
		SourceMAC:      senderMAC,
		EtherType:      ethernet.EtherTypeIPv6,
		Payload:        payload,
	}
	return frame.MarshalBinary()
}
