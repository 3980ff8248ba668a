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

	"github.com/mdlayher/arp"
	"github.com/mdlayher/ethernet"
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
var zeroMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// buildARPRequest builds an Ethernet frame carrying an ARP REQUEST, sender
// hardware/IP taken from the SVI link and its LinkNetwork IP, target
// hardware zeroed, target IP the neighbor's IP (spec §4.5).
func buildARPRequest(senderMAC net.HardwareAddr, senderIP net.IP, targetIP net.IP) ([]byte, error) {
	packet, err := arp.NewPacket(arp.OperationRequest, senderMAC, senderIP, zeroMAC, targetIP)
	if err != nil {
		return nil, err
	}
	payload, err := packet.MarshalBinary()
	if err != nil {
		return nil, err
	}

	frame := &ethernet.Frame{
		DestinationMAC: broadcastMAC,
		SourceMAC:      senderMAC,
		EtherType:      ethernet.EtherTypeARP,
		Payload:        payload,
	}
	return frame.MarshalBinary()
}
