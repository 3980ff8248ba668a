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
	"net"
	"testing"

	"github.com/vishvananda/netlink"
)

func TestNeighCmdFromUnmapsIPv4MappedAddress(t *testing.T) {
	n := netlink.Neigh{
		LinkIndex:    10,
		IP:           net.ParseIP("::ffff:10.0.0.7"),
		HardwareAddr: mustMAC("00:11:22:33:44:55"),
		State:        netlink.NUD_REACHABLE,
	}

	cmd, err := neighCmdFrom(n)
	if err != nil {
		t.Fatalf("neighCmdFrom: %v", err)
	}
	if !cmd.IP.Is4() {
		t.Errorf("IP = %v, want an IPv4-mapped IPv6 address to unmap to a plain v4 address", cmd.IP)
	}
	if cmd.IP.String() != "10.0.0.7" {
		t.Errorf("IP = %v, want 10.0.0.7", cmd.IP)
	}
}
