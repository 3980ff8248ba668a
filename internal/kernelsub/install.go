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
	"github.com/vishvananda/netlink"
)

// Install pushes one NeighborInstall to the kernel as a NUD_REACHABLE
// neighbor-table entry (spec §4.4: "unconditionally enqueue a kernel
// neighbor install"). It is the one netlink mutation the daemon performs;
// every other cache change is driven by the kernel's own echo back through
// the subscription stream, never by reading this call's result directly.
func Install(req NeighborInstall) error {
	family := netlink.FAMILY_V6
	if req.IP.Is4() {
		family = netlink.FAMILY_V4
	}
	return netlink.NeighSet(&netlink.Neigh{
		LinkIndex:    req.Ifindex,
		Family:       family,
		State:        netlink.NUD_REACHABLE,
		IP:           req.IP.AsSlice(),
		HardwareAddr: req.MAC,
	})
}
