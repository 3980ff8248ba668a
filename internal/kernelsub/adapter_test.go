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

	"github.com/vishvananda/netlink"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Adapter", func() {
	var stub *fakeStub

	BeforeEach(func() {
		stub = &fakeStub{
			links: []netlink.Link{dummyLink(10, "br0.10")},
			addrsByIfindex: map[int][]netlink.Addr{
				10: {{IPNet: &net.IPNet{IP: net.IPv4(10, 0, 0, 1), Mask: net.CIDRMask(24, 32)}}},
			},
			fdbByIfindex: map[int][]netlink.Neigh{},
			neighByIfindex: map[int][]netlink.Neigh{
				10: {{LinkIndex: 10, IP: net.IPv4(10, 0, 0, 77), HardwareAddr: mustMAC("aa:bb:cc:dd:ee:05"), State: netlink.NUD_REACHABLE}},
			},
		}
	})

	It("dumps links, then addresses, then fdb, then neighbors, in that order", func() {
		a, err := newWithStub(stub)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Init()).To(Succeed())

		cmds := a.Drain()
		Expect(cmds).To(HaveLen(3))

		_, isLink := cmds[0].(LinkAdd)
		Expect(isLink).To(BeTrue())

		_, isAddr := cmds[1].(AddrAdd)
		Expect(isAddr).To(BeTrue())

		neighAdd, isNeigh := cmds[2].(NeighAdd)
		Expect(isNeigh).To(BeTrue())
		Expect(neighAdd.Cmd.Ifindex).To(Equal(10))
	})

	It("gates live neigh events behind the dump and flushes them once ready", func() {
		a, err := newWithStub(stub)
		Expect(err).NotTo(HaveOccurred())

		// Simulate a live event racing the initial dump: not yet ready.
		a.pushGated(NeighAdd{})
		Expect(a.pending).To(HaveLen(1))

		Expect(a.Init()).To(Succeed())

		// Init's own flush folds pending events in ahead of the neigh dump.
		cmds := a.Drain()
		foundGated := false
		for _, c := range cmds {
			if _, ok := c.(NeighAdd); ok {
				foundGated = true
			}
		}
		Expect(foundGated).To(BeTrue())
		Expect(a.pending).To(BeEmpty())
	})
})
