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

package cache_test

import (
	"net"
	"net/netip"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/joolli/neighsnoopd/internal/cache"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Cache", func() {
	var (
		c         *cache.Cache
		svi       *cache.Link
		monIfidx  = 10
		networkIP = netip.MustParseAddr("10.0.0.0")
		hostIP    = netip.MustParseAddr("10.0.0.1")
	)

	BeforeEach(func() {
		c = cache.New(nil)
		svi = c.AddLink(cache.LinkCmd{
			Ifindex:       monIfidx,
			Name:          "br0.10",
			MAC:           mac("aa:bb:cc:dd:ee:01"),
			ParentIfindex: monIfidx,
		}, monIfidx)
	})

	It("marks a link SVI only when its parent is the monitored interface, and only at creation", func() {
		Expect(svi.IsSVI).To(BeTrue())

		downstream := c.AddLink(cache.LinkCmd{
			Ifindex:       11,
			Name:          "eth1",
			ParentIfindex: monIfidx,
		}, 99)
		Expect(downstream.IsSVI).To(BeFalse())

		// Reparenting to the monitored interface via update must NOT
		// retroactively flip IsSVI; the original only computes it on add.
		c.UpdateLink(downstream, cache.LinkCmd{
			Ifindex:       11,
			Name:          "eth1",
			ParentIfindex: monIfidx,
		})
		Expect(downstream.IsSVI).To(BeFalse())
	})

	Describe("network refcount", func() {
		It("increments RefCount once per incident LinkNetwork and decrements on delete", func() {
			network, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(network.RefCount).To(Equal(1))

			ok := c.DelNetwork(cache.AddrCmd{Ifindex: monIfidx, Network: networkIP, PrefixLen: 24})
			Expect(ok).To(BeTrue())
			Expect(network.RefCount).To(Equal(0))
			Expect(c.GetNetworkByID(network.ID)).To(BeNil())
		})

		It("rejects a second network add with the same address on a different link", func() {
			_, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())

			other := c.AddLink(cache.LinkCmd{Ifindex: 12, Name: "br0.20", ParentIfindex: monIfidx}, monIfidx)
			_, err = c.AddNetwork(cache.AddrCmd{
				Ifindex:   other.Ifindex,
				IP:        netip.MustParseAddr("10.0.0.2"),
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).To(MatchError(cache.ErrDuplicateNetworkAddress))
		})

		It("fails with ErrUnknownLink and leaves no partial state for an unknown ifindex", func() {
			_, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   999,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).To(MatchError(cache.ErrUnknownLink))
			Expect(c.GetNetworkByAddress(networkIP)).To(BeNil())
		})
	})

	Describe("dual-index resolution", func() {
		var network *cache.Network

		BeforeEach(func() {
			var err error
			network, err = c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("resolves the same LinkNetwork via (network id, vlan id) and (network address, ifindex)", func() {
			byVLAN := c.GetLinkNetworkByVLANNetwork(network.ID, svi.VLANID)
			byAddr := c.GetLinkNetworkByNetIfindex(networkIP, monIfidx)
			Expect(byVLAN).NotTo(BeNil())
			Expect(byVLAN).To(BeIdenticalTo(byAddr))
		})

		It("resolves by containment for an address within the network's prefix", func() {
			ln := c.GetLinkNetworkByAddr(svi, netip.MustParseAddr("10.0.0.55"))
			Expect(ln).NotTo(BeNil())
			Expect(ln.Network.ID).To(Equal(network.ID))

			Expect(c.GetLinkNetworkByAddr(svi, netip.MustParseAddr("10.0.1.1"))).To(BeNil())
		})
	})

	Describe("cascade delete on link removal", func() {
		It("leaves no dangling LinkNetworks, FDB entries, Neighbors, or the ability to resolve them", func() {
			network, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.AddFDB(cache.NeighCmd{Ifindex: monIfidx, MAC: mac("aa:bb:cc:dd:ee:02"), VLANID: svi.VLANID})
			Expect(err).NotTo(HaveOccurred())

			ln := c.GetLinkNetworkByVLANNetwork(network.ID, svi.VLANID)
			neigh := c.AddNeigh(ln, cache.NeighCmd{
				Ifindex: monIfidx,
				IP:      netip.MustParseAddr("10.0.0.77"),
				MAC:     mac("aa:bb:cc:dd:ee:03"),
				NUD:     cache.StateReachable,
			})
			neigh.TimerEpoch = 1

			Expect(c.DelLink(monIfidx)).To(BeTrue())

			Expect(c.GetLink(monIfidx)).To(BeNil())
			Expect(c.GetNetworkByID(network.ID)).To(BeNil())
			Expect(c.GetNetworkByAddress(networkIP)).To(BeNil())
			Expect(c.GetLinkNetworkByVLANNetwork(network.ID, svi.VLANID)).To(BeNil())
			Expect(c.GetFDB(cache.NeighCmd{Ifindex: monIfidx, MAC: mac("aa:bb:cc:dd:ee:02"), VLANID: svi.VLANID})).To(BeNil())
			Expect(c.GetNeigh(monIfidx, neigh.IP)).To(BeNil())
			Expect(c.Stats().Neighbors).To(Equal(0))
			Expect(neigh.TimerEpoch).To(Equal(uint64(0)))
		})

		It("reports false, not an error, for deleting an already-absent link", func() {
			Expect(c.DelLink(monIfidx)).To(BeTrue())
			Expect(c.DelLink(monIfidx)).To(BeFalse())
		})
	})

	Describe("round-trip laws", func() {
		It("address-add then address-del returns the cache to its prior shape", func() {
			before := c.Stats()

			network, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(network.RefCount).To(Equal(1))

			Expect(c.DelNetwork(cache.AddrCmd{Ifindex: monIfidx, Network: networkIP, PrefixLen: 24})).To(BeTrue())

			after := c.Stats()
			Expect(after).To(Equal(before))
		})

		It("link-del then link-add is NOT a round trip: networks and FDB state do not survive", func() {
			_, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())

			statsWithNetwork := c.Stats()
			Expect(statsWithNetwork.Networks).To(Equal(1))

			Expect(c.DelLink(monIfidx)).To(BeTrue())

			readded := c.AddLink(cache.LinkCmd{
				Ifindex:       monIfidx,
				Name:          "br0.10",
				ParentIfindex: monIfidx,
			}, monIfidx)
			Expect(readded.Networks()).To(BeEmpty())

			after := c.Stats()
			Expect(after.Networks).To(Equal(0))
			Expect(after).NotTo(Equal(statsWithNetwork))
		})
	})

	Describe("neighbor lifecycle", func() {
		It("updates the NUD state with a bump, but silently overwrites a changed MAC", func() {
			network, err := c.AddNetwork(cache.AddrCmd{
				Ifindex:   monIfidx,
				IP:        hostIP,
				Network:   networkIP,
				PrefixLen: 24,
			})
			Expect(err).NotTo(HaveOccurred())
			ln := c.GetLinkNetworkByVLANNetwork(network.ID, svi.VLANID)

			neigh := c.AddNeigh(ln, cache.NeighCmd{
				Ifindex: monIfidx,
				IP:      netip.MustParseAddr("10.0.0.77"),
				MAC:     mac("aa:bb:cc:dd:ee:03"),
				NUD:     cache.StateReachable,
			})
			Expect(neigh.UpdateCount).To(Equal(uint64(0)))

			c.UpdateNeigh(neigh, cache.NeighCmd{
				Ifindex: monIfidx,
				IP:      neigh.IP,
				MAC:     mac("aa:bb:cc:dd:ee:04"),
				NUD:     cache.StateStale,
			})
			Expect(neigh.MAC.String()).To(Equal("aa:bb:cc:dd:ee:04"))
			Expect(neigh.NUD).To(Equal(cache.StateStale))
			Expect(neigh.UpdateCount).To(Equal(uint64(1)))

			c.DelNeigh(neigh)
			Expect(c.GetNeigh(monIfidx, neigh.IP)).To(BeNil())
		})
	})
})
