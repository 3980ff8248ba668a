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

package pipeline_test

import (
	"net"
	"net/netip"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/joolli/neighsnoopd/internal/cache"
	"github.com/joolli/neighsnoopd/internal/capture"
	"github.com/joolli/neighsnoopd/internal/kernelsub"
	"github.com/joolli/neighsnoopd/internal/pipeline"
	"github.com/joolli/neighsnoopd/internal/timerwheel"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Pipeline", func() {
	var (
		c       *cache.Cache
		tx      *kernelsub.TXQueue
		wheel   *timerwheel.Wheel
		p       *pipeline.Pipeline
		link    *cache.Link
		network *cache.Network
	)

	const monIfidx = 10

	BeforeEach(func() {
		c = cache.New(nil)
		tx = kernelsub.NewTXQueue()
		wheel = timerwheel.New()
		p = pipeline.New(c, tx, wheel)
		p.BaseReachableTime = func(string, int) (int, error) { return 30000, nil }

		link = c.AddLink(cache.LinkCmd{Ifindex: monIfidx, Name: "br0.10", ParentIfindex: monIfidx}, monIfidx)
		var err error
		network, err = c.AddNetwork(cache.AddrCmd{
			Ifindex:   monIfidx,
			IP:        netip.MustParseAddr("10.0.0.1"),
			Network:   netip.MustParseAddr("10.0.0.0"),
			PrefixLen: 24,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	record := func(vlanID uint16, ip netip.Addr, m net.HardwareAddr) capture.Record {
		return capture.Record{InFamily: 2, VLANID: vlanID, NetworkID: network.ID, MAC: m, IP: ip}
	}

	It("drops a record with no matching LinkNetwork without enqueuing anything", func() {
		p.Process(capture.Record{InFamily: 2, VLANID: 999, NetworkID: 999, MAC: mac("aa:bb:cc:dd:ee:01"), IP: netip.MustParseAddr("10.0.0.5")})
		_, ok := tx.PopOne()
		Expect(ok).To(BeFalse())
	})

	It("drops a record whose MAC is present in the bridge FDB", func() {
		m := mac("aa:bb:cc:dd:ee:02")
		_, err := c.AddFDB(cache.NeighCmd{Ifindex: monIfidx, MAC: m, VLANID: link.VLANID})
		Expect(err).NotTo(HaveOccurred())

		p.Process(record(link.VLANID, netip.MustParseAddr("10.0.0.6"), m))
		_, ok := tx.PopOne()
		Expect(ok).To(BeFalse())
	})

	It("reschedules an existing neighbor's timer and enqueues an install", func() {
		m := mac("aa:bb:cc:dd:ee:03")
		ip := netip.MustParseAddr("10.0.0.7")
		linkNetwork := c.GetLinkNetworkByVLANNetwork(network.ID, link.VLANID)
		neigh := c.AddNeigh(linkNetwork, cache.NeighCmd{Ifindex: monIfidx, IP: ip, MAC: m, NUD: cache.StateReachable})

		p.Process(record(link.VLANID, ip, m))

		Expect(neigh.TimerEpoch).NotTo(Equal(uint64(0)))

		install, ok := tx.PopOne()
		Expect(ok).To(BeTrue())
		Expect(install.Ifindex).To(Equal(monIfidx))
		Expect(install.IP).To(Equal(ip))
	})

	It("enqueues an install even when there is no cached neighbor yet", func() {
		m := mac("aa:bb:cc:dd:ee:04")
		ip := netip.MustParseAddr("10.0.0.8")

		p.Process(record(link.VLANID, ip, m))

		install, ok := tx.PopOne()
		Expect(ok).To(BeTrue())
		Expect(install.MAC.String()).To(Equal(m.String()))
	})

	It("still enqueues an install for a link flagged ignore_link", func() {
		link.IgnoreLink = true
		m := mac("aa:bb:cc:dd:ee:05")
		ip := netip.MustParseAddr("10.0.0.9")

		p.Process(record(link.VLANID, ip, m))

		_, ok := tx.PopOne()
		Expect(ok).To(BeTrue())
	})
})
