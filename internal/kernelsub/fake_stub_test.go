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
	"golang.org/x/sys/unix"
)

// fakeStub is a hand-scripted netlinkStub, in the spirit of Felix's
// netlinkTest fake from ifacemonitor_test.go, but trimmed to the fixed
// dataset each test needs rather than a general-purpose simulated kernel.
type fakeStub struct {
	links          []netlink.Link
	addrsByIfindex map[int][]netlink.Addr
	fdbByIfindex   map[int][]netlink.Neigh
	neighByIfindex map[int][]netlink.Neigh

	subscribed bool
}

func (f *fakeStub) Subscribe(chan netlink.LinkUpdate, chan netlink.AddrUpdate, chan netlink.NeighUpdate) error {
	f.subscribed = true
	return nil
}

func (f *fakeStub) LinkList() ([]netlink.Link, error) { return f.links, nil }

func (f *fakeStub) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	if family != netlink.FAMILY_V4 {
		return nil, nil
	}
	return f.addrsByIfindex[link.Attrs().Index], nil
}

func (f *fakeStub) NeighList(ifindex, family int) ([]netlink.Neigh, error) {
	if family == unix.AF_BRIDGE {
		return f.fdbByIfindex[ifindex], nil
	}
	return f.neighByIfindex[ifindex], nil
}

func dummyLink(ifindex int, name string) netlink.Link {
	return &netlink.Dummy{
		LinkAttrs: netlink.LinkAttrs{
			Index: ifindex,
			Name:  name,
		},
	}
}

func mustMAC(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}
