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
	"golang.org/x/sys/unix"
)

// netlinkStub is the seam between the adapter and the real kernel, modeled
// on Felix's ifacemonitor.netlinkStub split so the adapter can be driven
// from a fake in tests exactly the way ifacemonitor_test.go drives its
// netlinkTest stub.
type netlinkStub interface {
	Subscribe(linkUpdates chan netlink.LinkUpdate, addrUpdates chan netlink.AddrUpdate, neighUpdates chan netlink.NeighUpdate) error
	LinkList() ([]netlink.Link, error)
	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
	NeighList(ifindex, family int) ([]netlink.Neigh, error)
}

type netlinkReal struct{}

func (netlinkReal) Subscribe(linkUpdates chan netlink.LinkUpdate, addrUpdates chan netlink.AddrUpdate, neighUpdates chan netlink.NeighUpdate) error {
	if err := netlink.LinkSubscribe(linkUpdates, nil); err != nil {
		return err
	}
	if err := netlink.AddrSubscribe(addrUpdates, nil); err != nil {
		return err
	}
	if err := netlink.NeighSubscribe(neighUpdates, nil); err != nil {
		return err
	}
	return nil
}

func (netlinkReal) LinkList() ([]netlink.Link, error) { return netlink.LinkList() }

func (netlinkReal) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return netlink.AddrList(link, family)
}

// NeighList lists both routed-neighbor and bridge-FDB entries for ifindex;
// callers distinguish the two by the returned Neigh's Family.
func (netlinkReal) NeighList(ifindex, family int) ([]netlink.Neigh, error) {
	if family == unix.AF_BRIDGE {
		return netlink.NeighList(ifindex, unix.AF_BRIDGE)
	}
	return netlink.NeighList(ifindex, family)
}
