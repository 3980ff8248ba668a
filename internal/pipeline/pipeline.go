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

// Package pipeline correlates packet-capture records against the topology
// cache and decides whether to schedule a probe and/or push a neighbor
// install to the kernel.
package pipeline

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/joolli/neighsnoopd/internal/cache"
	"github.com/joolli/neighsnoopd/internal/capture"
	"github.com/joolli/neighsnoopd/internal/kernelsub"
	"github.com/joolli/neighsnoopd/internal/timerwheel"
)

// BaseReachableTimeFunc resolves the kernel's per-interface neighbor tunable
// for a given link name and address family; normally
// timerwheel.ReadBaseReachableTimeMS, overridden in tests.
type BaseReachableTimeFunc func(ifname string, family int) (int, error)

// Pipeline wires the cache, the outbound TX queue and the timer wheel
// together to implement spec §4.4's four-step algorithm.
type Pipeline struct {
	Cache             *cache.Cache
	TX                *kernelsub.TXQueue
	Wheel             *timerwheel.Wheel
	BaseReachableTime BaseReachableTimeFunc
}

// New builds a Pipeline with the production base-reachable-time source.
func New(c *cache.Cache, tx *kernelsub.TXQueue, wheel *timerwheel.Wheel) *Pipeline {
	return &Pipeline{
		Cache:             c,
		TX:                tx,
		Wheel:             wheel,
		BaseReachableTime: timerwheel.ReadBaseReachableTimeMS,
	}
}

// Process runs one capture record through the four-step algorithm in spec
// §4.4: correlate LinkNetwork, drop on FDB hit, reschedule an existing
// neighbor's probe timer, and unconditionally enqueue a kernel neighbor
// install. ignore_link (spec §9's second Open Question) deliberately has no
// effect here; it is only set, with a once-per-name diagnostic, on the
// link-add path in internal/app via internal/config, never consulted for
// the install enqueue.
func (p *Pipeline) Process(rec capture.Record) {
	ln := p.Cache.GetLinkNetworkByVLANNetwork(rec.NetworkID, rec.VLANID)
	if ln == nil {
		log.WithFields(log.Fields{
			"network_id": rec.NetworkID,
			"vlan_id":    rec.VLANID,
		}).Debug("No LinkNetwork for capture record; dropping.")
		return
	}

	ifindex := ln.Link.Ifindex
	fdb := p.Cache.GetFDB(cache.NeighCmd{Ifindex: ifindex, MAC: rec.MAC, VLANID: rec.VLANID})
	if fdb != nil {
		log.WithFields(log.Fields{
			"ifindex": ifindex,
			"mac":     rec.MAC,
		}).Debug("MAC is in the bridge FDB; externally learned, dropping.")
		return
	}

	if neigh := p.Cache.GetNeigh(ifindex, rec.IP); neigh != nil {
		p.Wheel.Cancel(neigh)
		family := unix.AF_INET6
		if rec.IP.Is4() {
			family = unix.AF_INET
		}
		baseMS, err := p.BaseReachableTime(ln.Link.Name, family)
		if err != nil {
			log.WithError(err).WithField("ifname", ln.Link.Name).Warn("Could not read base_reachable_time_ms; using kernel default.")
			baseMS = 30000
		}
		p.Wheel.Schedule(neigh, baseMS)
	}

	p.TX.Push(kernelsub.NeighborInstall{Ifindex: ifindex, IP: rec.IP, MAC: rec.MAC})
}
