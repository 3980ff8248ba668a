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

// Package app wires the cache, kernel subscription, timer wheel, probe
// emitter, packet-capture reader and statistics exporter into the single
// epoll-driven event loop, mirroring the ordered setup/cleanup sequence of
// the daemon's original main().
package app

import (
	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/joolli/neighsnoopd/internal/cache"
	"github.com/joolli/neighsnoopd/internal/capture"
	"github.com/joolli/neighsnoopd/internal/config"
	"github.com/joolli/neighsnoopd/internal/eventloop"
	"github.com/joolli/neighsnoopd/internal/kernelsub"
	"github.com/joolli/neighsnoopd/internal/pipeline"
	"github.com/joolli/neighsnoopd/internal/probe"
	"github.com/joolli/neighsnoopd/internal/statsexporter"
	"github.com/joolli/neighsnoopd/internal/timerwheel"
)

// Context owns every long-lived resource the daemon holds for the duration
// of one run, plus the event loop tying them together. Fields are populated
// in the order Setup acquires them so Teardown can release them in reverse,
// matching the original main()'s cleanup0..cleanup8 label chain.
type Context struct {
	cfg *config.Config

	cache    *cache.Cache
	prefixes *kernelsub.BPFPrefixTable // nil unless a pin path is configured

	adapter  *kernelsub.Adapter
	wheel    *timerwheel.Wheel
	emitter  *probe.Emitter
	pipeline *pipeline.Pipeline
	exporter *statsexporter.Exporter

	captureFile *capture.Reader

	signalFD int
	timerFD  int

	// monitorIfindex is the monitored link's ifindex, resolved once at
	// startup (spec §6's <IFNAME_MON> positional). SVI detection keys off
	// this fixed value, not a live by-name lookup, per spec §4.1.
	monitorIfindex int

	loop *eventloop.Loop
}

// Setup acquires every resource in turn, tearing down whatever was already
// opened if a later step fails (the Go equivalent of the original's
// forward-falling goto chain).
func Setup(cfg *config.Config, ringPath, bpfPinPath string) (ctx *Context, err error) {
	ctx = &Context{cfg: cfg, signalFD: -1, timerFD: -1}

	var prefixTable cache.PrefixTableWriter = cache.NoopPrefixTable{}
	if bpfPinPath != "" {
		pt, err := kernelsub.OpenBPFPrefixTable(bpfPinPath)
		if err != nil {
			return nil, err
		}
		ctx.prefixes = pt
		prefixTable = pt
	}
	defer func() {
		if err != nil {
			ctx.Teardown()
		}
	}()

	ctx.cache = cache.New(prefixTable)

	monLink, err := netlink.LinkByName(cfg.IfnameMon)
	if err != nil {
		return nil, err
	}
	ctx.monitorIfindex = monLink.Attrs().Index

	ctx.adapter, err = kernelsub.New()
	if err != nil {
		return nil, err
	}
	if err = ctx.adapter.Init(); err != nil {
		return nil, err
	}
	if err = ctx.adapter.Subscribe(); err != nil {
		return nil, err
	}

	ctx.wheel = timerwheel.New()
	ctx.emitter = probe.NewEmitter()
	ctx.pipeline = pipeline.New(ctx.cache, ctx.adapter.TX(), ctx.wheel)

	family := capture.FamilyBoth
	switch {
	case cfg.OnlyIPv4:
		family = capture.FamilyV4Only
	case cfg.OnlyIPv6:
		family = capture.FamilyV6Only
	}
	ringFile, err := capture.OpenRing(ringPath)
	if err != nil {
		return nil, err
	}
	ctx.captureFile = capture.NewReader(ringFile, family)

	ctx.signalFD, err = setupSignalFD()
	if err != nil {
		return nil, err
	}
	ctx.timerFD, err = setupTimerFD()
	if err != nil {
		return nil, err
	}

	ctx.exporter, err = statsexporter.NewExporter(cfg.StatsSocketPath, ctx.snapshot)
	if err != nil {
		return nil, err
	}

	ctx.loop, err = eventloop.New(ctx.signalFD, ctx.timerFD, ctx.adapter.EventFD(), ctx.captureFile.Fd(), ctx.exporter.ListenerFD(), ctx.handlers())
	if err != nil {
		return nil, err
	}

	return ctx, nil
}

func (ctx *Context) snapshot() ([]byte, error) {
	return statsexporter.Snapshot(ctx.cache.Stats(), ctx.cache.LinkNeighborCounts(), ctx.wheel.Len())
}

// handlers builds the eventloop.Handlers closures. Probe timers are
// scheduled in NetlinkRX, for a kernel echo landing in state REACHABLE
// (spec §4.4 scenario 1), and in Capture, where the pipeline reschedules an
// already cached neighbor. NetlinkRX, Capture and Timer (after Process
// fires entries) each re-arm the timerfd to the wheel's next deadline.
func (ctx *Context) handlers() eventloop.Handlers {
	return eventloop.Handlers{
		Signal: func() (bool, error) {
			sig, ok, err := readSignal(ctx.signalFD)
			if err != nil {
				return false, err
			}
			if ok {
				log.WithField("signal", sig).Info("Received shutdown signal.")
			}
			return ok, nil
		},

		Timer: func() error {
			if err := drainTimerFD(ctx.timerFD); err != nil {
				return err
			}
			ctx.wheel.Process(ctx.emitter.Probe)
			deadline, ok := ctx.wheel.NextDeadline()
			return rearmTimer(ctx.timerFD, deadline, ok)
		},

		NetlinkRX: func() error {
			for _, cmd := range ctx.adapter.Drain() {
				if addrAdd, ok := cmd.(kernelsub.AddrAdd); ok && ctx.skipLinkLocal(addrAdd) {
					log.WithField("ip", addrAdd.Cmd.IP).Debug("IPv6 link-local address-add filtered.")
					continue
				}
				if linkAdd, ok := cmd.(kernelsub.LinkAdd); ok {
					linkAdd.Cmd.IgnoreLink = ctx.cfg.IgnoreLink(linkAdd.Cmd.Name)
					cmd = linkAdd
				}
				neigh := kernelsub.Apply(ctx.cache, ctx.monitorIfindex, cmd)
				if neigh != nil && neigh.NUD == cache.StateReachable {
					ctx.wheel.Schedule(neigh, baseReachableMSFor(neigh))
					deadline, ok := ctx.wheel.NextDeadline()
					if err := rearmTimer(ctx.timerFD, deadline, ok); err != nil {
						return err
					}
				}
			}
			return nil
		},

		Capture: func() error {
			rec, ok, err := ctx.captureFile.Read()
			if err != nil {
				if err == capture.ErrShortRead {
					return nil
				}
				return err
			}
			if !ok {
				return nil
			}
			ctx.pipeline.Process(rec)
			if ctx.cfg.Count != nil {
				*ctx.cfg.Count--
			}
			deadline, ok := ctx.wheel.NextDeadline()
			return rearmTimer(ctx.timerFD, deadline, ok)
		},

		SendTX: func() error {
			req, ok := ctx.adapter.TX().PopOne()
			if !ok {
				return nil
			}
			return ctx.installNeighbor(req)
		},

		AcceptStats: ctx.exporter.Accept,
		ServeStats:  ctx.exporter.Serve,
	}
}

// baseReachableMSFor resolves the per-interface, per-family sysctl tunable
// a newly REACHABLE neighbor's probe timer should be based on (spec §4.6),
// falling back to the kernel's own default when the sysctl can't be read
// (e.g. the link has since disappeared).
func baseReachableMSFor(neigh *cache.Neighbor) int {
	const kernelDefaultMS = 30000
	if neigh.SendingLinkNetwork == nil {
		return kernelDefaultMS
	}
	family := unix.AF_INET
	if neigh.IP.Is6() {
		family = unix.AF_INET6
	}
	if v, err := timerwheel.ReadBaseReachableTimeMS(neigh.SendingLinkNetwork.Link.Name, family); err == nil {
		return v
	}
	return kernelDefaultMS
}

// skipLinkLocal reports whether cmd should be dropped under the default
// IPv6 link-local filter (spec §8 scenario 3, disabled by -l).
func (ctx *Context) skipLinkLocal(cmd kernelsub.AddrAdd) bool {
	return !ctx.cfg.DisableLinkLocalFilter && cmd.Cmd.IP.IsLinkLocalUnicast()
}

// installNeighbor pushes req to the kernel, logging (not failing) on error
// per spec §4.4: a rejected install should not bring down the daemon.
func (ctx *Context) installNeighbor(req kernelsub.NeighborInstall) error {
	if err := kernelsub.Install(req); err != nil {
		log.WithError(err).WithField("ip", req.IP).Warn("Neighbor install failed.")
	}
	return nil
}

// Run blocks until a shutdown signal or a fatal error occurs.
func (ctx *Context) Run() error {
	return ctx.loop.Run(ctx.cfg.Count)
}

// Teardown releases the resources Setup acquired, in reverse order,
// tolerating partially-initialized contexts. The kernel subscription
// adapter (its eventfd and netlink subscriptions) is not closed here.
func (ctx *Context) Teardown() {
	if ctx.loop != nil {
		_ = ctx.loop.Close()
	}
	if ctx.exporter != nil {
		_ = ctx.exporter.Close()
	}
	if ctx.timerFD >= 0 {
		_ = unix.Close(ctx.timerFD)
	}
	if ctx.signalFD >= 0 {
		_ = unix.Close(ctx.signalFD)
	}
	if ctx.captureFile != nil {
		_ = unix.Close(ctx.captureFile.Fd())
	}
	if ctx.emitter != nil {
		ctx.emitter.Close()
	}
	if ctx.cache != nil {
		ctx.cache.Teardown()
	}
	if ctx.prefixes != nil {
		_ = ctx.prefixes.Close()
	}
}
