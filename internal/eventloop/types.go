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

// Package eventloop implements the single-threaded, epoll-based readiness
// multiplexer described for the daemon's main loop: a fixed priority order
// over seven event sources, processed to completion at each class before the
// next class is considered.
package eventloop

// Handlers wires the loop's seven priority classes to caller-supplied logic.
// The loop itself only owns epoll registration and priority bucketing; all
// domain behaviour (cache updates, probe sends, stats snapshotting, ...)
// lives behind these functions.
type Handlers struct {
	// Signal is called when the signalfd is readable. Returning stop=true
	// ends Run immediately; no lower-priority handler runs for that wakeup.
	Signal func() (stop bool, err error)

	// Timer is called when the timerfd has expired at least once.
	Timer func() error

	// NetlinkRX is called when the kernel-subscription adapter's eventfd is
	// readable. The handler is expected to fully drain the adapter's queued
	// commands before returning, per the "drain to FIFO, then dispatch the
	// entire FIFO" rule.
	NetlinkRX func() error

	// Capture is called when the packet-capture ring's fd is readable.
	Capture func() error

	// SendTX is invoked once per wakeup, unconditionally, win or lose on
	// epoll readiness: it is the "one kernel subscription TX send" class,
	// which the original daemon runs every iteration rather than gating it
	// on a distinct fd becoming ready.
	SendTX func() error

	// AcceptStats is called when the stats server's listening socket is
	// readable. It should accept exactly one connection and return its fd;
	// the loop registers that fd as the (single) stats client source. ok=false
	// means no connection was ready to accept after all (e.g. already raced
	// away), and the loop takes no further action this wakeup.
	AcceptStats func() (fd int, ok bool, err error)

	// ServeStats is called when the current stats client fd is writable or
	// has hung up. done=true tells the loop to deregister and forget the
	// client fd; the handler is responsible for closing it.
	ServeStats func() (done bool, err error)
}
