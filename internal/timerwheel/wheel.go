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

package timerwheel

import (
	"container/heap"
	"math/rand/v2"
	"time"

	"github.com/joolli/neighsnoopd/internal/cache"
)

// Wheel is a single-neighbor-timer min-heap. It is not safe for concurrent
// use; the event loop is its sole caller.
type Wheel struct {
	h         entryHeap
	nextEpoch uint64
	now       func() time.Time
	jitterMS  func(n int) int
}

// New builds an empty Wheel.
func New() *Wheel {
	return &Wheel{
		now:      time.Now,
		jitterMS: rand.IntN,
	}
}

// Schedule arms a single probe deadline for neigh at
// base_reachable_time_ms/4 + U(0, 2000ms) from now, per spec §4.6. Any
// previously scheduled deadline for neigh is implicitly superseded: its
// epoch no longer matches, so it will be discarded as stale when it is
// eventually popped.
func (w *Wheel) Schedule(neigh *cache.Neighbor, baseReachableTimeMS int) {
	w.nextEpoch++
	epoch := w.nextEpoch
	neigh.TimerEpoch = epoch

	jitter := time.Duration(w.jitterMS(2001)) * time.Millisecond
	base := time.Duration(baseReachableTimeMS/4) * time.Millisecond
	deadline := w.now().Add(base + jitter)

	heap.Push(&w.h, &entry{deadline: deadline, neigh: neigh, epoch: epoch})
}

// Cancel clears neigh's back-pointer so any outstanding heap entry for it is
// discarded as stale at pop time, without touching the heap itself (spec
// §4.6's "cancelling clears the back-pointer").
func (w *Wheel) Cancel(neigh *cache.Neighbor) {
	neigh.TimerEpoch = 0
}

// Len reports the number of entries still in the heap, including stale ones
// not yet lazily discarded. Used by the statistics exporter as a rough depth
// gauge, not an exact count of live timers.
func (w *Wheel) Len() int { return len(w.h) }

// NextDeadline reports the earliest still-pending deadline, for arming the
// event loop's timerfd. It does not discard stale entries; Process does
// that lazily as it pops them.
func (w *Wheel) NextDeadline() (time.Time, bool) {
	if len(w.h) == 0 {
		return time.Time{}, false
	}
	return w.h[0].deadline, true
}

// Process fires every expired, still-live neighbor's deadline through fire,
// clearing its timer handle without re-arming (the subsequent kernel
// neigh-update re-arms via the pipeline, per spec §4.6). Deadlines whose
// neighbor has since been deleted or rescheduled are dropped silently.
func (w *Wheel) Process(fire func(*cache.Neighbor)) {
	now := w.now()
	for len(w.h) > 0 && !w.h[0].deadline.After(now) {
		e := heap.Pop(&w.h).(*entry)
		if e.epoch != e.neigh.TimerEpoch {
			continue
		}
		e.neigh.TimerEpoch = 0
		fire(e.neigh)
	}
}
