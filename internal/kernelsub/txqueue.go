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

import "container/list"

// TXQueue is a FIFO of pending NeighborInstall requests. PopOne returns at
// most one entry per call so the event loop's "send at most one message per
// tick" rule (spec §4.2, §4.7) is enforced here, not by the caller.
type TXQueue struct {
	l *list.List
}

// NewTXQueue builds an empty TXQueue.
func NewTXQueue() *TXQueue {
	return &TXQueue{l: list.New()}
}

// Push enqueues a neighbor-install request.
func (q *TXQueue) Push(req NeighborInstall) {
	q.l.PushBack(req)
}

// PopOne removes and returns the oldest pending request, if any.
func (q *TXQueue) PopOne() (NeighborInstall, bool) {
	front := q.l.Front()
	if front == nil {
		return NeighborInstall{}, false
	}
	q.l.Remove(front)
	return front.Value.(NeighborInstall), true
}

// Len reports the number of pending requests.
func (q *TXQueue) Len() int { return q.l.Len() }
