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

package app

import (
	"time"

	"golang.org/x/sys/unix"
)

// setupTimerFD creates a disarmed monotonic timerfd. It is armed per
// iteration by rearmTimer once the timer wheel's next deadline is known.
func setupTimerFD() (int, error) {
	return unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
}

// rearmTimer arms fd to fire once at deadline, or disarms it if ok is false
// (nothing currently scheduled). Called after every Wheel.Process, since
// draining expirations can change what the next deadline is.
func rearmTimer(fd int, deadline time.Time, ok bool) error {
	var spec unix.ItimerSpec
	if ok {
		d := time.Until(deadline)
		if d <= 0 {
			// A zero it_value disarms a timerfd; fire as soon as possible.
			d = time.Nanosecond
		}
		spec.Value = unix.NsecToTimespec(d.Nanoseconds())
	}
	return unix.TimerfdSettime(fd, 0, &spec, nil)
}

// drainTimerFD consumes the 8-byte expiration counter so the fd stops being
// readable; the returned count is informational only (Wheel.Process decides
// what actually fires).
func drainTimerFD(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}
