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
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sigsetOf builds a Sigset_t containing exactly sigs, for PthreadSigmask and
// Signalfd.
func sigsetOf(sigs ...syscall.Signal) *unix.Sigset_t {
	var set unix.Sigset_t
	for _, s := range sigs {
		bit := uint(s) - 1
		set.Val[bit/64] |= 1 << (bit % 64)
	}
	return &set
}

// setupSignalFD blocks SIGINT/SIGTERM from ordinary delivery and routes them
// through a non-blocking signalfd instead, so the event loop observes them
// as a regular epoll-readable source (spec §4.7 class 1).
func setupSignalFD() (int, error) {
	mask := sigsetOf(syscall.SIGINT, syscall.SIGTERM)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, mask, nil); err != nil {
		return -1, err
	}
	fd, err := unix.Signalfd(-1, mask, unix.SFD_CLOEXEC|unix.SFD_NONBLOCK)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// readSignal drains one signalfd_siginfo record and reports whether it was
// SIGINT or SIGTERM (the only signals ever routed here, so always true in
// practice; the bool return guards against a spurious wakeup).
func readSignal(fd int) (syscall.Signal, bool, error) {
	var info unix.SignalfdSiginfo
	buf := (*[unsafe.Sizeof(info)]byte)(unsafe.Pointer(&info))[:]
	n, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, false, nil
		}
		return 0, false, err
	}
	if n < len(buf) {
		return 0, false, nil
	}
	return syscall.Signal(info.Signo), true, nil
}
