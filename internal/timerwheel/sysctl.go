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
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ReadBaseReachableTimeMS reads the kernel's per-interface neighbor tunable
// for the given address family, per spec §6.
func ReadBaseReachableTimeMS(ifname string, family int) (int, error) {
	var proto string
	switch family {
	case unix.AF_INET:
		proto = "ipv4"
	case unix.AF_INET6:
		proto = "ipv6"
	default:
		return 0, fmt.Errorf("timerwheel: unsupported family %d", family)
	}

	path := fmt.Sprintf("/proc/sys/net/%s/neigh/%s/base_reachable_time_ms", proto, ifname)
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("timerwheel: parsing %s: %w", path, err)
	}
	return ms, nil
}
