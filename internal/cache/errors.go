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

package cache

import "errors"

var (
	// ErrUnknownLink is returned when an operation names an ifindex that
	// has no cached Link.
	ErrUnknownLink = errors.New("cache: unknown link")
	// ErrUnknownNetwork names a network that is not cached. No Cache method
	// returns it; DelNetwork reports an unknown network as false.
	ErrUnknownNetwork = errors.New("cache: unknown network")
	// ErrDuplicateNetworkAddress is returned by AddNetwork when a second
	// SVI tries to host a network address already owned by another SVI.
	// network_by_address is keyed by address alone; this assumption is
	// preserved deliberately (see SPEC_FULL.md Open Questions).
	ErrDuplicateNetworkAddress = errors.New("cache: network address already owned by another link")
	// ErrPrefixTable is returned when the kernel prefix-table projection
	// write fails; the triggering mutation is unwound.
	ErrPrefixTable = errors.New("cache: prefix table update failed")
)
