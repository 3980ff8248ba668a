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

package capture

import "errors"

var (
	errUnknownFamily   = errors.New("capture: unknown in_family in record")
	errMalformedRecord = errors.New("capture: malformed address in record")
	// ErrShortRead is returned by Reader.Read when fewer than recordSize
	// bytes were available; the caller should treat this as "no record
	// ready yet" rather than a hard failure.
	ErrShortRead = errors.New("capture: short read, record not yet complete")
)
