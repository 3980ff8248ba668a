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

import (
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Family selects which record families the operator wants observed,
// mirroring the `-4`/`-6` command-line flags.
type Family int

const (
	// FamilyBoth passes every record through untouched.
	FamilyBoth Family = iota
	FamilyV4Only
	FamilyV6Only
)

// Reader consumes fixed-size records from the ring buffer's consumer end.
type Reader struct {
	file   *os.File
	family Family
}

// NewReader wraps an already-open ring-buffer file descriptor (typically an
// mmap'd region exposed by the out-of-scope in-kernel classifier).
func NewReader(file *os.File, family Family) *Reader {
	return &Reader{file: file, family: family}
}

// OpenRing opens the consumer end of the ring buffer at path. Creating and
// attaching the classifier that populates it is out of scope (spec §1);
// this only opens a surface some other process has already exposed, e.g. a
// pinned bpffs object or a named pipe used in development.
func OpenRing(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// Fd returns the underlying file descriptor for epoll registration.
func (r *Reader) Fd() int { return int(r.file.Fd()) }

// Read decodes the next record, or returns ErrShortRead if fewer than a
// full record's worth of bytes was available (treated by the event loop as
// "nothing ready", not an error worth logging). Records for a family the
// operator did not select are decoded and then silently dropped, matching
// spec §4.3.
func (r *Reader) Read() (Record, bool, error) {
	var raw rawRecord
	if err := binary.Read(r.file, binary.LittleEndian, &raw); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return Record{}, false, ErrShortRead
		}
		return Record{}, false, err
	}

	rec, err := decode(raw)
	if err != nil {
		return Record{}, false, err
	}

	if r.family == FamilyV4Only && rec.InFamily != unix.AF_INET {
		return Record{}, false, nil
	}
	if r.family == FamilyV6Only && rec.InFamily != unix.AF_INET6 {
		return Record{}, false, nil
	}
	return rec, true, nil
}
