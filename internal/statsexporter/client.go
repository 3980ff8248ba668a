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

package statsexporter

import "golang.org/x/sys/unix"

// Client tracks one connected stats reader: its accepted socket fd, the
// memfd holding its snapshot, and the (offset, length) progress of the
// sendfile(2) stream, per spec §4.8.
type Client struct {
	fd     int
	memfd  int
	offset int64
	length int64
}

// NewClient creates an anonymous memfd, writes snapshot into it once, and
// returns a Client ready to stream it to fd.
func NewClient(fd int, snapshot []byte) (*Client, error) {
	memfd, err := unix.MemfdCreate("neighsnoopd-stats", 0)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if _, err := unix.Write(memfd, snapshot); err != nil {
		unix.Close(memfd)
		unix.Close(fd)
		return nil, err
	}
	return &Client{fd: fd, memfd: memfd, length: int64(len(snapshot))}, nil
}

// FD is the client's accepted socket fd.
func (c *Client) FD() int { return c.fd }

// WriteChunk sends as much of the remaining snapshot as fd's send buffer
// accepts right now. done reports the whole snapshot has been delivered;
// the caller is then expected to Close the client.
func (c *Client) WriteChunk() (done bool, err error) {
	if c.offset >= c.length {
		return true, nil
	}
	_, err = unix.Sendfile(c.fd, c.memfd, &c.offset, int(c.length-c.offset))
	if err != nil {
		if err == unix.EAGAIN {
			return false, nil
		}
		return false, err
	}
	return c.offset >= c.length, nil
}

// Close releases both the client socket and its memfd.
func (c *Client) Close() {
	unix.Close(c.fd)
	unix.Close(c.memfd)
}
