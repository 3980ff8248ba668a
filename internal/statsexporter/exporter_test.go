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

import (
	"bytes"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/joolli/neighsnoopd/internal/cache"
)

func TestSnapshotIsValidPrometheusText(t *testing.T) {
	stats := cache.Stats{Links: 2, Networks: 1, LinkNetworks: 1, FDBEntries: 0, Neighbors: 3}
	linkCounts := []cache.LinkStats{{Ifindex: 10, Name: "svi10", Neighbors: 3}}

	data, err := Snapshot(stats, linkCounts, 1)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Snapshot returned no bytes")
	}
	if !bytes.Contains(data, []byte("neighsnoopd_cache_entities")) || !bytes.Contains(data, []byte("neighsnoopd_timer_wheel_depth")) {
		t.Errorf("snapshot missing expected metric names: %s", data)
	}
}

func TestExporterAcceptAndServeDeliversWholeSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.sock")

	calls := 0
	exp, err := NewExporter(path, func() ([]byte, error) {
		calls++
		return []byte("# a fixed snapshot body\n"), nil
	})
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	defer exp.Close()

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Give the listener a moment to see the pending connection.
	time.Sleep(20 * time.Millisecond)

	fd, ok, err := exp.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !ok {
		t.Fatal("Accept: no connection was pending")
	}
	if fd <= 0 {
		t.Fatalf("Accept returned fd = %d", fd)
	}
	if calls != 1 {
		t.Fatalf("snapshot func called %d times, want 1", calls)
	}

	var done bool
	for i := 0; i < 100 && !done; i++ {
		done, err = exp.Serve()
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
		if !done {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if !done {
		t.Fatal("Serve never completed delivering the snapshot")
	}

	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("client Read: %v", err)
	}
	if string(buf[:n]) != "# a fixed snapshot body\n" {
		t.Errorf("client received %q", buf[:n])
	}
}
