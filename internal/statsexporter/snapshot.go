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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/joolli/neighsnoopd/internal/cache"
)

// Snapshot builds one Prometheus text-format dump of the cache's current
// entity counts, per-link neighbor counts, and the probe timer wheel's
// depth. It is a pure function of the values passed in: callers take the
// snapshot at accept time, not continuously.
func Snapshot(stats cache.Stats, linkCounts []cache.LinkStats, wheelLen int) ([]byte, error) {
	reg := prometheus.NewRegistry()

	entities := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "neighsnoopd_cache_entities",
		Help: "Current count of cached entities by kind.",
	}, []string{"kind"})
	entities.WithLabelValues("links").Set(float64(stats.Links))
	entities.WithLabelValues("networks").Set(float64(stats.Networks))
	entities.WithLabelValues("link_networks").Set(float64(stats.LinkNetworks))
	entities.WithLabelValues("fdb_entries").Set(float64(stats.FDBEntries))
	entities.WithLabelValues("neighbors").Set(float64(stats.Neighbors))

	linkNeighbors := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "neighsnoopd_link_neighbors",
		Help: "Current neighbor count per monitored link.",
	}, []string{"ifindex", "link"})
	for _, ls := range linkCounts {
		linkNeighbors.WithLabelValues(strconv.Itoa(ls.Ifindex), ls.Name).Set(float64(ls.Neighbors))
	}

	timerWheelDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "neighsnoopd_timer_wheel_depth",
		Help: "Number of entries currently queued in the probe timer wheel.",
	})
	timerWheelDepth.Set(float64(wheelLen))

	reg.MustRegister(entities, linkNeighbors, timerWheelDepth)

	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
