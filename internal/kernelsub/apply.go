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

import (
	log "github.com/sirupsen/logrus"

	"github.com/joolli/neighsnoopd/internal/cache"
)

// Apply mutates c according to cmd, in arrival order, matching spec §5's
// "kernel subscription events are applied in arrival order" guarantee.
// monitorIfindex is forwarded to AddLink so SVI detection happens only at
// link-add time (spec §4.1). The affected Neighbor is returned for NeighAdd
// so the caller can decide whether to (re)arm its probe timer; every other
// command returns nil.
func Apply(c *cache.Cache, monitorIfindex int, cmd Command) *cache.Neighbor {
	switch v := cmd.(type) {
	case LinkAdd:
		if link := c.GetLink(v.Cmd.Ifindex); link != nil {
			c.UpdateLink(link, v.Cmd)
		} else {
			c.AddLink(v.Cmd, monitorIfindex)
		}

	case LinkDel:
		c.DelLink(v.Ifindex)

	case AddrAdd:
		if _, err := c.AddNetwork(v.Cmd); err != nil {
			log.WithError(err).WithField("ifindex", v.Cmd.Ifindex).Info("Dropping address-add.")
		}

	case AddrDel:
		c.DelNetwork(v.Cmd)

	case NeighAdd:
		return applyNeigh(c, v.Cmd)

	case NeighDel:
		if neigh := c.GetNeigh(v.Cmd.Ifindex, v.Cmd.IP); neigh != nil {
			c.DelNeigh(neigh)
		}

	case FDBAdd:
		if _, err := c.AddFDB(v.Cmd); err != nil {
			log.WithError(err).Info("Dropping FDB add.")
		}

	case FDBDel:
		c.DelFDB(v.Cmd)

	default:
		panic("kernelsub: unhandled command")
	}
	return nil
}

func applyNeigh(c *cache.Cache, cmd cache.NeighCmd) *cache.Neighbor {
	if neigh := c.GetNeigh(cmd.Ifindex, cmd.IP); neigh != nil {
		c.UpdateNeigh(neigh, cmd)
		return neigh
	}

	link := c.GetLink(cmd.Ifindex)
	if link == nil {
		log.WithField("ifindex", cmd.Ifindex).Debug("Neighbor event for unknown link; dropping.")
		return nil
	}
	ln := c.GetLinkNetworkByAddr(link, cmd.IP)
	if ln == nil {
		log.WithFields(log.Fields{"ifindex": cmd.Ifindex, "ip": cmd.IP}).Debug("Neighbor event outside any known on-link network; dropping.")
		return nil
	}
	return c.AddNeigh(ln, cmd)
}
