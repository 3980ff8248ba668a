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

// Package config parses the daemon's CLI surface and holds the resulting,
// immutable run configuration.
package config

import (
	"fmt"
	"regexp"

	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/libcalico-go/lib/set"
)

// AttachMode selects how the (out-of-scope) ring-buffer-feeding classifier
// is attached; this repo only records the choice, per SPEC_FULL.md §6.
type AttachMode int

const (
	AttachTC AttachMode = iota
	AttachXDP
)

const usage = `neighsnoopd

Usage:
  arpwatchd [-4 | -6] [-c NUM] [-f REGEX] [-l] [-q] [-v...] [-x] <IFNAME_MON>
  arpwatchd -h | --help

Arguments:
  IFNAME_MON    The bridge/SVI parent interface to monitor.

Options:
  -4            Handle IPv4 only.
  -6            Handle IPv6 only.
  -c NUM        Stop after NUM replies.
  -f REGEX      POSIX extended regex; matching interface names are flagged ignore_link.
  -l            Disable the default IPv6 link-local filter on address-add.
  -q            Do not replace a pre-existing ingress classifier.
  -v            Verbose; repeat for debug then kernel-subscription tracing.
  -x            Attach the classifier at XDP instead of ingress TC.
  -h --help     Show this screen.
`

// Config is the parsed, immutable run configuration. It is constructed once
// at startup and passed by reference into every component, per spec §9's
// "Global mutable state" design note.
type Config struct {
	IfnameMon string

	OnlyIPv4 bool
	OnlyIPv6 bool

	Count *int

	DenyFilter *regexp.Regexp

	DisableLinkLocalFilter bool
	KeepExistingClassifier bool
	Verbosity              int
	Attach                 AttachMode

	StatsSocketPath string

	warnedIgnored set.Set
}

// Parse parses argv (excluding the program name, i.e. os.Args[1:]).
func Parse(argv []string) (*Config, error) {
	opts, err := docopt.ParseArgs(usage, argv, "")
	if err != nil {
		return nil, err
	}

	c := &Config{
		StatsSocketPath: "/var/run/neighsnoopd.sock",
		warnedIgnored:   set.New(),
	}

	if v, err := opts.String("<IFNAME_MON>"); err == nil {
		c.IfnameMon = v
	}
	c.OnlyIPv4, _ = opts.Bool("-4")
	c.OnlyIPv6, _ = opts.Bool("-6")
	c.DisableLinkLocalFilter, _ = opts.Bool("-l")
	c.KeepExistingClassifier, _ = opts.Bool("-q")
	if xdp, _ := opts.Bool("-x"); xdp {
		c.Attach = AttachXDP
	}

	if n, err := opts.Int("-v"); err == nil {
		c.Verbosity = n
	}

	if n, err := opts.Int("-c"); err == nil {
		c.Count = &n
	}

	if re, _ := opts.String("-f"); re != "" {
		compiled, err := regexp.Compile(re)
		if err != nil {
			return nil, fmt.Errorf("invalid -f filter regex: %w", err)
		}
		c.DenyFilter = compiled
	}

	return c, nil
}

// IgnoreLink reports whether name matches the deny filter. Each newly
// matched name is logged once (tracked in a small set, the way Felix's own
// ifacemonitor tracks per-link address sets) rather than on every match.
func (c *Config) IgnoreLink(name string) bool {
	if c.DenyFilter == nil {
		return false
	}
	if !c.DenyFilter.MatchString(name) {
		return false
	}
	if !c.warnedIgnored.Contains(name) {
		log.WithField("link", name).Info("Interface matches deny filter; flagging ignore_link.")
		c.warnedIgnored.Add(name)
	}
	return true
}
