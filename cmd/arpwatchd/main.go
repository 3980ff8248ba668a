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

package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/joolli/neighsnoopd/internal/app"
	"github.com/joolli/neighsnoopd/internal/config"
)

// ringBufferPath and prefixTablePinPath are where the out-of-scope in-kernel
// classifier (spec §1) is expected to expose its ring buffer consumer fd and
// pin its prefix table; attaching that classifier is not this daemon's job.
const (
	ringBufferPath     = "/sys/fs/bpf/neighsnoopd/ring_buffer"
	prefixTablePinPath = "/sys/fs/bpf/neighsnoopd/prefix_table"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Could not parse arguments.")
	}

	switch {
	case cfg.Verbosity >= 3:
		log.SetLevel(log.TraceLevel)
	case cfg.Verbosity == 2:
		log.SetLevel(log.DebugLevel)
	case cfg.Verbosity == 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}

	pinPath := prefixTablePinPath
	if _, err := os.Stat(pinPath); err != nil {
		pinPath = ""
	}

	ctx, err := app.Setup(cfg, ringBufferPath, pinPath)
	if err != nil {
		log.WithError(err).Fatal("Setup failed.")
	}

	err = ctx.Run()
	ctx.Teardown()
	if err != nil {
		log.WithError(err).Fatal("Event loop exited with an error.")
	}
}
