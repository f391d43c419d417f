// Copyright 2010-2024 Google LLC
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

// The backbone command extracts the backbone of a binary model.
//
// Usage:
//
//	backbone [flags] [param=value ...] <instanceFile> <backboneFile>
//
// SIGINT and SIGTERM interrupt the running solve; the backbone file then
// holds the backbone variables found so far, without terminator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/golang/glog"
	"github.com/spf13/pflag"

	"github.com/google/or-tools/backbone/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// glog flags: -v, --logtostderr, --log_dir, ...
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	cmd := cli.NewCommand(ctx, cli.NewOptions(os.Stdout, os.Stderr))
	cmd.Flags().AddFlagSet(pflag.CommandLine)

	err := cmd.Execute()
	stop()
	log.Flush()
	if err != nil {
		log.Errorf("backbone: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
