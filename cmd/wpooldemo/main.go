// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Command wpooldemo starts a pool from a config file (with the worker count
// fixed at 4), submits a handful of casts and one call against it, prints a
// stats snapshot, and stops it. It exists to exercise wpool end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lindb/wpool"
	"github.com/lindb/wpool/config"
)

func main() {
	fs := flag.NewFlagSet("wpooldemo", flag.ExitOnError)
	cfgFile := fs.String("config", "", "path to a pool JSON config file; defaults built in if empty")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if err := runDemo(*cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDemo(cfgFile string) error {
	fileCfg, err := config.LoadPool(cfgFile)
	if err != nil {
		return err
	}
	opts, err := fileCfg.ToOptions()
	if err != nil {
		return err
	}
	opts.Workers = 4

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfgFile != "" {
		if err := config.WatchPool(watchCtx, cfgFile); err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}
	}

	const poolName = "demo"
	if err := wpool.StartLink(poolName, opts); err != nil {
		return err
	}
	defer func() { _ = wpool.Stop(poolName) }()

	for i := 0; i < 8; i++ {
		wpool.CastToAvailableWorker(poolName, i, func(payload any) (any, error) {
			time.Sleep(10 * time.Millisecond)
			fmt.Printf("cast %v handled\n", payload)
			return nil, nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := wpool.CallAvailableWorker(ctx, poolName, "ping", func(payload any) (any, error) {
		return "pong:" + payload.(string), nil
	}, 500*time.Millisecond)
	if err != nil {
		return err
	}
	fmt.Println("call result:", result)

	time.Sleep(100 * time.Millisecond)
	snap, err := wpool.Stats(poolName)
	if err != nil {
		return err
	}
	fmt.Printf("pool %q size=%d cursor=%d totalQueue=%d\n",
		snap.Name, snap.Size, snap.Cursor, snap.TotalMessageQueue)
	return nil
}
