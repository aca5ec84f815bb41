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

package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/lindb/wpool/internal/logging"
)

var watchLog = logging.Component("config.watch")

// WatchPool watches path for writes and logs when it changes, so an
// operator running wpooldemo notices an edited config file even though
// LoadPool is only consulted at StartLink time. It does not itself reload
// or restart anything; picking up the new values means restarting the
// pool.
func WatchPool(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					watchLog.Warn("pool config file changed on disk; restart to pick up new values",
						logging.Fields{"path": event.Name})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				watchLog.Error("config watcher error", logging.Fields{"error": err})
			}
		}
	}()
	return nil
}
