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

// Package config loads wpool.Options from a JSON file with an environment
// variable overlay. Configuration sources, in order of precedence:
//
//  1. Environment variables, prefixed WPOOL_ (highest priority)
//  2. Configuration file (JSON)
//  3. Default values (lowest priority)
//
// A missing config file is not an error: LoadPool falls back to defaults
// and still applies the environment overlay on top of them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lindb/wpool/internal/concurrent"
)

// Pool mirrors concurrent.Options with JSON tags for file-based loading.
type Pool struct {
	Workers          int    `json:"workers"`
	QueueType        string `json:"queue_type"`
	OverrunBudget    string `json:"overrun_budget"`
	PoolSupShutdown  string `json:"pool_sup_shutdown"`
	PoolSupIntensity int    `json:"pool_sup_intensity"`
	PoolSupPeriod    string `json:"pool_sup_period"`
	EnableCallbacks  bool   `json:"enable_callbacks"`
}

// DefaultPool returns the built-in default Pool config.
func DefaultPool() Pool {
	return Pool{
		Workers:          100,
		QueueType:        "fifo",
		PoolSupShutdown:  "brutal",
		PoolSupIntensity: 5,
		PoolSupPeriod:    "60s",
	}
}

// LoadPool reads a JSON file into a Pool config, then applies a WPOOL_
// prefixed environment variable overlay (env takes precedence over the
// file, which takes precedence over defaults). A missing path is not an
// error.
func LoadPool(path string) (Pool, error) {
	cfg := DefaultPool()
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnvironmentOverrides()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFromFile merges a JSON file's fields into cfg. A missing file is
// silently ignored so default-only configurations keep working.
func (p *Pool) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read pool config file: %w", err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("failed to parse pool config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides applies WPOOL_-prefixed overrides on top of
// whatever loadFromFile (or DefaultPool) produced. Invalid integer or
// duration values are ignored rather than failing startup.
func (p *Pool) applyEnvironmentOverrides() {
	if val := os.Getenv("WPOOL_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			p.Workers = n
		}
	}
	if val := os.Getenv("WPOOL_QUEUE_TYPE"); val != "" {
		p.QueueType = val
	}
	if val := os.Getenv("WPOOL_OVERRUN_BUDGET"); val != "" {
		p.OverrunBudget = val
	}
	if val := os.Getenv("WPOOL_POOL_SUP_SHUTDOWN"); val != "" {
		p.PoolSupShutdown = val
	}
	if val := os.Getenv("WPOOL_POOL_SUP_INTENSITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			p.PoolSupIntensity = n
		}
	}
	if val := os.Getenv("WPOOL_POOL_SUP_PERIOD"); val != "" {
		p.PoolSupPeriod = val
	}
	if val := os.Getenv("WPOOL_ENABLE_CALLBACKS"); val != "" {
		p.EnableCallbacks = strings.ToLower(val) == "true"
	}
}

// Validate checks field values that would otherwise surface as a confusing
// failure deep inside concurrent.StartLink.
func (p *Pool) Validate() error {
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", p.Workers)
	}
	if p.QueueType != "" && p.QueueType != "fifo" && p.QueueType != "lifo" {
		return fmt.Errorf("queue_type must be %q or %q, got %q", "fifo", "lifo", p.QueueType)
	}
	if p.PoolSupShutdown != "" && p.PoolSupShutdown != "brutal" && p.PoolSupShutdown != "graceful" {
		return fmt.Errorf("pool_sup_shutdown must be %q or %q, got %q", "brutal", "graceful", p.PoolSupShutdown)
	}
	if p.PoolSupIntensity < 0 {
		return fmt.Errorf("pool_sup_intensity must be >= 0, got %d", p.PoolSupIntensity)
	}
	if p.OverrunBudget != "" {
		if _, err := time.ParseDuration(p.OverrunBudget); err != nil {
			return fmt.Errorf("invalid overrun_budget %q: %w", p.OverrunBudget, err)
		}
	}
	if p.PoolSupPeriod != "" {
		if _, err := time.ParseDuration(p.PoolSupPeriod); err != nil {
			return fmt.Errorf("invalid pool_sup_period %q: %w", p.PoolSupPeriod, err)
		}
	}
	return nil
}

// ToOptions converts the loaded file/env config into concurrent.Options.
func (p *Pool) ToOptions() (concurrent.Options, error) {
	opts := concurrent.Options{
		Workers:          p.Workers,
		QueueType:        concurrent.QueueType(p.QueueType),
		PoolSupShutdown:  concurrent.ShutdownKind(p.PoolSupShutdown),
		PoolSupIntensity: p.PoolSupIntensity,
		EnableCallbacks:  p.EnableCallbacks,
	}
	if p.OverrunBudget != "" {
		dur, err := time.ParseDuration(p.OverrunBudget)
		if err != nil {
			return opts, fmt.Errorf("invalid overrun_budget %q: %w", p.OverrunBudget, err)
		}
		opts.OverrunBudget = dur
	}
	if p.PoolSupPeriod != "" {
		dur, err := time.ParseDuration(p.PoolSupPeriod)
		if err != nil {
			return opts, fmt.Errorf("invalid pool_sup_period %q: %w", p.PoolSupPeriod, err)
		}
		opts.PoolSupPeriod = dur
	}
	return opts, nil
}
