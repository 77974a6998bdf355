// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config loads the YAML configuration of a model run.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
)

// Controller names understood by the controllers package.
const (
	RabbitMQ        = "rabbitmq"
	ZooKeeper       = "zookeeper"
	FluentBit       = "fluentbit"
	FluentBitConfig = "fluentbitconfig"
	VReplicaSet     = "vreplicaset"
	VDeployment     = "vdeployment"
	VStatefulSet    = "vstatefulset"
)

type faultsConfig struct {
	// TimeoutEvery fails every Nth request with a Timeout. Zero disables
	// fault injection.
	TimeoutEvery int `yaml:"timeoutEvery"`
}

type apiServerConfig struct {
	Faults faultsConfig `yaml:"faults"`
}

type ControllerConfig struct {
	Name         string        `yaml:"name"`
	RequeueAfter time.Duration `yaml:"requeueAfter"`
	WatchOwned   *bool         `yaml:"watchOwned"`
}

type Config struct {
	Namespace        string             `yaml:"namespace"`
	APIServer        apiServerConfig    `yaml:"apiServer"`
	Controllers      []ControllerConfig `yaml:"controllers"`
	PodLifecycle     *bool              `yaml:"podLifecycle"`
	GarbageCollector *bool              `yaml:"garbageCollector"`
	// InstalledTypes restricts the kinds the api-server accepts. Empty means
	// every known kind.
	InstalledTypes []string `yaml:"installedTypes"`
}

func NewConfig(configRaw []byte) (*Config, error) {
	config := &Config{}

	if err := yaml.UnmarshalStrict(configRaw, config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	config := &Config{}
	_ = config.setDefaults()
	return config
}

func (c *Config) setDefaults() error {
	if c.Namespace == "" {
		c.Namespace = "default"
	}
	if c.APIServer.Faults.TimeoutEvery < 0 {
		return fmt.Errorf("apiServer.faults.timeoutEvery must not be negative")
	}
	if len(c.Controllers) == 0 {
		for _, name := range []string{RabbitMQ, ZooKeeper, FluentBit, FluentBitConfig, VReplicaSet, VDeployment, VStatefulSet} {
			c.Controllers = append(c.Controllers, ControllerConfig{Name: name})
		}
	}
	seen := map[string]bool{}
	for i := range c.Controllers {
		controller := &c.Controllers[i]
		if controller.Name == "" {
			return fmt.Errorf("controllers[%d]: name is required", i)
		}
		if seen[controller.Name] {
			return fmt.Errorf("controller %q is configured twice", controller.Name)
		}
		seen[controller.Name] = true
		if controller.RequeueAfter < 0 {
			return fmt.Errorf("controller %q: requeueAfter must not be negative", controller.Name)
		}
		if controller.WatchOwned == nil {
			watch := true
			controller.WatchOwned = &watch
		}
	}
	if c.PodLifecycle == nil {
		enabled := true
		c.PodLifecycle = &enabled
	}
	if c.GarbageCollector == nil {
		enabled := true
		c.GarbageCollector = &enabled
	}
	return nil
}
