// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cluster wires the store, the bus, the api-server, the built-in
// controllers and the configured operators into one system, and drives it
// either one atomic action at a time or with a goroutine per component.
package cluster

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vreconcile/operators/controllers"
	"github.com/vreconcile/operators/internal/apiserver"
	"github.com/vreconcile/operators/internal/builtin/gc"
	"github.com/vreconcile/operators/internal/builtin/podlifecycle"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/internal/controller"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
)

type Options struct {
	Clock clock.Clock
	// Registerer receives the operator metrics. Nil disables them.
	Registerer prometheus.Registerer
	Recorder   record.EventRecorder
	Rand       io.Reader
	Log        logr.Logger
}

type Cluster struct {
	Config      *config.Config
	Scheme      *runtime.Scheme
	Types       registry.InstalledTypes
	Store       *store.Store
	Bus         *message.Bus
	APIServer   *apiserver.APIServer
	Controllers []*controller.Controller
	// GC and Pods are nil when disabled in the configuration.
	GC      *gc.GarbageCollector
	Pods    *podlifecycle.PodLifecycle
	Metrics *metrics.Metrics

	clock clock.Clock
	log   logr.Logger
	seen  map[object.Ref]version
	// gc delete requests already judged, by message id
	judged map[uint64]bool
}

func New(cfg *config.Config, opts Options) (*Cluster, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = &record.FakeRecorder{}
	}
	log := opts.Log

	scheme := registry.NewScheme()
	types, err := registry.Default(scheme)
	if err != nil {
		return nil, fmt.Errorf("unable to build type registry: %w", err)
	}
	if len(cfg.InstalledTypes) > 0 {
		if types, err = types.Subset(cfg.InstalledTypes); err != nil {
			return nil, err
		}
	}

	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.New(opts.Registerer)
	}

	c := &Cluster{
		Config:  cfg,
		Scheme:  scheme,
		Types:   types,
		Store:   store.New(types, opts.Clock, log.WithName("store")),
		Bus:     message.NewBus(),
		Metrics: m,
		clock:   opts.Clock,
		log:     log,
		seen:    map[object.Ref]version{},
		judged:  map[uint64]bool{},
	}

	var faults apiserver.FaultInjector = apiserver.NoFaults{}
	if every := cfg.APIServer.Faults.TimeoutEvery; every > 0 {
		faults = &apiserver.EveryNth{N: uint64(every)}
	}
	c.APIServer = &apiserver.APIServer{
		Store:   c.Store,
		Bus:     c.Bus,
		Types:   types,
		Faults:  faults,
		Log:     log.WithName("api-server"),
		Metrics: m,
	}
	if cfg.GarbageCollector == nil || *cfg.GarbageCollector {
		c.GC = &gc.GarbageCollector{Store: c.Store, Bus: c.Bus, Log: log.WithName(gc.Name), Metrics: m}
	}
	if cfg.PodLifecycle == nil || *cfg.PodLifecycle {
		c.Pods = &podlifecycle.PodLifecycle{Store: c.Store, Bus: c.Bus, Log: log.WithName(podlifecycle.Name), Metrics: m}
	}

	c.Controllers, err = controllers.Setup(cfg, controllers.Options{
		Store:    c.Store,
		Bus:      c.Bus,
		Scheme:   scheme,
		Metrics:  m,
		Recorder: opts.Recorder,
		Clock:    opts.Clock,
		Rand:     opts.Rand,
		Log:      log.WithName("controller"),
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Controller returns the controller configured under name, or nil.
func (c *Cluster) Controller(name string) *controller.Controller {
	for _, ctrl := range c.Controllers {
		if ctrl.Name == name {
			return ctrl
		}
	}
	return nil
}

// Step takes the first enabled action in priority order: serve a request,
// hand a response to a built-in controller, advance a running reconcile,
// start a scheduled one, then let the built-in controllers act. It returns
// false when the system is quiescent at the current time.
func (c *Cluster) Step() bool {
	if c.APIServer.Step(nil) {
		return true
	}
	if c.GC != nil && c.GC.Receive() {
		return true
	}
	if c.Pods != nil && c.Pods.Receive() {
		return true
	}
	for _, ctrl := range c.Controllers {
		if ctrl.DiscardStale() {
			return true
		}
		for _, key := range ctrl.Continuable() {
			if ctrl.Continue(key) {
				return true
			}
		}
	}
	for _, ctrl := range c.Controllers {
		ctrl.Tick()
		for _, key := range ctrl.Scheduled() {
			if ctrl.Pickup(key) {
				return true
			}
		}
	}
	if c.GC != nil && c.GC.Step() {
		return true
	}
	if c.Pods != nil && c.Pods.Step() {
		return true
	}
	return false
}

// nextWakeup returns the earliest delayed reconcile across controllers.
func (c *Cluster) nextWakeup(backoffOnly bool) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, ctrl := range c.Controllers {
		if at, ok := ctrl.NextWakeup(backoffOnly); ok && (!found || at.Before(earliest)) {
			earliest, found = at, true
		}
	}
	return earliest, found
}

// RunUntilQuiescent steps until nothing is enabled, sleeping through
// back-offs on the cluster clock. Periodic requeues do not keep it running.
// It returns the number of steps taken.
func (c *Cluster) RunUntilQuiescent(maxSteps int) (int, error) {
	steps := 0
	for {
		if c.Step() {
			steps++
			if steps >= maxSteps {
				return steps, fmt.Errorf("not quiescent after %d steps", steps)
			}
			continue
		}
		at, ok := c.nextWakeup(true)
		if !ok {
			return steps, nil
		}
		if wait := at.Sub(c.clock.Now()); wait > 0 {
			c.clock.Sleep(wait)
		}
	}
}

// Run drives every component in its own goroutine until ctx is done.
func (c *Cluster) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.APIServer.Run(ctx) })
	if c.GC != nil {
		g.Go(func() error { return c.GC.Run(ctx) })
	}
	if c.Pods != nil {
		g.Go(func() error { return c.Pods.Run(ctx) })
	}
	for _, ctrl := range c.Controllers {
		g.Go(func() error { return ctrl.Run(ctx) })
	}
	c.log.Info("cluster running", "controllers", len(c.Controllers))
	return g.Wait()
}
