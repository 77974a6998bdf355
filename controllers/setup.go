// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/internal/controller"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/internal/store"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
)

// Options carries what every controller shares.
type Options struct {
	Store    *store.Store
	Bus      *message.Bus
	Scheme   *runtime.Scheme
	Metrics  *metrics.Metrics
	Recorder record.EventRecorder
	Clock    clock.Clock
	// Rand feeds generated credentials. It must be set for the rabbitmq
	// controller.
	Rand io.Reader
	Log  logr.Logger
}

// NewReconciler returns the reconciler registered under name.
func NewReconciler(name string, opts Options) (reconciler.Reconciler, error) {
	log := opts.Log.WithName(name)
	now := opts.Clock.Now
	switch name {
	case config.RabbitMQ:
		if opts.Rand == nil {
			return nil, fmt.Errorf("controller %q needs a random source", name)
		}
		return NewRabbitmqClusterReconciler(opts.Scheme, opts.Rand, now, log), nil
	case config.ZooKeeper:
		return NewZookeeperClusterReconciler(opts.Scheme, now, log), nil
	case config.FluentBit:
		return NewFluentBitReconciler(opts.Scheme, now, log), nil
	case config.FluentBitConfig:
		return NewFluentBitConfigReconciler(opts.Scheme, now, log), nil
	case config.VReplicaSet:
		return &VReplicaSetReconciler{Scheme: opts.Scheme, Log: log}, nil
	case config.VDeployment:
		return &VDeploymentReconciler{Scheme: opts.Scheme, Log: log}, nil
	case config.VStatefulSet:
		return &VStatefulSetReconciler{Scheme: opts.Scheme, Log: log}, nil
	}
	return nil, fmt.Errorf("unknown controller %q", name)
}

// Setup builds and starts one controller per configured entry, in
// configuration order.
func Setup(cfg *config.Config, opts Options) ([]*controller.Controller, error) {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	var controllers []*controller.Controller
	for _, cc := range cfg.Controllers {
		r, err := NewReconciler(cc.Name, opts)
		if err != nil {
			return nil, err
		}
		c := &controller.Controller{
			Name:         cc.Name,
			Reconciler:   r,
			Store:        opts.Store,
			Bus:          opts.Bus,
			Log:          opts.Log.WithName(cc.Name),
			Recorder:     opts.Recorder,
			Metrics:      opts.Metrics,
			Clock:        opts.Clock,
			RequeueAfter: cc.RequeueAfter,
			WatchOwned:   cc.WatchOwned == nil || *cc.WatchOwned,
		}
		if err := c.Setup(); err != nil {
			return nil, fmt.Errorf("unable to set up controller %q: %w", cc.Name, err)
		}
		controllers = append(controllers, c)
	}
	return controllers, nil
}
