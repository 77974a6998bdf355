// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vreconcile/operators/internal/cluster"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/pkg/profiling"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	modeQuiesce = "quiesce"
	modeExplore = "explore"
	modeRun     = "run"
)

func main() {
	var (
		configPath, manifestsPath, mode, metricsAddr string
		maxSteps                                     int
		seed                                         int64
		dump                                         bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration. Defaults run every controller.")
	flag.StringVar(&manifestsPath, "manifests", "", "Path to a multi-document YAML file of objects to create.")
	flag.StringVar(&mode, "mode", modeQuiesce, "quiesce steps until nothing is enabled, explore interleaves randomly first, run starts every component until signalled.")
	flag.IntVar(&maxSteps, "max-steps", 100000, "Upper bound on steps in quiesce and explore modes.")
	flag.Int64Var(&seed, "seed", 0, "Seed for exploration and generated credentials. Zero uses a random source.")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "The address the metric and pprof endpoint binds to. Empty disables it.")
	flag.BoolVar(&dump, "dump", true, "Print every stored object once the model is quiescent.")

	opts := zap.Options{
		Development: true,
		DestWriter:  os.Stderr,
		TimeEncoder: zapcore.RFC3339NanoTimeEncoder,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger)
	klog.SetLogger(logger.WithName("klog"))
	setupLog := logger.WithName("setup")

	cfg := config.Default()
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			setupLog.Error(err, "unable to read config file", "path", configPath)
			os.Exit(1)
		}
		if cfg, err = config.NewConfig(raw); err != nil {
			setupLog.Error(err, "unable to parse config file", "path", configPath)
			os.Exit(1)
		}
	}

	var random io.Reader = rand.Reader
	explorer := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	if seed != 0 {
		random = mathrand.New(mathrand.NewSource(seed))
		explorer = mathrand.New(mathrand.NewSource(seed))
	}

	c, err := cluster.New(cfg, cluster.Options{
		Clock:      clock.RealClock{},
		Registerer: ctrlmetrics.Registry,
		Rand:       random,
		Log:        logger,
	})
	if err != nil {
		setupLog.Error(err, "unable to build cluster")
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()
	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, ctrlmetrics.Registry, setupLog)
	}

	if err := run(ctx, c, mode, manifestsPath, maxSteps, explorer, setupLog); err != nil {
		setupLog.Error(err, "problem running cluster", "mode", mode)
		os.Exit(1)
	}
	if dump && mode != modeRun {
		if err := c.Dump(os.Stdout); err != nil {
			setupLog.Error(err, "unable to dump store")
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, c *cluster.Cluster, mode, manifestsPath string, maxSteps int, explorer *mathrand.Rand, log logr.Logger) error {
	apply := func(ctx context.Context) error {
		if manifestsPath == "" {
			return nil
		}
		f, err := os.Open(manifestsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		created, err := c.Apply(ctx, f)
		log.Info("applied manifests", "path", manifestsPath, "objects", len(created))
		return err
	}

	switch mode {
	case modeQuiesce, modeExplore:
		if err := apply(ctx); err != nil {
			return err
		}
		if mode == modeExplore {
			taken, err := c.Explore(explorer, cluster.ExploreOptions{Steps: maxSteps, CrashOneIn: 100})
			if err != nil {
				return err
			}
			log.Info("exploration finished", "steps", taken)
		}
		steps, err := c.RunUntilQuiescent(maxSteps)
		if err != nil {
			return err
		}
		if err := c.CheckInvariants(); err != nil {
			return err
		}
		log.Info("cluster is quiescent", "steps", steps)
		return nil

	case modeRun:
		errs := make(chan error, 1)
		go func() {
			errs <- c.Run(ctx)
		}()
		if err := apply(ctx); err != nil {
			return err
		}
		return <-errs
	}
	return fmt.Errorf("unknown mode %q", mode)
}

func serveMetrics(ctx context.Context, addr string, registry prometheus.Gatherer, log logr.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	profiling.AddDebugPprofEndpoints(mux)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	log.Info("serving metrics", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err, "metrics server failed")
	}
}
