// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package metrics holds the Prometheus collectors of the model. A nil
// *Metrics records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vreconcile"

type Metrics struct {
	ReconcileTotal    *prometheus.CounterVec
	ReconcileSteps    *prometheus.CounterVec
	OngoingReconciles *prometheus.GaugeVec
	APIServerRequests *prometheus.CounterVec
	GCDeletions       prometheus.Counter
	PodTransitions    prometheus.Counter
}

// New creates the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_total",
				Help:      "Reconcile instances that ended, by controller and outcome.",
			},
			[]string{"controller", "outcome"},
		),
		ReconcileSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_steps_total",
				Help:      "Reconcile steps taken, by controller.",
			},
			[]string{"controller"},
		),
		OngoingReconciles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ongoing_reconciles",
				Help:      "Reconcile instances in progress, by controller.",
			},
			[]string{"controller"},
		),
		APIServerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "apiserver_requests_total",
				Help:      "Requests handled by the api-server, by verb and response reason.",
			},
			[]string{"verb", "code"},
		),
		GCDeletions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gc_deletions_total",
				Help:      "Delete requests issued by the garbage collector.",
			},
		),
		PodTransitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pod_lifecycle_transitions_total",
				Help:      "Pods marked Running by the pod lifecycle shim.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.ReconcileTotal,
			m.ReconcileSteps,
			m.OngoingReconciles,
			m.APIServerRequests,
			m.GCDeletions,
			m.PodTransitions,
		)
	}
	return m
}

func (m *Metrics) RecordReconcile(controller, outcome string) {
	if m == nil {
		return
	}
	m.ReconcileTotal.WithLabelValues(controller, outcome).Inc()
}

func (m *Metrics) RecordStep(controller string) {
	if m == nil {
		return
	}
	m.ReconcileSteps.WithLabelValues(controller).Inc()
}

func (m *Metrics) SetOngoing(controller string, ongoing int) {
	if m == nil {
		return
	}
	m.OngoingReconciles.WithLabelValues(controller).Set(float64(ongoing))
}

// RecordRequest counts an api-server request; code is the status reason, or
// "OK" on success.
func (m *Metrics) RecordRequest(verb, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.APIServerRequests.WithLabelValues(verb, code).Inc()
}

func (m *Metrics) RecordGCDeletion() {
	if m == nil {
		return
	}
	m.GCDeletions.Inc()
}

func (m *Metrics) RecordPodTransition() {
	if m == nil {
		return
	}
	m.PodTransitions.Inc()
}
