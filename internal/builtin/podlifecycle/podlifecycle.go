// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package podlifecycle stands in for kubelet and the workload controllers:
// it marks pods Running and Ready and reports StatefulSets and DaemonSets as
// fully rolled out.
package podlifecycle

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/api/equality"
)

const Name = "pod-lifecycle"

var kinds = []string{"Pod", "StatefulSet", "DaemonSet"}

type PodLifecycle struct {
	Store   *store.Store
	Bus     *message.Bus
	Log     logr.Logger
	Metrics *metrics.Metrics

	mu       sync.Mutex
	inflight map[object.Ref]uint64
}

// Enabled returns the objects whose status lags behind, with no update in
// flight.
func (p *PodLifecycle) Enabled() []object.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()
	var keys []object.Ref
	for _, kind := range kinds {
		for _, obj := range p.Store.List(kind, "") {
			key := object.RefOf(obj)
			if _, busy := p.inflight[key]; busy || object.IsDeleting(obj) {
				continue
			}
			if !equality.Semantic.DeepEqual(object.Status(obj), desiredStatus(obj)) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// StepKey sends the status update for key.
func (p *PodLifecycle) StepKey(key object.Ref) bool {
	obj, err := p.Store.Get(key)
	if err != nil || object.IsDeleting(obj) {
		return false
	}
	desired := desiredStatus(obj)
	if equality.Semantic.DeepEqual(object.Status(obj), desired) {
		return false
	}

	p.mu.Lock()
	if _, busy := p.inflight[key]; busy {
		p.mu.Unlock()
		return false
	}
	id := p.Bus.NextID()
	if p.inflight == nil {
		p.inflight = map[object.Ref]uint64{}
	}
	p.inflight[key] = id
	p.mu.Unlock()

	object.SetStatus(obj, desired)
	p.Bus.Send(message.Message{
		Src:     message.BuiltInEndpoint(Name, key),
		Dst:     message.APIServerEndpoint(),
		ID:      id,
		Request: &message.Request{Verb: message.UpdateStatus, Ref: key, Object: obj},
	})
	p.Metrics.RecordPodTransition()
	p.Log.V(1).Info("updating status", "object", key.String())
	return true
}

func isResponse(m message.Message) bool {
	return !m.IsRequest() && m.Dst.Kind == message.BuiltIn && m.Dst.Name == Name
}

func (p *PodLifecycle) HasResponses() bool {
	return p.Bus.Any(isResponse)
}

// Receive consumes one response. A failed update is retried from Enabled.
func (p *PodLifecycle) Receive() bool {
	resp, ok := p.Bus.ReceiveMatching(isResponse)
	if !ok {
		return false
	}
	p.mu.Lock()
	if p.inflight[resp.Dst.Key] == resp.ID {
		delete(p.inflight, resp.Dst.Key)
	}
	p.mu.Unlock()
	if err := resp.Response.Err; err != nil {
		p.Log.V(1).Info("status update failed", "object", resp.Dst.Key.String(), "reason", resp.Response.Reason())
	}
	return true
}

func (p *PodLifecycle) Step() bool {
	if p.Receive() {
		return true
	}
	for _, key := range p.Enabled() {
		if p.StepKey(key) {
			return true
		}
	}
	return false
}

func (p *PodLifecycle) Run(ctx context.Context) error {
	for {
		changed := p.Bus.Changed()
		for p.Step() {
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}
