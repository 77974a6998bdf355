// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package gc is the garbage collector: it deletes objects whose owner
// references all point at objects that no longer exist.
package gc

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/pkg/object"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

const Name = "garbage-collector"

// Snapshotter is the part of the store the collector reads.
type Snapshotter interface {
	Snapshot() []object.Object
}

type GarbageCollector struct {
	Store   Snapshotter
	Bus     *message.Bus
	Log     logr.Logger
	Metrics *metrics.Metrics

	mu       sync.Mutex
	inflight map[object.Ref]uint64
}

func (g *GarbageCollector) endpoint(key object.Ref) message.Endpoint {
	return message.BuiltInEndpoint(Name, key)
}

// Enabled returns the keys of orphaned objects with no delete in flight,
// ordered by reference.
func (g *GarbageCollector) Enabled() []object.Ref {
	orphans := g.orphans()
	keys := make([]object.Ref, 0, len(orphans))
	for _, obj := range orphans {
		keys = append(keys, object.RefOf(obj))
	}
	return keys
}

// orphans judges every object of one snapshot.
func (g *GarbageCollector) orphans() []object.Object {
	snapshot := g.Store.Snapshot()
	live := make(map[object.Ref]object.Object, len(snapshot))
	for _, obj := range snapshot {
		live[object.RefOf(obj)] = obj
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	var out []object.Object
	for _, obj := range snapshot {
		if _, busy := g.inflight[object.RefOf(obj)]; busy {
			continue
		}
		if Orphaned(obj, live) {
			out = append(out, obj)
		}
	}
	return out
}

// Orphaned reports whether obj has owners and none of them is in live with
// the same uid.
func Orphaned(obj object.Object, live map[object.Ref]object.Object) bool {
	owners := obj.GetOwnerReferences()
	if len(owners) == 0 {
		return false
	}
	for _, owner := range owners {
		ref := object.Ref{Kind: owner.Kind, Namespace: obj.GetNamespace(), Name: owner.Name}
		if existing, ok := live[ref]; ok && existing.GetUID() == owner.UID {
			return false
		}
	}
	return true
}

// StepKey issues the delete for key if it is still orphaned. The delete is
// pinned to the uid of the object that was judged, so a recreated object
// survives.
func (g *GarbageCollector) StepKey(key object.Ref) bool {
	var obj object.Object
	for _, candidate := range g.orphans() {
		if object.RefOf(candidate) == key {
			obj = candidate
			break
		}
	}
	if obj == nil {
		return false
	}

	id := g.Bus.NextID()
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = map[object.Ref]uint64{}
	}
	if _, busy := g.inflight[key]; busy {
		g.mu.Unlock()
		return false
	}
	g.inflight[key] = id
	g.mu.Unlock()

	g.Bus.Send(message.Message{
		Src: g.endpoint(key),
		Dst: message.APIServerEndpoint(),
		ID:  id,
		Request: &message.Request{
			Verb:          message.Delete,
			Ref:           key,
			Preconditions: &metav1.Preconditions{UID: ptr.To(obj.GetUID())},
		},
	})
	g.Metrics.RecordGCDeletion()
	g.Log.Info("deleting orphaned object", "object", key.String(), "uid", obj.GetUID())
	return true
}

func isResponse(m message.Message) bool {
	return !m.IsRequest() && m.Dst.Kind == message.BuiltIn && m.Dst.Name == Name
}

// HasResponses reports whether an api-server answer for the collector is in
// flight.
func (g *GarbageCollector) HasResponses() bool {
	return g.Bus.Any(isResponse)
}

// Receive consumes one response addressed to the collector. Conflict and
// NotFound mean the object is already gone or was replaced.
func (g *GarbageCollector) Receive() bool {
	resp, ok := g.Bus.ReceiveMatching(isResponse)
	if !ok {
		return false
	}
	key := resp.Dst.Key
	g.mu.Lock()
	if g.inflight[key] == resp.ID {
		delete(g.inflight, key)
	}
	g.mu.Unlock()

	if err := resp.Response.Err; err != nil && !apierrors.IsConflict(err) && !apierrors.IsNotFound(err) {
		g.Log.Error(err, "failed to delete orphaned object", "object", key.String())
	}
	return true
}

// Step consumes a response or collects the first orphan.
func (g *GarbageCollector) Step() bool {
	if g.Receive() {
		return true
	}
	for _, key := range g.Enabled() {
		if g.StepKey(key) {
			return true
		}
	}
	return false
}

func (g *GarbageCollector) Run(ctx context.Context) error {
	for {
		changed := g.Bus.Changed()
		for g.Step() {
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}
