// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package controller runs reconcilers: it schedules CR keys, drives one
// reconcile instance per key a step at a time and tracks the single request
// each instance has in flight.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
)

// Instance is one reconcile in progress.
type Instance struct {
	CR        object.Object
	State     reconciler.State
	Pending   *message.Request
	PendingID uint64
	// HasPending is true while the instance waits for an answer.
	HasPending bool
}

type Controller struct {
	Name       string
	Reconciler reconciler.Reconciler
	Store      *store.Store
	Bus        *message.Bus
	Log        logr.Logger
	Recorder   record.EventRecorder
	Metrics    *metrics.Metrics
	Clock      clock.Clock
	// RequeueAfter schedules a periodic reconcile after every Done. Zero
	// disables it.
	RequeueAfter time.Duration
	// WatchOwned triggers a reconcile of the controlling CR when an object it
	// owns changes.
	WatchOwned bool

	mu        sync.Mutex
	scheduler *scheduler
	ongoing   map[object.Ref]*Instance
}

// Setup subscribes the controller to the store and schedules the CRs that
// already exist.
func (c *Controller) Setup() error {
	if c.Reconciler == nil || c.Store == nil || c.Bus == nil {
		return fmt.Errorf("controller %q: reconciler, store and bus are required", c.Name)
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Recorder == nil {
		c.Recorder = &record.FakeRecorder{}
	}
	c.mu.Lock()
	c.scheduler = newScheduler(c.Clock)
	c.ongoing = map[object.Ref]*Instance{}
	c.mu.Unlock()

	c.Store.Watch(c.onEvent)
	c.Restart()
	return nil
}

func (c *Controller) Kind() string {
	return c.Reconciler.Kind()
}

func (c *Controller) Endpoint(key object.Ref) message.Endpoint {
	return message.ControllerEndpoint(c.Name, key)
}

func (c *Controller) onEvent(event store.Event) {
	obj := event.Object
	if obj.GetKind() == c.Kind() {
		switch event.Type {
		case store.Added:
			c.trigger(obj)
		case store.Modified:
			if obj.GetGeneration() != event.Old.GetGeneration() ||
				(object.IsDeleting(obj) && !object.IsDeleting(event.Old)) {
				c.trigger(obj)
			}
		case store.Deleted:
			c.mu.Lock()
			c.scheduler.forget(object.RefOf(obj))
			c.mu.Unlock()
		}
		return
	}

	if !c.WatchOwned {
		return
	}
	owner := object.ControllerOf(obj)
	if owner == nil && event.Old != nil {
		owner = object.ControllerOf(event.Old)
	}
	if owner == nil || owner.Kind != c.Kind() {
		return
	}
	cr, err := c.Store.Get(object.Ref{Kind: c.Kind(), Namespace: obj.GetNamespace(), Name: owner.Name})
	if err != nil || cr.GetUID() != owner.UID {
		return
	}
	c.trigger(cr)
}

// trigger schedules cr, or marks it when a reconcile is already running.
func (c *Controller) trigger(cr object.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := object.RefOf(cr)
	if _, running := c.ongoing[key]; running {
		c.scheduler.mark(key)
		return
	}
	c.scheduler.schedule(cr)
}

// Tick moves delayed keys whose time has come into the scheduled set, using
// the latest copy of each CR.
func (c *Controller) Tick() {
	c.mu.Lock()
	keys := c.scheduler.due()
	c.mu.Unlock()
	for _, key := range keys {
		cr, err := c.Store.Get(key)
		if err != nil {
			continue
		}
		c.trigger(cr)
	}
}

// NextWakeup returns the earliest delayed reconcile, optionally considering
// back-offs only.
func (c *Controller) NextWakeup(backoffOnly bool) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler.next(backoffOnly)
}

// Scheduled returns the keys waiting for pickup.
func (c *Controller) Scheduled() []object.Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler.keys()
}

// Ongoing returns a copy of every running instance.
func (c *Controller) Ongoing() map[object.Ref]Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[object.Ref]Instance, len(c.ongoing))
	for key, inst := range c.ongoing {
		out[key] = *inst
	}
	return out
}

// Continuable returns the running instances that can take a step: those
// without a pending request and those whose answer has arrived.
func (c *Controller) Continuable() []object.Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []object.Ref
	for key, inst := range c.ongoing {
		if !inst.HasPending || c.hasResponse(key, inst.PendingID) {
			keys = append(keys, key)
		}
	}
	sortRefs(keys)
	return keys
}

func (c *Controller) hasResponse(key object.Ref, id uint64) bool {
	endpoint := c.Endpoint(key)
	return c.Bus.Any(func(m message.Message) bool {
		return !m.IsRequest() && m.ID == id && m.Dst == endpoint
	})
}

// Pickup starts a reconcile for a scheduled key that is not running.
func (c *Controller) Pickup(key object.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, running := c.ongoing[key]; running {
		return false
	}
	cr, ok := c.scheduler.take(key)
	if !ok {
		return false
	}
	c.ongoing[key] = &Instance{CR: cr, State: c.Reconciler.Init()}
	c.Metrics.SetOngoing(c.Name, len(c.ongoing))
	c.Log.V(1).Info("reconcile started", "namespace", key.Namespace, "name", key.Name)
	return true
}

// Continue takes one step of the instance for key.
func (c *Controller) Continue(key object.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.ongoing[key]
	if !ok {
		return false
	}

	var resp *message.Response
	if inst.HasPending {
		msg, ok := c.Bus.Receive(inst.PendingID, c.Endpoint(key))
		if !ok {
			return false
		}
		resp = msg.Response
		c.recordResponse(inst, resp)
	}

	state, req := c.Reconciler.Reconcile(inst.CR, resp, inst.State)
	c.Metrics.RecordStep(c.Name)
	inst.State = state
	inst.Pending = nil
	inst.PendingID = 0
	inst.HasPending = false

	if reconciler.Terminal(state) {
		c.end(key, inst)
		return true
	}
	if req != nil {
		inst.Pending = req
		inst.PendingID = c.Bus.NextID()
		inst.HasPending = true
		c.Bus.Send(message.Message{
			Src:     c.Endpoint(key),
			Dst:     message.APIServerEndpoint(),
			ID:      inst.PendingID,
			Request: req,
		})
	}
	return true
}

func (c *Controller) recordResponse(inst *Instance, resp *message.Response) {
	if !resp.Ok() || inst.Pending == nil || object.RefOf(inst.CR) == inst.Pending.Ref {
		return
	}
	var reason string
	switch inst.Pending.Verb {
	case message.Create:
		reason = "SuccessfulCreate"
	case message.Update, message.GetThenUpdate:
		reason = "SuccessfulUpdate"
	case message.Delete, message.GetThenDelete:
		reason = "SuccessfulDelete"
	default:
		return
	}
	c.Recorder.Event(inst.CR, corev1.EventTypeNormal, reason,
		fmt.Sprintf("%s %s", reason, inst.Pending.Ref))
}

// end removes a finished instance. Error backs off; marked keys are
// scheduled again straight away.
func (c *Controller) end(key object.Ref, inst *Instance) {
	delete(c.ongoing, key)
	outcome := inst.State.Outcome()
	c.Metrics.RecordReconcile(c.Name, string(outcome))
	c.Metrics.SetOngoing(c.Name, len(c.ongoing))

	switch outcome {
	case reconciler.Error:
		err := reconciler.Err(inst.State)
		wait := c.scheduler.backoff(key)
		c.Recorder.Event(inst.CR, corev1.EventTypeWarning, "ReconcileError", fmt.Sprint(err))
		c.Log.Info("reconcile failed", "namespace", key.Namespace, "name", key.Name, "error", fmt.Sprint(err), "retryAfter", wait)
	default:
		c.scheduler.succeeded(key)
		if c.RequeueAfter > 0 {
			c.scheduler.requeue(key, c.RequeueAfter)
		}
		c.Log.V(1).Info("reconcile finished", "namespace", key.Namespace, "name", key.Name)
	}

	if c.scheduler.takeMark(key) {
		if cr, err := c.Store.Get(key); err == nil {
			c.scheduler.schedule(cr)
		}
	}
}

// HasStale reports whether a response addressed to this controller can
// never be consumed.
func (c *Controller) HasStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Bus.Any(c.isStale)
}

// DiscardStale drops one stale response.
func (c *Controller) DiscardStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.Bus.ReceiveMatching(c.isStale)
	if ok {
		c.Log.V(1).Info("discarded stale response", "message", msg.String())
	}
	return ok
}

// isStale must be called with c.mu held.
func (c *Controller) isStale(m message.Message) bool {
	if m.IsRequest() || m.Dst.Kind != message.Controller || m.Dst.Name != c.Name {
		return false
	}
	inst, ok := c.ongoing[m.Dst.Key]
	return !ok || !inst.HasPending || inst.PendingID != m.ID
}

// Crash forgets every running and scheduled reconcile.
func (c *Controller) Crash() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ongoing = map[object.Ref]*Instance{}
	c.scheduler.reset()
	c.Metrics.SetOngoing(c.Name, 0)
	c.Log.Info("controller crashed")
}

// Restart schedules every CR of the kind found in the store.
func (c *Controller) Restart() {
	crs := c.Store.List(c.Kind(), "")
	for _, cr := range crs {
		c.trigger(cr)
	}
}

// Step takes one action: drop a stale response, continue an instance, or
// pick up a key. It returns false when nothing is enabled.
func (c *Controller) Step() bool {
	c.Tick()
	if c.DiscardStale() {
		return true
	}
	for _, key := range c.Continuable() {
		if c.Continue(key) {
			return true
		}
	}
	for _, key := range c.Scheduled() {
		if c.Pickup(key) {
			return true
		}
	}
	return false
}

func (c *Controller) Run(ctx context.Context) error {
	for {
		changed := c.Bus.Changed()
		for c.Step() {
		}
		var timer <-chan time.Time
		if at, ok := c.NextWakeup(false); ok {
			timer = c.Clock.After(at.Sub(c.Clock.Now()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		case <-timer:
		}
	}
}
