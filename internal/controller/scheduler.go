// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controller

import (
	"sort"
	"time"

	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/utils/clock"
)

const (
	baseBackoff = 5 * time.Millisecond
	maxBackoff  = 1000 * time.Second
)

type delayed struct {
	at      time.Time
	backoff bool
}

// scheduler holds the keys waiting for a reconcile. It is guarded by the
// controller mutex.
type scheduler struct {
	clock     clock.PassiveClock
	limiter   workqueue.TypedRateLimiter[object.Ref]
	scheduled map[object.Ref]object.Object
	marked    sets.Set[object.Ref]
	delayed   map[object.Ref]delayed
}

func newScheduler(clk clock.PassiveClock) *scheduler {
	return &scheduler{
		clock:     clk,
		limiter:   workqueue.NewTypedItemExponentialFailureRateLimiter[object.Ref](baseBackoff, maxBackoff),
		scheduled: map[object.Ref]object.Object{},
		marked:    sets.New[object.Ref](),
		delayed:   map[object.Ref]delayed{},
	}
}

// schedule stores the latest snapshot of cr; a pending delay is superseded.
func (s *scheduler) schedule(cr object.Object) {
	key := object.RefOf(cr)
	s.scheduled[key] = cr.DeepCopy()
	delete(s.delayed, key)
}

func (s *scheduler) mark(key object.Ref) {
	s.marked.Insert(key)
}

// takeMark reports whether key was marked and clears the mark.
func (s *scheduler) takeMark(key object.Ref) bool {
	if !s.marked.Has(key) {
		return false
	}
	s.marked.Delete(key)
	return true
}

func (s *scheduler) take(key object.Ref) (object.Object, bool) {
	cr, ok := s.scheduled[key]
	if ok {
		delete(s.scheduled, key)
	}
	return cr, ok
}

// forget drops every trace of key.
func (s *scheduler) forget(key object.Ref) {
	delete(s.scheduled, key)
	delete(s.delayed, key)
	s.marked.Delete(key)
	s.limiter.Forget(key)
}

func (s *scheduler) backoff(key object.Ref) time.Duration {
	wait := s.limiter.When(key)
	s.delayed[key] = delayed{at: s.clock.Now().Add(wait), backoff: true}
	return wait
}

func (s *scheduler) succeeded(key object.Ref) {
	s.limiter.Forget(key)
}

func (s *scheduler) requeue(key object.Ref, after time.Duration) {
	at := s.clock.Now().Add(after)
	if existing, ok := s.delayed[key]; ok && existing.at.Before(at) {
		return
	}
	s.delayed[key] = delayed{at: at}
}

// due removes and returns the delayed keys whose time has come.
func (s *scheduler) due() []object.Ref {
	now := s.clock.Now()
	var keys []object.Ref
	for key, d := range s.delayed {
		if !d.at.After(now) {
			keys = append(keys, key)
			delete(s.delayed, key)
		}
	}
	sortRefs(keys)
	return keys
}

// next returns the earliest delayed time, optionally only among back-offs.
func (s *scheduler) next(backoffOnly bool) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, d := range s.delayed {
		if backoffOnly && !d.backoff {
			continue
		}
		if !found || d.at.Before(earliest) {
			earliest = d.at
			found = true
		}
	}
	return earliest, found
}

func (s *scheduler) keys() []object.Ref {
	keys := make([]object.Ref, 0, len(s.scheduled))
	for key := range s.scheduled {
		keys = append(keys, key)
	}
	sortRefs(keys)
	return keys
}

func (s *scheduler) reset() {
	*s = *newScheduler(s.clock)
}

func sortRefs(refs []object.Ref) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
}
