// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"errors"
	"fmt"

	"github.com/vreconcile/operators/internal/builtin/gc"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/types"
)

type version struct {
	uid types.UID
	rv  uint64
}

// CheckInvariants verifies the safety properties of the current state.
//
// Message ids are unique and allocated. No object has two controllers, and
// uids, controller owner uids included, come from the uid counter. Resource
// versions only grow. No key is both scheduled and ongoing, and every
// waiting reconcile has exactly one message in flight. A garbage collector
// delete targets an object whose owners are all gone; it is judged against
// the state of the first call that sees it, so callers check after every
// step for this to be exact.
func (c *Cluster) CheckInvariants() error {
	var errs []error

	counter := c.Bus.IDCounter()
	ids := map[uint64]bool{}
	messages := c.Bus.Messages()
	for _, m := range messages {
		if ids[m.ID] {
			errs = append(errs, fmt.Errorf("message id %d is in flight twice", m.ID))
		}
		ids[m.ID] = true
		if m.ID >= counter {
			errs = append(errs, fmt.Errorf("message id %d was never allocated (next %d)", m.ID, counter))
		}
	}

	uidCounter, _ := c.Store.Counters()
	allocated := func(uid types.UID) bool {
		n, err := object.ParseUID(uid)
		return err == nil && n < uidCounter
	}
	snapshot := c.Store.Snapshot()
	live := make(map[object.Ref]object.Object, len(snapshot))
	for _, obj := range snapshot {
		live[object.RefOf(obj)] = obj
	}
	for _, obj := range snapshot {
		ref := object.RefOf(obj)
		if n := object.CountControllers(obj); n > 1 {
			errs = append(errs, fmt.Errorf("%s has %d controller owners", ref, n))
		}
		if !allocated(obj.GetUID()) {
			errs = append(errs, fmt.Errorf("%s has uid %q outside the allocated range", ref, obj.GetUID()))
		}
		if owner := object.ControllerOf(obj); owner != nil && !allocated(owner.UID) {
			errs = append(errs, fmt.Errorf("%s is controlled by uid %q outside the allocated range", ref, owner.UID))
		}
		current := version{uid: obj.GetUID(), rv: object.ResourceVersion(obj)}
		if last, ok := c.seen[ref]; ok && last.uid == current.uid && current.rv < last.rv {
			errs = append(errs, fmt.Errorf("%s resourceVersion went from %d to %d", ref, last.rv, current.rv))
		}
		c.seen[ref] = current
	}

	errs = append(errs, c.checkCollectorDeletes(messages, live)...)

	for _, ctrl := range c.Controllers {
		ongoing := ctrl.Ongoing()
		for _, key := range ctrl.Scheduled() {
			if _, running := ongoing[key]; running {
				errs = append(errs, fmt.Errorf("%s/%s is both scheduled and ongoing", ctrl.Name, key))
			}
		}
		for key, inst := range ongoing {
			if !inst.HasPending {
				continue
			}
			endpoint := ctrl.Endpoint(key)
			n := 0
			for _, m := range messages {
				if m.ID != inst.PendingID {
					continue
				}
				if (m.IsRequest() && m.Src == endpoint) || (!m.IsRequest() && m.Dst == endpoint) {
					n++
				}
			}
			if n != 1 {
				errs = append(errs, fmt.Errorf("%s/%s waits on message %d but %d are in flight", ctrl.Name, key, inst.PendingID, n))
			}
		}
	}
	return errors.Join(errs...)
}

// checkCollectorDeletes judges each garbage collector delete the first time
// it is seen: the object it is pinned to must exist and be orphaned.
func (c *Cluster) checkCollectorDeletes(messages []message.Message, live map[object.Ref]object.Object) []error {
	var errs []error
	inFlight := map[uint64]bool{}
	for _, m := range messages {
		if !m.IsRequest() || m.Src.Kind != message.BuiltIn || m.Src.Name != gc.Name || m.Request.Verb != message.Delete {
			continue
		}
		inFlight[m.ID] = true
		if c.judged[m.ID] {
			continue
		}
		c.judged[m.ID] = true
		ref := m.Request.Ref
		obj, ok := live[ref]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("garbage collector deletes %s which does not exist", ref))
		case m.Request.Preconditions == nil || m.Request.Preconditions.UID == nil:
			errs = append(errs, fmt.Errorf("garbage collector deletes %s without a uid precondition", ref))
		case *m.Request.Preconditions.UID != obj.GetUID():
			errs = append(errs, fmt.Errorf("garbage collector delete of %s is pinned to uid %q but the object has %q", ref, *m.Request.Preconditions.UID, obj.GetUID()))
		case !gc.Orphaned(obj, live):
			errs = append(errs, fmt.Errorf("garbage collector deletes %s which has a live owner", ref))
		}
	}
	for id := range c.judged {
		if !inFlight[id] {
			delete(c.judged, id)
		}
	}
	return errs
}

func describe(messages []message.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.String())
	}
	return out
}
