// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"fmt"
	"math/rand"

	"github.com/vreconcile/operators/pkg/object"
)

// ExploreOptions bounds a random walk.
type ExploreOptions struct {
	Steps int
	// CrashOneIn crashes and restarts a random controller with probability
	// 1/CrashOneIn per step. Zero never crashes.
	CrashOneIn int
}

type action struct {
	name string
	do   func() bool
}

// enabled lists every atomic action the system can take now.
func (c *Cluster) enabled() []action {
	var actions []action
	for _, m := range c.APIServer.Pending() {
		id := m.ID
		actions = append(actions, action{fmt.Sprintf("serve %s", m), func() bool { return c.APIServer.HandleID(id) }})
	}
	if c.GC != nil {
		if c.GC.HasResponses() {
			actions = append(actions, action{"gc receive", c.GC.Receive})
		}
		for _, key := range c.GC.Enabled() {
			actions = append(actions, action{"gc " + key.String(), func() bool { return c.GC.StepKey(key) }})
		}
	}
	if c.Pods != nil {
		if c.Pods.HasResponses() {
			actions = append(actions, action{"pods receive", c.Pods.Receive})
		}
		for _, key := range c.Pods.Enabled() {
			actions = append(actions, action{"pods " + key.String(), func() bool { return c.Pods.StepKey(key) }})
		}
	}
	for _, ctrl := range c.Controllers {
		ctrl.Tick()
		if ctrl.HasStale() {
			actions = append(actions, action{ctrl.Name + " discard", ctrl.DiscardStale})
		}
		for _, key := range ctrl.Continuable() {
			actions = append(actions, action{fmt.Sprintf("%s continue %s", ctrl.Name, key), func() bool { return ctrl.Continue(key) }})
		}
		ongoing := ctrl.Ongoing()
		for _, key := range ctrl.Scheduled() {
			if _, running := ongoing[key]; running {
				continue
			}
			actions = append(actions, action{fmt.Sprintf("%s pickup %s", ctrl.Name, key), func() bool { return ctrl.Pickup(key) }})
		}
	}
	return actions
}

// Explore takes random enabled actions, checking the safety invariants
// after each one. Time jumps to the next delayed reconcile whenever nothing
// else is enabled. It returns the number of actions taken.
func (c *Cluster) Explore(rng *rand.Rand, opts ExploreOptions) (int, error) {
	if err := c.CheckInvariants(); err != nil {
		return 0, err
	}
	taken := 0
	for taken < opts.Steps {
		if opts.CrashOneIn > 0 && len(c.Controllers) > 0 && rng.Intn(opts.CrashOneIn) == 0 {
			ctrl := c.Controllers[rng.Intn(len(c.Controllers))]
			ctrl.Crash()
			ctrl.Restart()
			taken++
			if err := c.CheckInvariants(); err != nil {
				return taken, fmt.Errorf("after crashing %s: %w (in flight: %v)", ctrl.Name, err, describe(c.Bus.Messages()))
			}
			continue
		}

		actions := c.enabled()
		if len(actions) == 0 {
			at, ok := c.nextWakeup(false)
			if !ok {
				return taken, nil
			}
			if wait := at.Sub(c.clock.Now()); wait > 0 {
				c.clock.Sleep(wait)
			}
			continue
		}
		a := actions[rng.Intn(len(actions))]
		if !a.do() {
			continue
		}
		taken++
		if err := c.CheckInvariants(); err != nil {
			return taken, fmt.Errorf("after %q: %w (in flight: %v)", a.name, err, describe(c.Bus.Messages()))
		}
	}
	return taken, nil
}

// Objects returns the stored objects of kind in namespace.
func (c *Cluster) Objects(kind, namespace string) []object.Object {
	return c.Store.List(kind, namespace)
}
