// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package reconciler defines the step function every controller implements.
// A reconcile is a sequence of Reconcile calls; each call sees the answer to
// the request emitted by the previous one and may emit at most one more.
package reconciler

import (
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/pkg/object"
)

type Outcome string

const (
	Running Outcome = "Running"
	Done    Outcome = "Done"
	Error   Outcome = "Error"
)

type State interface {
	// Step names the step the state machine is in, e.g. AfterGet(Service/r-nodes).
	Step() string
	Outcome() Outcome
}

type Reconciler interface {
	// Kind is the CR kind the reconciler is triggered by.
	Kind() string
	Init() State
	// Reconcile advances state. resp is the answer to the request emitted by
	// the previous call, or nil if there was none. It must not touch the store.
	Reconcile(cr object.Object, resp *message.Response, state State) (State, *message.Request)
}

// Phase is the part of a state every reconciler shares.
type Phase struct {
	Name   string
	Result Outcome
	Err    error
}

func (p Phase) Step() string {
	return p.Name
}

func (p Phase) Outcome() Outcome {
	if p.Result == "" {
		return Running
	}
	return p.Result
}

// Terminal reports whether state ended the reconcile.
func Terminal(state State) bool {
	return state.Outcome() != Running
}

// Err returns the error carried by a failed state, if it exposes one.
func Err(state State) error {
	if carrier, ok := state.(interface{ Failure() error }); ok {
		return carrier.Failure()
	}
	return nil
}

func (p Phase) Failure() error {
	return p.Err
}

func DonePhase() Phase {
	return Phase{Name: "Done", Result: Done}
}

func ErrorPhase(err error) Phase {
	return Phase{Name: "Error", Result: Error, Err: err}
}
