// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package apiserver validates requests from the bus, applies them to the
// store and answers each with exactly one response.
package apiserver

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

type APIServer struct {
	Store   *store.Store
	Bus     *message.Bus
	Types   registry.InstalledTypes
	Faults  FaultInjector
	Log     logr.Logger
	Metrics *metrics.Metrics
}

// Endpoint is the destination of every request the api-server serves.
func (a *APIServer) Endpoint() message.Endpoint {
	return message.APIServerEndpoint()
}

// Pending returns the in-flight requests addressed to the api-server, oldest
// first.
func (a *APIServer) Pending() []message.Message {
	var pending []message.Message
	for _, m := range a.Bus.Requests() {
		if m.Dst == a.Endpoint() {
			pending = append(pending, m)
		}
	}
	return pending
}

// Step handles one pending request. choose picks its index among Pending();
// nil picks the oldest. It returns false when nothing is pending.
func (a *APIServer) Step(choose func(n int) int) bool {
	pending := a.Pending()
	if len(pending) == 0 {
		return false
	}
	i := 0
	if choose != nil {
		i = choose(len(pending))
	}
	return a.HandleID(pending[i].ID)
}

// HandleID handles the pending request with the given id.
func (a *APIServer) HandleID(id uint64) bool {
	req, ok := a.Bus.Receive(id, a.Endpoint())
	if !ok || !req.IsRequest() {
		return false
	}
	a.Bus.Send(message.Reply(req, a.Handle(req.Request)))
	return true
}

// Run serves requests until ctx is done.
func (a *APIServer) Run(ctx context.Context) error {
	for {
		changed := a.Bus.Changed()
		for a.Step(nil) {
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}

// Handle applies one request. Invalid objects are rejected with BadRequest
// before the store is touched.
func (a *APIServer) Handle(req *message.Request) *message.Response {
	resp := &message.Response{Verb: req.Verb}
	if a.Faults != nil {
		resp.Err = a.Faults.Inject(req)
	}
	if resp.Err == nil {
		resp.Object, resp.Items, resp.Err = a.handle(req)
	}
	a.Metrics.RecordRequest(string(req.Verb), string(resp.Reason()))
	a.Log.V(1).Info("handled request", "verb", req.Verb, "object", req.Ref.String(), "reason", resp.Reason())
	return resp
}

func (a *APIServer) handle(req *message.Request) (object.Object, []object.Object, error) {
	switch req.Verb {
	case message.Get:
		obj, err := a.Store.Get(req.Ref)
		return obj, nil, err

	case message.List:
		if _, err := a.Types.Lookup(req.Ref.Kind); err != nil {
			return nil, nil, err
		}
		return nil, a.Store.List(req.Ref.Kind, req.Ref.Namespace), nil

	case message.Create:
		if err := a.validate(req.Object); err != nil {
			return nil, nil, err
		}
		obj, err := a.Store.Create(req.Object)
		return obj, nil, err

	case message.Update, message.GetThenUpdate:
		if req.Object == nil {
			return nil, nil, apierrors.NewBadRequest("update without an object")
		}
		if req.Verb == message.GetThenUpdate && req.Owner == nil {
			return nil, nil, apierrors.NewBadRequest("GetThenUpdate without an owner")
		}
		ref := object.RefOf(req.Object)
		if req.Verb == message.GetThenUpdate {
			ref = req.Ref
		}
		old, err := a.Store.Get(ref)
		if err != nil {
			return nil, nil, err
		}
		if err := a.validateUpdate(old, req.Object); err != nil {
			return nil, nil, err
		}
		var obj object.Object
		if req.Verb == message.GetThenUpdate {
			obj, err = a.Store.GetThenUpdate(ref, *req.Owner, req.Object)
		} else {
			obj, err = a.Store.Update(req.Object)
		}
		return obj, nil, err

	case message.UpdateStatus:
		if req.Object == nil {
			return nil, nil, apierrors.NewBadRequest("status update without an object")
		}
		old, err := a.Store.Get(object.RefOf(req.Object))
		if err != nil {
			return nil, nil, err
		}
		candidate := old.DeepCopy()
		object.SetStatus(candidate, object.Status(req.Object))
		if err := a.validate(candidate); err != nil {
			return nil, nil, err
		}
		obj, err := a.Store.UpdateStatus(req.Object)
		return obj, nil, err

	case message.Delete:
		return nil, nil, a.Store.Delete(req.Ref, req.Preconditions)

	case message.GetThenDelete:
		if req.Owner == nil {
			return nil, nil, apierrors.NewBadRequest("GetThenDelete without an owner")
		}
		return nil, nil, a.Store.GetThenDelete(req.Ref, *req.Owner)
	}
	return nil, nil, apierrors.NewBadRequest(fmt.Sprintf("unknown verb %q", req.Verb))
}

func (a *APIServer) validate(obj object.Object) error {
	if obj == nil {
		return apierrors.NewBadRequest("request without an object")
	}
	info, err := a.Types.Lookup(obj.GetKind())
	if err != nil {
		return err
	}
	if obj.GetName() == "" && obj.GetGenerateName() == "" {
		return apierrors.NewBadRequest(fmt.Sprintf("%s: name or generateName is required", obj.GetKind()))
	}
	if object.CountControllers(obj) > 1 {
		return apierrors.NewBadRequest(fmt.Sprintf("%s has more than one controller owner reference", object.RefOf(obj)))
	}
	if info.Validate != nil {
		if err := info.Validate(obj); err != nil {
			return apierrors.NewBadRequest(err.Error())
		}
	}
	return nil
}

func (a *APIServer) validateUpdate(old, new object.Object) error {
	if err := a.validate(new); err != nil {
		return err
	}
	info, err := a.Types.Lookup(new.GetKind())
	if err != nil {
		return err
	}
	if info.ValidateTransition != nil {
		if err := info.ValidateTransition(old, new); err != nil {
			return apierrors.NewBadRequest(err.Error())
		}
	}
	return nil
}
