// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package pipeline walks the sub-resources of a CR in order: get each one,
// create or update it, then publish the CR status.
package pipeline

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/internal/status"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

const (
	stepInit              = "Init"
	stepAddFinalizer      = "AfterAddFinalizer"
	stepRemoveFinalizer   = "AfterRemoveFinalizer"
	stepAfterGet          = "AfterGet"
	stepAfterCreate       = "AfterCreate"
	stepAfterUpdate       = "AfterUpdate"
	stepAfterGetCR        = "AfterGetCR"
	stepAfterUpdateStatus = "AfterUpdateStatus"
	stepAfterReportError  = "AfterReportError"
)

var workloadKinds = []string{"StatefulSet", "DaemonSet"}

type Pipeline struct {
	CRKind   string
	Scheme   *runtime.Scheme
	Builders BuilderFactory
	// Status is optional.
	Status StatusFunc
	// Finalizer, when set, is added to every CR and removed once the CR is
	// being deleted.
	Finalizer string
	Now       func() time.Time
	Log       logr.Logger
}

// State is the pipeline position. It is a value; every transition returns a
// new one.
type State struct {
	reconciler.Phase
	step     string
	index    int
	desired  object.Object
	observed Observed
}

func (p *Pipeline) Kind() string {
	return p.CRKind
}

func (p *Pipeline) Init() reconciler.State {
	return State{Phase: reconciler.Phase{Name: stepInit}, step: stepInit}
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) Reconcile(cr object.Object, resp *message.Response, current reconciler.State) (reconciler.State, *message.Request) {
	state, ok := current.(State)
	if !ok {
		return reconciler.ErrorPhase(fmt.Errorf("unexpected state %T", current)), nil
	}
	typed, err := p.typedCR(cr)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}

	switch state.step {
	case stepInit:
		return p.init(cr, typed, state)
	case stepAddFinalizer:
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to add finalizer: %w", resp.Err)), nil
		}
		return p.startResource(cr, typed, state, 0)
	case stepRemoveFinalizer:
		if !resp.Ok() && !apierrors.IsNotFound(resp.Err) {
			return reconciler.ErrorPhase(fmt.Errorf("failed to remove finalizer: %w", resp.Err)), nil
		}
		return reconciler.DonePhase(), nil
	case stepAfterGet:
		return p.afterGet(cr, typed, state, resp)
	case stepAfterCreate, stepAfterUpdate:
		return p.afterWrite(cr, typed, state, resp)
	case stepAfterGetCR:
		return p.afterGetCR(cr, state, resp)
	case stepAfterUpdateStatus:
		if resp.Ok() {
			return reconciler.DonePhase(), nil
		}
		if apierrors.IsConflict(resp.Err) {
			return p.getCR(cr, state)
		}
		return reconciler.ErrorPhase(fmt.Errorf("failed to update status: %w", resp.Err)), nil
	case stepAfterReportError:
		return reconciler.ErrorPhase(state.Err), nil
	}
	return reconciler.ErrorPhase(fmt.Errorf("unknown step %q", state.step)), nil
}

// typedCR decodes cr and applies the kind defaults in memory.
func (p *Pipeline) typedCR(cr object.Object) (client.Object, error) {
	typed, err := object.ToTyped(cr, p.Scheme)
	if err != nil {
		return nil, err
	}
	if defaulter, ok := typed.(interface{ Default() }); ok {
		defaulter.Default()
	}
	return typed, nil
}

func (p *Pipeline) init(cr object.Object, typed client.Object, state State) (reconciler.State, *message.Request) {
	if object.IsDeleting(cr) {
		if p.Finalizer == "" || !object.HasFinalizer(cr, p.Finalizer) {
			return reconciler.DonePhase(), nil
		}
		next := cr.DeepCopy()
		controllerutil.RemoveFinalizer(next, p.Finalizer)
		p.Log.Info("removing finalizer", "namespace", cr.GetNamespace(), "name", cr.GetName())
		state.step = stepRemoveFinalizer
		state.Name = stepRemoveFinalizer
		return state, reconciler.UpdateRequest(next)
	}
	if p.Finalizer != "" && !object.HasFinalizer(cr, p.Finalizer) {
		next := cr.DeepCopy()
		controllerutil.AddFinalizer(next, p.Finalizer)
		state.step = stepAddFinalizer
		state.Name = stepAddFinalizer
		return state, reconciler.UpdateRequest(next)
	}
	return p.startResource(cr, typed, state, 0)
}

func (p *Pipeline) builder(typed client.Object, observed Observed, index int) (ResourceBuilder, bool) {
	builders := p.Builders(typed, observed)
	if index >= len(builders) {
		return nil, false
	}
	return builders[index], true
}

// startResource renders sub-resource index once and asks for the live copy.
func (p *Pipeline) startResource(cr object.Object, typed client.Object, state State, index int) (reconciler.State, *message.Request) {
	b, ok := p.builder(typed, state.observed, index)
	if !ok {
		return p.getCR(cr, state)
	}
	built, err := b.Build()
	if err != nil {
		return p.reportError(cr, state, fmt.Errorf("failed to build sub-resource %d: %w", index, err))
	}
	desired, err := object.FromTyped(built, p.Scheme)
	if err != nil {
		return p.reportError(cr, state, err)
	}
	state.index = index
	state.desired = desired
	return p.get(state)
}

func (p *Pipeline) get(state State) (reconciler.State, *message.Request) {
	ref := object.RefOf(state.desired)
	state.step = stepAfterGet
	state.Name = fmt.Sprintf("%s(%s/%s)", stepAfterGet, ref.Kind, ref.Name)
	return state, reconciler.GetRequest(ref)
}

func (p *Pipeline) afterGet(cr object.Object, typed client.Object, state State, resp *message.Response) (reconciler.State, *message.Request) {
	b, ok := p.builder(typed, state.observed, state.index)
	if !ok {
		return p.getCR(cr, state)
	}
	ref := object.RefOf(state.desired)

	if apierrors.IsNotFound(resp.Err) {
		obj, err := p.apply(b, state.desired)
		if err != nil {
			return p.reportError(cr, state, err)
		}
		state.step = stepAfterCreate
		state.Name = fmt.Sprintf("%s(%s/%s)", stepAfterCreate, ref.Kind, ref.Name)
		return state, reconciler.CreateRequest(obj)
	}
	if !resp.Ok() {
		return p.reportError(cr, state, fmt.Errorf("failed to get %s: %w", ref, resp.Err))
	}

	existing := resp.Object
	merged, err := p.apply(b, existing)
	if err != nil {
		return p.reportError(cr, state, err)
	}
	if object.ShapeEqual(existing, merged) {
		state.observed = state.observed.with(existing)
		return p.startResource(cr, typed, state, state.index+1)
	}
	p.Log.V(1).Info("updating sub-resource", "namespace", cr.GetNamespace(), "name", cr.GetName(),
		"object", ref.String(), "diff", cmp.Diff(object.Spec(existing), object.Spec(merged)))
	merged.SetResourceVersion(existing.GetResourceVersion())
	state.step = stepAfterUpdate
	state.Name = fmt.Sprintf("%s(%s/%s)", stepAfterUpdate, ref.Kind, ref.Name)
	return state, reconciler.GetThenUpdateRequest(merged, reconciler.ControllerRef(cr))
}

// apply runs the builder Update over a copy of base.
func (p *Pipeline) apply(b ResourceBuilder, base object.Object) (object.Object, error) {
	typed, err := object.ToTyped(base, p.Scheme)
	if err != nil {
		return nil, err
	}
	if err := b.Update(typed); err != nil {
		return nil, err
	}
	return object.FromTyped(typed, p.Scheme)
}

func (p *Pipeline) afterWrite(cr object.Object, typed client.Object, state State, resp *message.Response) (reconciler.State, *message.Request) {
	if resp.Ok() {
		state.observed = state.observed.with(resp.Object)
		return p.startResource(cr, typed, state, state.index+1)
	}
	if store.IsRetryable(resp.Err) {
		return p.get(state)
	}
	return p.reportError(cr, state, fmt.Errorf("failed to write %s: %w", object.RefOf(state.desired), resp.Err))
}

func (p *Pipeline) getCR(cr object.Object, state State) (reconciler.State, *message.Request) {
	state.step = stepAfterGetCR
	state.Name = stepAfterGetCR
	state.desired = nil
	return state, reconciler.GetRequest(object.RefOf(cr))
}

func (p *Pipeline) afterGetCR(cr object.Object, state State, resp *message.Response) (reconciler.State, *message.Request) {
	if apierrors.IsNotFound(resp.Err) {
		return reconciler.DonePhase(), nil
	}
	if !resp.Ok() {
		return reconciler.ErrorPhase(fmt.Errorf("failed to get %s: %w", object.RefOf(cr), resp.Err)), nil
	}
	fresh := resp.Object
	if fresh.GetUID() != cr.GetUID() || object.IsDeleting(fresh) {
		return reconciler.DonePhase(), nil
	}

	typed, err := object.ToTyped(fresh, p.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	conditioned, ok := typed.(v1beta1.Conditioned)
	if !ok {
		return reconciler.DonePhase(), nil
	}
	conditions := conditioned.GetConditions()
	conditions = status.Set(conditions, status.ReconcileSuccessCondition(corev1.ConditionTrue, "Success", "",
		status.Find(conditions, status.ReconcileSuccess), p.now))
	if workloads := state.observed.Typed(p.Scheme, workloadKinds...); len(workloads) > 0 {
		conditions = status.Set(conditions, status.AllReplicasReadyCondition(workloads,
			status.Find(conditions, status.AllReplicasReady), p.now))
	}
	conditioned.SetConditions(conditions)
	conditioned.SetObservedGeneration(fresh.GetGeneration())
	if p.Status != nil {
		if err := p.Status(typed, state.observed); err != nil {
			return reconciler.ErrorPhase(err), nil
		}
	}

	updated, err := object.FromTyped(typed, p.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	if object.StatusEqual(fresh, updated) {
		return reconciler.DonePhase(), nil
	}
	state.step = stepAfterUpdateStatus
	state.Name = stepAfterUpdateStatus
	return state, reconciler.UpdateStatusRequest(updated)
}

// reportError records the failure in the ReconcileSuccess condition of the
// snapshot and ends in Error whatever the answer.
func (p *Pipeline) reportError(cr object.Object, state State, cause error) (reconciler.State, *message.Request) {
	p.Log.Error(cause, "reconcile failed", "namespace", cr.GetNamespace(), "name", cr.GetName(), "step", state.Name)
	typed, err := object.ToTyped(cr, p.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(cause), nil
	}
	conditioned, ok := typed.(v1beta1.Conditioned)
	if !ok {
		return reconciler.ErrorPhase(cause), nil
	}
	reason := string(apierrors.ReasonForError(cause))
	if reason == "" {
		reason = "Error"
	}
	conditions := conditioned.GetConditions()
	conditioned.SetConditions(status.Set(conditions, status.ReconcileSuccessCondition(corev1.ConditionFalse, reason, cause.Error(),
		status.Find(conditions, status.ReconcileSuccess), p.now)))
	updated, err := object.FromTyped(typed, p.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(cause), nil
	}
	return State{
		Phase:    reconciler.Phase{Name: stepAfterReportError, Err: cause},
		step:     stepAfterReportError,
		observed: state.observed,
	}, reconciler.UpdateStatusRequest(updated)
}
