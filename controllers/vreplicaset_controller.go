// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/pkg/object"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	stepInit           = "Init"
	stepAfterListPods  = "AfterListPods"
	stepAfterCreatePod = "AfterCreatePod"
	stepAfterDeletePod = "AfterDeletePod"
)

// VReplicaSetReconciler keeps spec.replicas pods stamped from the template.
type VReplicaSetReconciler struct {
	Scheme *runtime.Scheme
	Log    logr.Logger
}

type vrsState struct {
	reconciler.Phase
	step string
	// remaining creates (positive) or deletes (negative) after the pending
	// request succeeds.
	remaining int
	// condemned pods, deleted front to back.
	condemned []object.Ref
}

func (r *VReplicaSetReconciler) Kind() string {
	return v1beta1.VReplicaSetKind
}

func (r *VReplicaSetReconciler) Init() reconciler.State {
	return vrsState{Phase: reconciler.Phase{Name: stepInit}, step: stepInit}
}

func (r *VReplicaSetReconciler) Reconcile(cr object.Object, resp *message.Response, current reconciler.State) (reconciler.State, *message.Request) {
	state, ok := current.(vrsState)
	if !ok {
		return reconciler.ErrorPhase(fmt.Errorf("unexpected state %T", current)), nil
	}
	vrs := &v1beta1.VReplicaSet{}
	if err := object.Into(cr, vrs); err != nil {
		return reconciler.ErrorPhase(err), nil
	}

	switch state.step {
	case stepInit:
		if object.IsDeleting(cr) {
			return reconciler.DonePhase(), nil
		}
		state.step = stepAfterListPods
		state.Name = stepAfterListPods
		return state, reconciler.ListRequest("Pod", cr.GetNamespace())

	case stepAfterListPods:
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to list pods: %w", resp.Err)), nil
		}
		selector, err := podSelector(vrs.Spec.Selector)
		if err != nil {
			return reconciler.ErrorPhase(err), nil
		}
		pods := activePods(resp.Items, cr, selector)
		diff := int(vrs.DesiredReplicas()) - len(pods)
		switch {
		case diff > 0:
			if vrs.Spec.Template == nil || !selector.Matches(labels.Set(vrs.Spec.Template.Labels)) {
				return reconciler.ErrorPhase(fmt.Errorf("template of %s is missing or not selected by its selector", object.RefOf(cr))), nil
			}
			r.Log.V(1).Info("creating pods", "namespace", cr.GetNamespace(), "name", cr.GetName(), "count", diff)
			return r.createPod(cr, vrs, state, diff)
		case diff < 0:
			r.Log.V(1).Info("deleting pods", "namespace", cr.GetNamespace(), "name", cr.GetName(), "count", -diff)
			for _, pod := range pods[:-diff] {
				state.condemned = append(state.condemned, object.RefOf(pod))
			}
			return r.deletePod(cr, state)
		}
		return reconciler.DonePhase(), nil

	case stepAfterCreatePod:
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to create pod: %w", resp.Err)), nil
		}
		if state.remaining == 0 {
			return reconciler.DonePhase(), nil
		}
		return r.createPod(cr, vrs, state, state.remaining)

	case stepAfterDeletePod:
		if !resp.Ok() && !apierrors.IsNotFound(resp.Err) {
			return reconciler.ErrorPhase(fmt.Errorf("failed to delete pod: %w", resp.Err)), nil
		}
		if len(state.condemned) == 0 {
			return reconciler.DonePhase(), nil
		}
		return r.deletePod(cr, state)
	}
	return reconciler.ErrorPhase(fmt.Errorf("unknown step %q", state.step)), nil
}

func (r *VReplicaSetReconciler) createPod(cr object.Object, vrs *v1beta1.VReplicaSet, state vrsState, count int) (reconciler.State, *message.Request) {
	pod := podFromTemplate(cr, vrs.Spec.Template)
	pod.GenerateName = cr.GetName() + "-"
	obj, err := object.FromTyped(pod, r.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	state.remaining = count - 1
	state.step = stepAfterCreatePod
	state.Name = fmt.Sprintf("%s(%d)", stepAfterCreatePod, count)
	return state, reconciler.CreateRequest(obj)
}

func (r *VReplicaSetReconciler) deletePod(cr object.Object, state vrsState) (reconciler.State, *message.Request) {
	ref := state.condemned[0]
	state.condemned = state.condemned[1:]
	state.step = stepAfterDeletePod
	state.Name = fmt.Sprintf("%s(%s)", stepAfterDeletePod, ref.Name)
	return state, reconciler.GetThenDeleteRequest(ref, reconciler.ControllerRef(cr))
}
