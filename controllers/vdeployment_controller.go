// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
)

const (
	// PodTemplateHashLabel tells apart the pods and replica sets of successive
	// templates of one VDeployment.
	PodTemplateHashLabel = "pod-template-hash"
	// RevisionAnnotation numbers the templates a VDeployment has rolled out.
	RevisionAnnotation = "vdeployment.vreconcile.io/revision"

	stepAfterListVRS         = "AfterListVRS"
	stepAfterCreateNewVRS    = "AfterCreateNewVRS"
	stepAfterScaleNewVRS     = "AfterScaleNewVRS"
	stepAfterEnsureNewVRS    = "AfterEnsureNewVRS"
	stepAfterScaleDownOldVRS = "AfterScaleDownOldVRS"
)

// VDeploymentReconciler runs one VReplicaSet per pod template: the one for
// the current template is scaled to spec.replicas, every older one to zero.
type VDeploymentReconciler struct {
	Scheme *runtime.Scheme
	Log    logr.Logger
}

type vdState struct {
	reconciler.Phase
	step string
	// old replica sets still running pods, scaled down front to back.
	old []object.Object
}

func (r *VDeploymentReconciler) Kind() string {
	return v1beta1.VDeploymentKind
}

func (r *VDeploymentReconciler) Init() reconciler.State {
	return vdState{Phase: reconciler.Phase{Name: stepInit}, step: stepInit}
}

func (r *VDeploymentReconciler) Reconcile(cr object.Object, resp *message.Response, current reconciler.State) (reconciler.State, *message.Request) {
	state, ok := current.(vdState)
	if !ok {
		return reconciler.ErrorPhase(fmt.Errorf("unexpected state %T", current)), nil
	}
	vd := &v1beta1.VDeployment{}
	if err := object.Into(cr, vd); err != nil {
		return reconciler.ErrorPhase(err), nil
	}

	switch state.step {
	case stepInit:
		if object.IsDeleting(cr) {
			return reconciler.DonePhase(), nil
		}
		return r.list(cr)

	case stepAfterListVRS:
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to list replica sets: %w", resp.Err)), nil
		}
		return r.afterList(cr, vd, state, resp.Items)

	case stepAfterCreateNewVRS, stepAfterScaleNewVRS, stepAfterEnsureNewVRS:
		// A name taken by a replica set this deployment does not control is
		// not retried within the reconcile.
		if apierrors.IsConflict(resp.Err) {
			return r.list(cr)
		}
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("%s: %w", state.step, resp.Err)), nil
		}
		return r.scaleDownOld(cr, state)

	case stepAfterScaleDownOldVRS:
		if apierrors.IsConflict(resp.Err) {
			return r.list(cr)
		}
		if !resp.Ok() && !apierrors.IsNotFound(resp.Err) {
			return reconciler.ErrorPhase(fmt.Errorf("failed to scale down replica set: %w", resp.Err)), nil
		}
		return r.scaleDownOld(cr, state)
	}
	return reconciler.ErrorPhase(fmt.Errorf("unknown step %q", state.step)), nil
}

// list starts over from a fresh list of replica sets.
func (r *VDeploymentReconciler) list(cr object.Object) (reconciler.State, *message.Request) {
	return vdState{
		Phase: reconciler.Phase{Name: stepAfterListVRS},
		step:  stepAfterListVRS,
	}, reconciler.ListRequest(v1beta1.VReplicaSetKind, cr.GetNamespace())
}

// afterList finds the replica set of the current template among the owned
// ones and brings it to spec.replicas.
func (r *VDeploymentReconciler) afterList(cr object.Object, vd *v1beta1.VDeployment, state vdState, items []object.Object) (reconciler.State, *message.Request) {
	var (
		newVRS      *v1beta1.VReplicaSet
		maxRevision int64
		old         []object.Object
	)
	for _, item := range items {
		if !controlledBy(item, cr) || object.IsDeleting(item) {
			continue
		}
		vrs := &v1beta1.VReplicaSet{}
		if err := object.Into(item, vrs); err != nil {
			return reconciler.ErrorPhase(err), nil
		}
		if revision, err := strconv.ParseInt(vrs.Annotations[RevisionAnnotation], 10, 64); err == nil && revision > maxRevision {
			maxRevision = revision
		}
		if newVRS == nil && sameTemplate(vrs.Spec.Template, &vd.Spec.Template) {
			newVRS = vrs
			continue
		}
		if vrs.DesiredReplicas() > 0 {
			old = append(old, item)
		}
	}
	state.old = old

	if newVRS == nil {
		desired, err := r.newReplicaSet(cr, vd, maxRevision+1)
		if err != nil {
			return reconciler.ErrorPhase(err), nil
		}
		r.Log.V(1).Info("creating replica set", "namespace", cr.GetNamespace(), "name", cr.GetName(), "replicaSet", desired.GetName())
		state.step = stepAfterCreateNewVRS
		state.Name = fmt.Sprintf("%s(%s)", stepAfterCreateNewVRS, desired.GetName())
		return state, reconciler.CreateRequest(desired)
	}

	needsScale := newVRS.DesiredReplicas() != vd.DesiredReplicas()
	// The current template is always the newest revision, also after a
	// rollback to the template of an older replica set.
	needsRevision := newVRS.Annotations[RevisionAnnotation] != strconv.FormatInt(maxRevision, 10)
	if !needsScale && !needsRevision {
		return r.scaleDownOld(cr, state)
	}

	if newVRS.Annotations == nil {
		newVRS.Annotations = map[string]string{}
	}
	if needsRevision {
		newVRS.Annotations[RevisionAnnotation] = strconv.FormatInt(maxRevision+1, 10)
	}
	newVRS.Spec.Replicas = ptr.To(vd.DesiredReplicas())
	updated, err := object.FromTyped(newVRS, r.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	state.step = stepAfterEnsureNewVRS
	if needsScale {
		state.step = stepAfterScaleNewVRS
	}
	state.Name = fmt.Sprintf("%s(%s)", state.step, newVRS.Name)
	return state, reconciler.GetThenUpdateRequest(updated, reconciler.ControllerRef(cr))
}

func (r *VDeploymentReconciler) scaleDownOld(cr object.Object, state vdState) (reconciler.State, *message.Request) {
	if len(state.old) == 0 {
		return reconciler.DonePhase(), nil
	}
	next := state.old[0].DeepCopy()
	state.old = state.old[1:]
	if err := unstructured.SetNestedField(next.Object, int64(0), "spec", "replicas"); err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	r.Log.V(1).Info("scaling down replica set", "namespace", cr.GetNamespace(), "name", cr.GetName(), "replicaSet", next.GetName())
	state.step = stepAfterScaleDownOldVRS
	state.Name = fmt.Sprintf("%s(%s)", stepAfterScaleDownOldVRS, next.GetName())
	return state, reconciler.GetThenUpdateRequest(next, reconciler.ControllerRef(cr))
}

// newReplicaSet names the replica set of the current template
// <deployment>-<template hash> and adds the hash to its selector.
func (r *VDeploymentReconciler) newReplicaSet(cr object.Object, vd *v1beta1.VDeployment, revision int64) (object.Object, error) {
	hash, err := templateHash(&vd.Spec.Template)
	if err != nil {
		return nil, err
	}
	template := vd.Spec.Template.DeepCopy()
	if template.Labels == nil {
		template.Labels = map[string]string{}
	}
	template.Labels[PodTemplateHashLabel] = hash

	selector := vd.Spec.Selector.DeepCopy()
	if selector == nil {
		selector = &metav1.LabelSelector{}
	}
	if selector.MatchLabels == nil {
		selector.MatchLabels = map[string]string{}
	}
	selector.MatchLabels[PodTemplateHashLabel] = hash

	vrs := &v1beta1.VReplicaSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:            fmt.Sprintf("%s-%s", vd.Name, hash),
			Namespace:       vd.Namespace,
			Labels:          template.Labels,
			Annotations:     map[string]string{RevisionAnnotation: strconv.FormatInt(revision, 10)},
			OwnerReferences: []metav1.OwnerReference{reconciler.ControllerRef(cr)},
		},
		Spec: v1beta1.VReplicaSetSpec{
			Replicas: ptr.To(vd.DesiredReplicas()),
			Selector: selector,
			Template: template,
		},
	}
	return object.FromTyped(vrs, r.Scheme)
}

// sameTemplate compares a replica set template with the deployment one,
// ignoring the pod-template-hash label.
func sameTemplate(vrsTemplate, template *corev1.PodTemplateSpec) bool {
	if vrsTemplate == nil {
		return false
	}
	stripped := vrsTemplate.DeepCopy()
	delete(stripped.Labels, PodTemplateHashLabel)
	if len(stripped.Labels) == 0 {
		stripped.Labels = nil
	}
	desired := template.DeepCopy()
	if len(desired.Labels) == 0 {
		desired.Labels = nil
	}
	return equality.Semantic.DeepEqual(stripped, desired)
}
