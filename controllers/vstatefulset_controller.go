// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	StatefulSetPodNameLabel     = "statefulset.kubernetes.io/pod-name"
	ControllerRevisionHashLabel = "controller-revision-hash"

	stepAfterListPod         = "AfterListPod"
	stepAfterGetPVC          = "AfterGetPVC"
	stepAfterCreatePVC       = "AfterCreatePVC"
	stepAfterCreateNeeded    = "AfterCreateNeeded"
	stepAfterUpdateNeeded    = "AfterUpdateNeeded"
	stepAfterDeleteCondemned = "AfterDeleteCondemned"
	stepAfterDeleteOutdated  = "AfterDeleteOutdated"
)

// VStatefulSetReconciler gives every ordinal below spec.replicas its claims
// and a pod with a stable identity, removes higher ordinals from the top
// down, and replaces one pod of an outdated revision per reconcile.
type VStatefulSetReconciler struct {
	Scheme *runtime.Scheme
	Log    logr.Logger
}

// vstsState walks ordinals, and the claims of each ordinal, in order. pods
// is never modified in place; it holds the pods known to exist by ordinal.
type vstsState struct {
	reconciler.Phase
	step      string
	revision  string
	pods      map[int]object.Object
	ordinal   int
	claim     int
	condemned []object.Ref
}

func (r *VStatefulSetReconciler) Kind() string {
	return v1beta1.VStatefulSetKind
}

func (r *VStatefulSetReconciler) Init() reconciler.State {
	return vstsState{Phase: reconciler.Phase{Name: stepInit}, step: stepInit}
}

func PodName(setName string, ordinal int) string {
	return fmt.Sprintf("%s-%d", setName, ordinal)
}

func ClaimName(claim, setName string, ordinal int) string {
	return fmt.Sprintf("%s-%s-%d", claim, setName, ordinal)
}

// ordinalOf parses the ordinal of a pod named <set>-<ordinal>.
func ordinalOf(setName, podName string) (int, bool) {
	suffix, found := strings.CutPrefix(podName, setName+"-")
	if !found {
		return 0, false
	}
	ordinal, err := strconv.Atoi(suffix)
	if err != nil || ordinal < 0 || strconv.Itoa(ordinal) != suffix {
		return 0, false
	}
	return ordinal, true
}

func (r *VStatefulSetReconciler) Reconcile(cr object.Object, resp *message.Response, current reconciler.State) (reconciler.State, *message.Request) {
	state, ok := current.(vstsState)
	if !ok {
		return reconciler.ErrorPhase(fmt.Errorf("unexpected state %T", current)), nil
	}
	vsts := &v1beta1.VStatefulSet{}
	if err := object.Into(cr, vsts); err != nil {
		return reconciler.ErrorPhase(err), nil
	}

	switch state.step {
	case stepInit:
		if object.IsDeleting(cr) {
			return reconciler.DonePhase(), nil
		}
		return r.list(cr)

	case stepAfterListPod:
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to list pods: %w", resp.Err)), nil
		}
		hash, err := templateHash(&vsts.Spec.Template)
		if err != nil {
			return reconciler.ErrorPhase(err), nil
		}
		state.revision = fmt.Sprintf("%s-%s", vsts.Name, hash)
		state.pods = map[int]object.Object{}
		var condemned []int
		for _, pod := range resp.Items {
			ordinal, ok := ordinalOf(vsts.Name, pod.GetName())
			if !ok {
				continue
			}
			state.pods[ordinal] = pod
			if ordinal >= int(vsts.DesiredReplicas()) && controlledBy(pod, cr) && !object.IsDeleting(pod) {
				condemned = append(condemned, ordinal)
			}
		}
		sort.Sort(sort.Reverse(sort.IntSlice(condemned)))
		state.condemned = nil
		for _, ordinal := range condemned {
			state.condemned = append(state.condemned, object.RefOf(state.pods[ordinal]))
		}
		state.ordinal, state.claim = 0, 0
		return r.advance(cr, vsts, state)

	case stepAfterGetPVC:
		if apierrors.IsNotFound(resp.Err) {
			return r.createClaim(cr, vsts, state)
		}
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to get claim: %w", resp.Err)), nil
		}
		state.claim++
		return r.advance(cr, vsts, state)

	case stepAfterCreatePVC:
		if !resp.Ok() && !apierrors.IsAlreadyExists(resp.Err) {
			return reconciler.ErrorPhase(fmt.Errorf("failed to create claim: %w", resp.Err)), nil
		}
		state.claim++
		return r.advance(cr, vsts, state)

	case stepAfterCreateNeeded, stepAfterUpdateNeeded:
		if apierrors.IsAlreadyExists(resp.Err) || apierrors.IsConflict(resp.Err) {
			return r.list(cr)
		}
		if !resp.Ok() {
			return reconciler.ErrorPhase(fmt.Errorf("failed to write pod %s: %w", PodName(vsts.Name, state.ordinal), resp.Err)), nil
		}
		state.pods = withPod(state.pods, state.ordinal, resp.Object)
		state.ordinal++
		state.claim = 0
		return r.advance(cr, vsts, state)

	case stepAfterDeleteCondemned:
		if !resp.Ok() && !apierrors.IsNotFound(resp.Err) {
			return reconciler.ErrorPhase(fmt.Errorf("failed to delete condemned pod: %w", resp.Err)), nil
		}
		return r.advance(cr, vsts, state)

	case stepAfterDeleteOutdated:
		if !resp.Ok() && !apierrors.IsNotFound(resp.Err) {
			return reconciler.ErrorPhase(fmt.Errorf("failed to delete outdated pod: %w", resp.Err)), nil
		}
		return reconciler.DonePhase(), nil
	}
	return reconciler.ErrorPhase(fmt.Errorf("unknown step %q", state.step)), nil
}

func (r *VStatefulSetReconciler) list(cr object.Object) (reconciler.State, *message.Request) {
	return vstsState{
		Phase: reconciler.Phase{Name: stepAfterListPod},
		step:  stepAfterListPod,
	}, reconciler.ListRequest("Pod", cr.GetNamespace())
}

func selectorMatches(vsts *v1beta1.VStatefulSet, pod object.Object) bool {
	selector, err := podSelector(vsts.Spec.Selector)
	if err != nil {
		return false
	}
	return selector.Matches(labels.Set(pod.GetLabels()))
}

func withPod(pods map[int]object.Object, ordinal int, pod object.Object) map[int]object.Object {
	next := make(map[int]object.Object, len(pods)+1)
	for k, v := range pods {
		next[k] = v
	}
	next[ordinal] = pod
	return next
}

// advance emits the next request of the walk: claims then pod of each
// needed ordinal, condemned pods, then at most one outdated pod.
func (r *VStatefulSetReconciler) advance(cr object.Object, vsts *v1beta1.VStatefulSet, state vstsState) (reconciler.State, *message.Request) {
	replicas := int(vsts.DesiredReplicas())
	for state.ordinal < replicas {
		if state.claim < len(vsts.Spec.VolumeClaimTemplates) {
			name := ClaimName(vsts.Spec.VolumeClaimTemplates[state.claim].Name, vsts.Name, state.ordinal)
			state.step = stepAfterGetPVC
			state.Name = fmt.Sprintf("%s(%d,%d)", stepAfterGetPVC, state.claim, state.ordinal)
			return state, reconciler.GetRequest(object.Ref{Kind: "PersistentVolumeClaim", Namespace: cr.GetNamespace(), Name: name})
		}

		pod, exists := state.pods[state.ordinal]
		switch {
		case !exists:
			return r.createPod(cr, vsts, state)
		case object.IsDeleting(pod):
			// recreated once the deletion completes
		case object.ControllerOf(pod) != nil && !controlledBy(pod, cr):
			return reconciler.ErrorPhase(fmt.Errorf("pod %s is controlled by %s", pod.GetName(), object.ControllerOf(pod).Name)), nil
		case object.ControllerOf(pod) == nil && !selectorMatches(vsts, pod):
			return reconciler.ErrorPhase(fmt.Errorf("orphan pod %s does not match the selector", pod.GetName())), nil
		default:
			if updated, needed, err := r.identity(cr, vsts, state, pod); err != nil {
				return reconciler.ErrorPhase(err), nil
			} else if needed {
				state.step = stepAfterUpdateNeeded
				state.Name = fmt.Sprintf("%s(%d)", stepAfterUpdateNeeded, state.ordinal)
				if controlledBy(pod, cr) {
					return state, reconciler.GetThenUpdateRequest(updated, reconciler.ControllerRef(cr))
				}
				r.Log.V(1).Info("adopting pod", "namespace", cr.GetNamespace(), "name", cr.GetName(), "pod", pod.GetName())
				return state, reconciler.UpdateRequest(updated)
			}
		}
		state.ordinal++
		state.claim = 0
	}

	if len(state.condemned) > 0 {
		ref := state.condemned[0]
		state.condemned = state.condemned[1:]
		state.step = stepAfterDeleteCondemned
		state.Name = fmt.Sprintf("%s(%s)", stepAfterDeleteCondemned, ref.Name)
		return state, reconciler.GetThenDeleteRequest(ref, reconciler.ControllerRef(cr))
	}

	for ordinal := replicas - 1; ordinal >= 0; ordinal-- {
		pod, ok := state.pods[ordinal]
		if !ok || object.IsDeleting(pod) || !controlledBy(pod, cr) {
			continue
		}
		if pod.GetLabels()[ControllerRevisionHashLabel] != state.revision {
			r.Log.V(1).Info("replacing outdated pod", "namespace", cr.GetNamespace(), "name", cr.GetName(), "pod", pod.GetName())
			state.step = stepAfterDeleteOutdated
			state.Name = fmt.Sprintf("%s(%d)", stepAfterDeleteOutdated, ordinal)
			return state, reconciler.GetThenDeleteRequest(object.RefOf(pod), reconciler.ControllerRef(cr))
		}
	}
	return reconciler.DonePhase(), nil
}

func (r *VStatefulSetReconciler) createClaim(cr object.Object, vsts *v1beta1.VStatefulSet, state vstsState) (reconciler.State, *message.Request) {
	template := vsts.Spec.VolumeClaimTemplates[state.claim]
	claimLabels := map[string]string{}
	for k, v := range template.Labels {
		claimLabels[k] = v
	}
	if vsts.Spec.Selector != nil {
		for k, v := range vsts.Spec.Selector.MatchLabels {
			claimLabels[k] = v
		}
	}
	claim := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:        ClaimName(template.Name, vsts.Name, state.ordinal),
			Namespace:   vsts.Namespace,
			Labels:      claimLabels,
			Annotations: template.Annotations,
		},
		Spec: *template.Spec.DeepCopy(),
	}
	obj, err := object.FromTyped(claim, r.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	state.step = stepAfterCreatePVC
	state.Name = fmt.Sprintf("%s(%d,%d)", stepAfterCreatePVC, state.claim, state.ordinal)
	return state, reconciler.CreateRequest(obj)
}

func (r *VStatefulSetReconciler) createPod(cr object.Object, vsts *v1beta1.VStatefulSet, state vstsState) (reconciler.State, *message.Request) {
	pod := podFromTemplate(cr, &vsts.Spec.Template)
	pod.Name = PodName(vsts.Name, state.ordinal)
	if pod.Labels == nil {
		pod.Labels = map[string]string{}
	}
	pod.Labels[ControllerRevisionHashLabel] = state.revision
	setIdentity(pod, vsts, state.ordinal)

	obj, err := object.FromTyped(pod, r.Scheme)
	if err != nil {
		return reconciler.ErrorPhase(err), nil
	}
	state.step = stepAfterCreateNeeded
	state.Name = fmt.Sprintf("%s(%d)", stepAfterCreateNeeded, state.ordinal)
	return state, reconciler.CreateRequest(obj)
}

// setIdentity applies what ties a pod to its ordinal: name label, hostname,
// subdomain and the volumes of its claims.
func setIdentity(pod *corev1.Pod, vsts *v1beta1.VStatefulSet, ordinal int) {
	if pod.Labels == nil {
		pod.Labels = map[string]string{}
	}
	for k, v := range vsts.Spec.Template.Labels {
		pod.Labels[k] = v
	}
	pod.Labels[StatefulSetPodNameLabel] = pod.Name
	pod.Spec.Hostname = pod.Name
	pod.Spec.Subdomain = vsts.Spec.ServiceName

	for _, template := range vsts.Spec.VolumeClaimTemplates {
		volume := corev1.Volume{
			Name: template.Name,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: ClaimName(template.Name, vsts.Name, ordinal),
				},
			},
		}
		replaced := false
		for i := range pod.Spec.Volumes {
			if pod.Spec.Volumes[i].Name == template.Name {
				pod.Spec.Volumes[i] = volume
				replaced = true
			}
		}
		if !replaced {
			pod.Spec.Volumes = append(pod.Spec.Volumes, volume)
		}
	}
}

// identity returns pod with its identity restored and reports whether that
// changed anything. Orphans are adopted.
func (r *VStatefulSetReconciler) identity(cr object.Object, vsts *v1beta1.VStatefulSet, state vstsState, obj object.Object) (object.Object, bool, error) {
	pod := &corev1.Pod{}
	if err := object.Into(obj, pod); err != nil {
		return nil, false, err
	}
	fixed := pod.DeepCopy()
	setIdentity(fixed, vsts, state.ordinal)
	if object.ControllerOf(obj) == nil {
		fixed.OwnerReferences = append(fixed.OwnerReferences, reconciler.ControllerRef(cr))
	}
	updated, err := object.FromTyped(fixed, r.Scheme)
	if err != nil {
		return nil, false, err
	}
	current, err := object.FromTyped(pod, r.Scheme)
	if err != nil {
		return nil, false, err
	}
	if object.ShapeEqual(current, updated) {
		return nil, false, nil
	}
	return updated, true, nil
}
