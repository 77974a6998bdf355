// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	utilrand "k8s.io/apimachinery/pkg/util/rand"
)

// controlledBy reports whether the controller owner of obj is cr itself,
// not merely an object of the same name.
func controlledBy(obj, cr object.Object) bool {
	owner := object.ControllerOf(obj)
	return owner != nil && owner.Kind == cr.GetKind() && owner.Name == cr.GetName() && owner.UID == cr.GetUID()
}

// activePods keeps the pods controlled by cr that match selector and are not
// being deleted, in list order.
func activePods(items []object.Object, cr object.Object, selector labels.Selector) []object.Object {
	var pods []object.Object
	for _, pod := range items {
		if !controlledBy(pod, cr) || object.IsDeleting(pod) {
			continue
		}
		if !selector.Matches(labels.Set(pod.GetLabels())) {
			continue
		}
		pods = append(pods, pod)
	}
	return pods
}

func podSelector(selector *metav1.LabelSelector) (labels.Selector, error) {
	if selector == nil {
		return labels.Nothing(), nil
	}
	parsed, err := metav1.LabelSelectorAsSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector: %w", err)
	}
	return parsed, nil
}

// podFromTemplate stamps a pod out of template, controlled by cr. Either name
// or generateName is set by the caller.
func podFromTemplate(cr object.Object, template *corev1.PodTemplateSpec) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:       cr.GetNamespace(),
			OwnerReferences: []metav1.OwnerReference{reconciler.ControllerRef(cr)},
		},
	}
	if template != nil {
		template = template.DeepCopy()
		pod.Labels = template.Labels
		pod.Annotations = template.Annotations
		pod.Spec = template.Spec
	}
	return pod
}

// templateHash is the FNV-32a hash of the template, encoded so it is safe in
// names and label values.
func templateHash(template *corev1.PodTemplateSpec) (string, error) {
	raw, err := json.Marshal(template)
	if err != nil {
		return "", err
	}
	hasher := fnv.New32a()
	_, _ = hasher.Write(raw)
	return utilrand.SafeEncodeString(fmt.Sprint(hasher.Sum32())), nil
}
