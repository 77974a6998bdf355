// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package v1beta1

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const VReplicaSetKind = "VReplicaSet"

// +kubebuilder:object:root=true
type VReplicaSet struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec VReplicaSetSpec `json:"spec,omitempty"`
}

type VReplicaSetSpec struct {
	// +kubebuilder:default:=1
	Replicas *int32                  `json:"replicas,omitempty"`
	Selector *metav1.LabelSelector   `json:"selector"`
	Template *corev1.PodTemplateSpec `json:"template,omitempty"`
}

// +kubebuilder:object:root=true
type VReplicaSetList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []VReplicaSet `json:"items"`
}

func (vrs *VReplicaSet) DesiredReplicas() int32 {
	if vrs.Spec.Replicas == nil {
		return 1
	}
	return *vrs.Spec.Replicas
}

var _ Validator = &VReplicaSet{}

func (vrs *VReplicaSet) ValidateCreate() error {
	allErrs := validatePodSet(field.NewPath("spec"), vrs.Spec.Replicas, vrs.Spec.Selector, vrs.Spec.Template)
	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(VReplicaSetKind), vrs.Name, allErrs)
}

func (vrs *VReplicaSet) ValidateUpdate(old runtime.Object) error {
	oldVrs, ok := old.(*VReplicaSet)
	if !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a VReplicaSet but got a %T", old))
	}
	if err := vrs.ValidateCreate(); err != nil {
		return err
	}
	if !apiequality.Semantic.DeepEqual(oldVrs.Spec.Selector, vrs.Spec.Selector) {
		return apierrors.NewForbidden(Resource("vreplicasets"), vrs.Name,
			field.Forbidden(field.NewPath("spec", "selector"), "field is immutable"))
	}
	return nil
}

// validatePodSet checks the fields shared by every pod-owning kind: the
// selector is required, non-empty and selects the template labels. Only a
// set scaled to zero may leave the template out.
func validatePodSet(spec *field.Path, replicas *int32, selector *metav1.LabelSelector, template *corev1.PodTemplateSpec) field.ErrorList {
	var allErrs field.ErrorList
	if replicas != nil && *replicas < 0 {
		allErrs = append(allErrs, field.Invalid(spec.Child("replicas"), *replicas, "must be greater than or equal to 0"))
	}
	if selector == nil {
		return append(allErrs, field.Required(spec.Child("selector"), ""))
	}
	parsed, err := metav1.LabelSelectorAsSelector(selector)
	if err != nil {
		return append(allErrs, field.Invalid(spec.Child("selector"), selector, err.Error()))
	}
	if parsed.Empty() {
		allErrs = append(allErrs, field.Invalid(spec.Child("selector"), selector, "empty selector is invalid"))
	}
	if template == nil {
		if replicas == nil || *replicas > 0 {
			allErrs = append(allErrs, field.Required(spec.Child("template"), "required when replicas is not zero"))
		}
		return allErrs
	}
	if !parsed.Matches(labels.Set(template.Labels)) {
		allErrs = append(allErrs, field.Invalid(spec.Child("template", "metadata", "labels"), template.Labels,
			"selector does not match template labels"))
	}
	return allErrs
}

func init() {
	SchemeBuilder.Register(&VReplicaSet{}, &VReplicaSetList{})
}
