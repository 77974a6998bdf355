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
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const VDeploymentKind = "VDeployment"

// +kubebuilder:object:root=true
type VDeployment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec VDeploymentSpec `json:"spec,omitempty"`
}

type VDeploymentSpec struct {
	// +kubebuilder:default:=1
	Replicas *int32                 `json:"replicas,omitempty"`
	Selector *metav1.LabelSelector  `json:"selector"`
	Template corev1.PodTemplateSpec `json:"template"`
}

// +kubebuilder:object:root=true
type VDeploymentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []VDeployment `json:"items"`
}

func (vd *VDeployment) DesiredReplicas() int32 {
	if vd.Spec.Replicas == nil {
		return 1
	}
	return *vd.Spec.Replicas
}

var _ Validator = &VDeployment{}

func (vd *VDeployment) ValidateCreate() error {
	allErrs := validatePodSet(field.NewPath("spec"), vd.Spec.Replicas, vd.Spec.Selector, &vd.Spec.Template)
	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(VDeploymentKind), vd.Name, allErrs)
}

func (vd *VDeployment) ValidateUpdate(old runtime.Object) error {
	oldVd, ok := old.(*VDeployment)
	if !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a VDeployment but got a %T", old))
	}
	if err := vd.ValidateCreate(); err != nil {
		return err
	}
	if !apiequality.Semantic.DeepEqual(oldVd.Spec.Selector, vd.Spec.Selector) {
		return apierrors.NewForbidden(Resource("vdeployments"), vd.Name,
			field.Forbidden(field.NewPath("spec", "selector"), "field is immutable"))
	}
	return nil
}

func init() {
	SchemeBuilder.Register(&VDeployment{}, &VDeploymentList{})
}
