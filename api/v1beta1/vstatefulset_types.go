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

const VStatefulSetKind = "VStatefulSet"

// +kubebuilder:object:root=true
type VStatefulSet struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec VStatefulSetSpec `json:"spec,omitempty"`
}

type VStatefulSetSpec struct {
	// +kubebuilder:default:=1
	Replicas             *int32                         `json:"replicas,omitempty"`
	Selector             *metav1.LabelSelector          `json:"selector"`
	ServiceName          string                         `json:"serviceName,omitempty"`
	Template             corev1.PodTemplateSpec         `json:"template"`
	VolumeClaimTemplates []corev1.PersistentVolumeClaim `json:"volumeClaimTemplates,omitempty"`
}

// +kubebuilder:object:root=true
type VStatefulSetList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []VStatefulSet `json:"items"`
}

func (vsts *VStatefulSet) DesiredReplicas() int32 {
	if vsts.Spec.Replicas == nil {
		return 1
	}
	return *vsts.Spec.Replicas
}

var _ Validator = &VStatefulSet{}

func (vsts *VStatefulSet) ValidateCreate() error {
	spec := field.NewPath("spec")
	allErrs := validatePodSet(spec, vsts.Spec.Replicas, vsts.Spec.Selector, &vsts.Spec.Template)
	seen := map[string]bool{}
	for i, claim := range vsts.Spec.VolumeClaimTemplates {
		path := spec.Child("volumeClaimTemplates").Index(i).Child("metadata", "name")
		if claim.Name == "" {
			allErrs = append(allErrs, field.Required(path, ""))
		} else if seen[claim.Name] {
			allErrs = append(allErrs, field.Duplicate(path, claim.Name))
		}
		seen[claim.Name] = true
	}
	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(VStatefulSetKind), vsts.Name, allErrs)
}

// ValidateUpdate allows changes to replicas and the pod template only.
func (vsts *VStatefulSet) ValidateUpdate(old runtime.Object) error {
	oldVsts, ok := old.(*VStatefulSet)
	if !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a VStatefulSet but got a %T", old))
	}
	if err := vsts.ValidateCreate(); err != nil {
		return err
	}
	immutable := []struct {
		path     string
		old, new interface{}
	}{
		{"selector", oldVsts.Spec.Selector, vsts.Spec.Selector},
		{"serviceName", oldVsts.Spec.ServiceName, vsts.Spec.ServiceName},
		{"volumeClaimTemplates", oldVsts.Spec.VolumeClaimTemplates, vsts.Spec.VolumeClaimTemplates},
	}
	for _, f := range immutable {
		if !apiequality.Semantic.DeepEqual(f.old, f.new) {
			return apierrors.NewForbidden(Resource("vstatefulsets"), vsts.Name,
				field.Forbidden(field.NewPath("spec", f.path), "updates to statefulset spec for fields other than 'replicas' and 'template' are forbidden"))
		}
	}
	return nil
}

func init() {
	SchemeBuilder.Register(&VStatefulSet{}, &VStatefulSetList{})
}
