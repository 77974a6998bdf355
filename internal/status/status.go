// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// +kubebuilder:object:generate=true
package status

import (
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	AllReplicasReady ConditionType = "AllReplicasReady"
	ReconcileSuccess ConditionType = "ReconcileSuccess"
)

type ConditionType string

type Condition struct {
	// Type indicates the scope of the custom resource status addressed by the condition.
	Type ConditionType `json:"type"`
	// True, False, or Unknown
	Status corev1.ConditionStatus `json:"status"`
	// The last time this Condition type changed.
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`
	// One word, camel-case reason for current status of the condition.
	Reason string `json:"reason,omitempty"`
	// Full text reason for current status of the condition.
	Message string `json:"message,omitempty"`
}

func newCondition(conditionType ConditionType) Condition {
	return Condition{
		Type:               conditionType,
		Status:             corev1.ConditionUnknown,
		LastTransitionTime: metav1.Time{},
	}
}

// Find returns a copy of the condition of the given type, or nil.
func Find(conditions []Condition, conditionType ConditionType) *Condition {
	for i := range conditions {
		if conditions[i].Type == conditionType {
			return conditions[i].DeepCopy()
		}
	}
	return nil
}

// Set replaces the condition with the same type, or appends it.
func Set(conditions []Condition, condition Condition) []Condition {
	for i := range conditions {
		if conditions[i].Type == condition.Type {
			conditions[i] = condition
			return conditions
		}
	}
	return append(conditions, condition)
}

// transitionTime keeps the previous transition time unless the status flipped.
// Times are truncated to seconds so they survive a round trip through the store.
func transitionTime(condition Condition, existing *Condition, now func() time.Time) metav1.Time {
	if existing != nil && existing.Status == condition.Status {
		return existing.LastTransitionTime
	}
	return metav1.NewTime(now()).Rfc3339Copy()
}
