// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package podlifecycle

import (
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// desiredStatus is the status obj settles on: the current status with the
// fields this package owns overwritten.
func desiredStatus(obj object.Object) any {
	status, _ := object.Status(obj).(map[string]any)
	if status == nil {
		status = map[string]any{}
	}
	switch obj.GetKind() {
	case "Pod":
		status["phase"] = string(corev1.PodRunning)
		status["conditions"] = []any{
			map[string]any{"type": string(corev1.PodReady), "status": string(corev1.ConditionTrue)},
			map[string]any{"type": string(corev1.ContainersReady), "status": string(corev1.ConditionTrue)},
		}
	case "StatefulSet":
		replicas, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
		if !found {
			replicas = 1
		}
		for _, field := range []string{"replicas", "readyReplicas", "availableReplicas", "currentReplicas", "updatedReplicas"} {
			status[field] = replicas
		}
		status["observedGeneration"] = obj.GetGeneration()
	case "DaemonSet":
		// a single schedulable node
		for _, field := range []string{"desiredNumberScheduled", "currentNumberScheduled", "numberReady", "numberAvailable", "updatedNumberScheduled"} {
			status[field] = int64(1)
		}
		status["numberMisscheduled"] = int64(0)
		status["observedGeneration"] = obj.GetGeneration()
	}
	return status
}
