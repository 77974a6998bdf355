package status

import (
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// AllReplicasReadyCondition inspects the first workload (StatefulSet or
// DaemonSet) among resources.
func AllReplicasReadyCondition(resources []runtime.Object,
	existingCondition *Condition,
	now func() time.Time) Condition {

	condition := newCondition(AllReplicasReady)
	condition.Reason = "MissingWorkload"
	condition.Message = "Could not find StatefulSet or DaemonSet"

	for index := range resources {
		switch resource := resources[index].(type) {
		case *appsv1.StatefulSet:
			if resource == nil {
				continue
			}
			desired := int32(1)
			if resource.Spec.Replicas != nil {
				desired = *resource.Spec.Replicas
			}
			setReplicaCondition(&condition, resource.Status.ReadyReplicas, desired)
			goto assignLastTransitionTime
		case *appsv1.DaemonSet:
			if resource == nil {
				continue
			}
			setReplicaCondition(&condition, resource.Status.NumberReady, resource.Status.DesiredNumberScheduled)
			goto assignLastTransitionTime
		}
	}

assignLastTransitionTime:
	condition.LastTransitionTime = transitionTime(condition, existingCondition, now)
	return condition
}

func setReplicaCondition(condition *Condition, ready, desired int32) {
	if ready >= desired {
		condition.Status = corev1.ConditionTrue
		condition.Reason = "AllPodsAreReady"
		condition.Message = ""
		return
	}
	condition.Status = corev1.ConditionFalse
	condition.Reason = "NotAllPodsReady"
	condition.Message = fmt.Sprintf("%d/%d Pods ready", ready, desired)
}
