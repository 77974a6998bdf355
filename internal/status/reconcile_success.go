package status

import (
	"time"

	corev1 "k8s.io/api/core/v1"
)

func ReconcileSuccessCondition(status corev1.ConditionStatus, reason, message string,
	existingCondition *Condition,
	now func() time.Time) Condition {

	condition := newCondition(ReconcileSuccess)
	condition.Status = status
	condition.Reason = reason
	condition.Message = message
	condition.LastTransitionTime = transitionTime(condition, existingCondition, now)
	return condition
}
