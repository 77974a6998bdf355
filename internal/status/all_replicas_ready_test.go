package status_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/internal/status"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
)

var _ = Describe("AllReplicasReady", func() {
	var (
		sts                   *appsv1.StatefulSet
		existingCondition     *status.Condition
		currentTimeFn         func() time.Time
		previousConditionTime time.Time
	)

	BeforeEach(func() {
		sts = &appsv1.StatefulSet{
			Spec: appsv1.StatefulSetSpec{Replicas: ptr.To[int32](5)},
		}
		existingCondition = nil
		currentTimeFn = func() time.Time {
			return time.Date(2020, 2, 2, 9, 6, 0, 0, time.UTC)
		}
		previousConditionTime = time.Date(2020, 2, 2, 8, 0, 0, 0, time.UTC)
	})

	Context("previous condition was not set", func() {
		When("all replicas are ready", func() {
			BeforeEach(func() {
				sts.Status.ReadyReplicas = 5
			})

			It("returns the expected condition", func() {
				condition := status.AllReplicasReadyCondition([]runtime.Object{&corev1.Service{}, sts}, existingCondition, currentTimeFn)

				By("having status true and reason message", func() {
					Expect(condition.Type).To(Equal(status.AllReplicasReady))
					Expect(condition.Status).To(Equal(corev1.ConditionTrue))
					Expect(condition.Reason).To(Equal("AllPodsAreReady"))
				})

				By("setting the transition time", func() {
					Expect(condition.LastTransitionTime).To(Equal(metav1.NewTime(currentTimeFn())))
				})
			})
		})

		When("some replicas are not ready", func() {
			BeforeEach(func() {
				sts.Status.ReadyReplicas = 3
			})

			It("reports how many pods are ready", func() {
				condition := status.AllReplicasReadyCondition([]runtime.Object{sts}, existingCondition, currentTimeFn)
				Expect(condition.Status).To(Equal(corev1.ConditionFalse))
				Expect(condition.Reason).To(Equal("NotAllPodsReady"))
				Expect(condition.Message).To(Equal("3/5 Pods ready"))
			})
		})

		When("the workload is a DaemonSet", func() {
			It("compares ready pods to scheduled pods", func() {
				ds := &appsv1.DaemonSet{Status: appsv1.DaemonSetStatus{NumberReady: 2, DesiredNumberScheduled: 2}}
				condition := status.AllReplicasReadyCondition([]runtime.Object{ds}, existingCondition, currentTimeFn)
				Expect(condition.Status).To(Equal(corev1.ConditionTrue))

				ds.Status.NumberReady = 1
				condition = status.AllReplicasReadyCondition([]runtime.Object{ds}, existingCondition, currentTimeFn)
				Expect(condition.Status).To(Equal(corev1.ConditionFalse))
				Expect(condition.Message).To(Equal("1/2 Pods ready"))
			})
		})

		When("there is no workload", func() {
			It("returns an unknown condition", func() {
				var nilSts *appsv1.StatefulSet
				condition := status.AllReplicasReadyCondition([]runtime.Object{nilSts}, existingCondition, currentTimeFn)
				Expect(condition.Status).To(Equal(corev1.ConditionUnknown))
				Expect(condition.Reason).To(Equal("MissingWorkload"))
			})
		})
	})

	Context("previous condition was set", func() {
		BeforeEach(func() {
			existingCondition = &status.Condition{
				Type:               status.AllReplicasReady,
				Status:             corev1.ConditionTrue,
				LastTransitionTime: metav1.NewTime(previousConditionTime),
			}
		})

		It("keeps the transition time when the status does not change", func() {
			sts.Status.ReadyReplicas = 5
			condition := status.AllReplicasReadyCondition([]runtime.Object{sts}, existingCondition, currentTimeFn)
			Expect(condition.LastTransitionTime).To(Equal(metav1.NewTime(previousConditionTime)))
		})

		It("updates the transition time when the status changes", func() {
			sts.Status.ReadyReplicas = 1
			condition := status.AllReplicasReadyCondition([]runtime.Object{sts}, existingCondition, currentTimeFn)
			Expect(condition.Status).To(Equal(corev1.ConditionFalse))
			Expect(condition.LastTransitionTime).To(Equal(metav1.NewTime(currentTimeFn())))
		})
	})
})
