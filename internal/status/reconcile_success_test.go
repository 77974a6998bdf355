package status_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/internal/status"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var _ = Describe("ReconcileSuccess", func() {
	var now func() time.Time

	BeforeEach(func() {
		now = func() time.Time { return time.Date(2021, 3, 4, 5, 6, 7, 890, time.UTC) }
	})

	It("has the required fields", func() {
		c := status.ReconcileSuccessCondition(corev1.ConditionFalse, "GreatReason", "ExcellentMessage", nil, now)
		Expect(c.Type).To(Equal(status.ReconcileSuccess))
		Expect(c.Status).To(Equal(corev1.ConditionFalse))
		Expect(c.Reason).To(Equal("GreatReason"))
		Expect(c.Message).To(Equal("ExcellentMessage"))
	})

	It("truncates the transition time to seconds", func() {
		c := status.ReconcileSuccessCondition(corev1.ConditionTrue, "Success", "", nil, now)
		Expect(c.LastTransitionTime).To(Equal(metav1.NewTime(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC))))
	})

	It("keeps the transition time of an unchanged condition", func() {
		previous := &status.Condition{
			Type:               status.ReconcileSuccess,
			Status:             corev1.ConditionTrue,
			LastTransitionTime: metav1.NewTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		}
		c := status.ReconcileSuccessCondition(corev1.ConditionTrue, "Success", "", previous, now)
		Expect(c.LastTransitionTime).To(Equal(previous.LastTransitionTime))
	})
})

var _ = Describe("Conditions", func() {
	It("sets and finds conditions by type", func() {
		var conditions []status.Condition
		Expect(status.Find(conditions, status.ReconcileSuccess)).To(BeNil())

		conditions = status.Set(conditions, status.Condition{Type: status.ReconcileSuccess, Status: corev1.ConditionFalse})
		conditions = status.Set(conditions, status.Condition{Type: status.AllReplicasReady, Status: corev1.ConditionTrue})
		conditions = status.Set(conditions, status.Condition{Type: status.ReconcileSuccess, Status: corev1.ConditionTrue})

		Expect(conditions).To(HaveLen(2))
		found := status.Find(conditions, status.ReconcileSuccess)
		Expect(found).NotTo(BeNil())
		Expect(found.Status).To(Equal(corev1.ConditionTrue))
	})
})
