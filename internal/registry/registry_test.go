package registry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
)

var _ = Describe("InstalledTypes", func() {
	var (
		scheme *runtime.Scheme
		types  registry.InstalledTypes
	)

	BeforeEach(func() {
		scheme = registry.NewScheme()
		var err error
		types, err = registry.Default(scheme)
		Expect(err).NotTo(HaveOccurred())
	})

	It("installs built-in and custom kinds", func() {
		Expect(types.Kinds()).To(ContainElements("Pod", "StatefulSet", "Secret", "RabbitmqCluster", "VStatefulSet"))
		Expect(types["RabbitmqCluster"].Custom).To(BeTrue())
		Expect(types["Service"].Custom).To(BeFalse())
	})

	It("rejects unknown kinds with BadRequest", func() {
		_, err := types.Lookup("Nope")
		Expect(apierrors.IsBadRequest(err)).To(BeTrue())
	})

	It("restricts to a subset", func() {
		subset, err := types.Subset([]string{"Pod", "VReplicaSet"})
		Expect(err).NotTo(HaveOccurred())
		Expect(subset.Kinds()).To(Equal([]string{"Pod", "VReplicaSet"}))

		_, err = types.Subset([]string{"Nope"})
		Expect(err).To(HaveOccurred())
	})

	Context("default status", func() {
		It("starts pods pending", func() {
			Expect(types["Pod"].DefaultStatus()).To(Equal(map[string]any{"phase": "Pending"}))
		})

		It("starts custom resources with an empty condition list", func() {
			Expect(types["RabbitmqCluster"].DefaultStatus()).To(HaveKeyWithValue("conditions", BeEmpty()))
		})

		It("has no status for kinds without one", func() {
			Expect(types["VReplicaSet"].DefaultStatus()).To(BeNil())
		})
	})

	Context("validation", func() {
		It("delegates to the custom kind", func() {
			cluster := &v1beta1.RabbitmqCluster{
				ObjectMeta: metav1.ObjectMeta{Name: "r", Namespace: "ns"},
				Spec:       v1beta1.RabbitmqClusterSpec{Replicas: ptr.To[int32](3)},
			}
			obj, err := object.FromTyped(cluster, scheme)
			Expect(err).NotTo(HaveOccurred())
			Expect(types["RabbitmqCluster"].Validate(obj)).To(Succeed())

			scaledDown := object.DeepCopy(obj)
			Expect(unstructuredSet(scaledDown, int64(1), "spec", "replicas")).To(Succeed())
			Expect(apierrors.IsForbidden(types["RabbitmqCluster"].ValidateTransition(obj, scaledDown))).To(BeTrue())
		})

		It("rejects built-in objects of the wrong shape", func() {
			obj, err := object.FromTyped(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "c"}}, scheme)
			Expect(err).NotTo(HaveOccurred())
			Expect(types["ConfigMap"].Validate(obj)).To(Succeed())

			obj.Object["data"] = "not a map"
			Expect(types["ConfigMap"].Validate(obj)).NotTo(Succeed())
		})
	})
})
