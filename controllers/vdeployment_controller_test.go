package controllers_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/controllers"
	"github.com/vreconcile/operators/internal/cluster"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/pkg/object"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"
)

var _ = Describe("VDeployment", func() {
	var (
		c  *cluster.Cluster
		vd object.Object
	)

	replicaSets := func() map[string]*v1beta1.VReplicaSet {
		GinkgoHelper()
		out := map[string]*v1beta1.VReplicaSet{}
		for _, obj := range c.Store.List(v1beta1.VReplicaSetKind, namespace) {
			vrs := &v1beta1.VReplicaSet{}
			Expect(object.Into(obj, vrs)).To(Succeed())
			Expect(object.ControllerOf(obj).UID).To(Equal(vd.GetUID()))
			out[vrs.Spec.Template.Spec.Containers[0].Image] = vrs
		}
		return out
	}

	setImage := func(image string) {
		GinkgoHelper()
		_, err := c.Mutate(ctx, object.RefOf(vd), func(obj object.Object) error {
			containers, _, err := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "containers")
			if err != nil {
				return err
			}
			containers[0].(map[string]any)["image"] = image
			return unstructured.SetNestedSlice(obj.Object, containers, "spec", "template", "spec", "containers")
		})
		Expect(err).NotTo(HaveOccurred())
		quiesce(c)
	}

	BeforeEach(func() {
		c = newCluster(config.VDeployment, config.VReplicaSet)
		labels := map[string]string{"app": "api"}
		var err error
		vd, err = c.Create(ctx, &v1beta1.VDeployment{
			ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: namespace},
			Spec: v1beta1.VDeploymentSpec{
				Replicas: ptr.To[int32](2),
				Selector: &metav1.LabelSelector{MatchLabels: labels},
				Template: podTemplate(labels, "api:1"),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		quiesce(c)
	})

	It("runs the template through one replica set named after its hash", func() {
		sets := replicaSets()
		Expect(sets).To(HaveLen(1))
		vrs := sets["api:1"]
		Expect(vrs).NotTo(BeNil())
		hash := vrs.Spec.Template.Labels[controllers.PodTemplateHashLabel]
		Expect(hash).NotTo(BeEmpty())
		Expect(vrs.Name).To(Equal("api-" + hash))
		Expect(vrs.Spec.Selector.MatchLabels).To(HaveKeyWithValue(controllers.PodTemplateHashLabel, hash))
		Expect(vrs.Annotations).To(HaveKeyWithValue(controllers.RevisionAnnotation, "1"))
		Expect(vrs.DesiredReplicas()).To(BeEquivalentTo(2))

		pods := c.Store.List("Pod", namespace)
		Expect(pods).To(HaveLen(2))
		for _, pod := range pods {
			Expect(pod.GetLabels()).To(HaveKeyWithValue(controllers.PodTemplateHashLabel, hash))
		}
	})

	It("rolls a new template out and scales the old replica set to zero", func() {
		setImage("api:2")

		sets := replicaSets()
		Expect(sets).To(HaveLen(2))
		Expect(sets["api:2"].DesiredReplicas()).To(BeEquivalentTo(2))
		Expect(sets["api:2"].Annotations).To(HaveKeyWithValue(controllers.RevisionAnnotation, "2"))
		Expect(sets["api:1"].DesiredReplicas()).To(BeZero())

		newHash := sets["api:2"].Spec.Template.Labels[controllers.PodTemplateHashLabel]
		pods := c.Store.List("Pod", namespace)
		Expect(pods).To(HaveLen(2))
		for _, pod := range pods {
			Expect(pod.GetLabels()).To(HaveKeyWithValue(controllers.PodTemplateHashLabel, newHash))
		}
	})

	It("reuses the replica set of an earlier template on rollback", func() {
		first := replicaSets()["api:1"].UID
		setImage("api:2")
		setImage("api:1")

		sets := replicaSets()
		Expect(sets).To(HaveLen(2))
		Expect(sets["api:1"].UID).To(Equal(first))
		Expect(sets["api:1"].DesiredReplicas()).To(BeEquivalentTo(2))
		Expect(sets["api:1"].Annotations).To(HaveKeyWithValue(controllers.RevisionAnnotation, "3"))
		Expect(sets["api:2"].DesiredReplicas()).To(BeZero())
	})

	It("scales the current replica set", func() {
		_, err := c.Mutate(ctx, object.RefOf(vd), func(obj object.Object) error {
			return unstructured.SetNestedField(obj.Object, int64(4), "spec", "replicas")
		})
		Expect(err).NotTo(HaveOccurred())
		quiesce(c)

		sets := replicaSets()
		Expect(sets).To(HaveLen(1))
		Expect(sets["api:1"].DesiredReplicas()).To(BeEquivalentTo(4))
		Expect(sets["api:1"].Annotations).To(HaveKeyWithValue(controllers.RevisionAnnotation, "1"))
		Expect(c.Store.List("Pod", namespace)).To(HaveLen(4))
	})
})
