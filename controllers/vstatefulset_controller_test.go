package controllers_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/controllers"
	"github.com/vreconcile/operators/internal/cluster"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/internal/controller"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"
)

func claimTemplate(name string) corev1.PersistentVolumeClaim {
	return corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: resource.MustParse("1Gi")},
			},
		},
	}
}

func step(verb message.Verb, kind, name string) string {
	return fmt.Sprintf("%s %s/%s", verb, kind, name)
}

var _ = Describe("VStatefulSet", func() {
	var (
		c      *cluster.Cluster
		ctrl   *controller.Controller
		vsts   object.Object
		labels = map[string]string{"app": "db"}
	)

	create := func() {
		GinkgoHelper()
		var err error
		vsts, err = c.Create(ctx, &v1beta1.VStatefulSet{
			ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: namespace},
			Spec: v1beta1.VStatefulSetSpec{
				Replicas:             ptr.To[int32](3),
				Selector:             &metav1.LabelSelector{MatchLabels: labels},
				ServiceName:          "db-headless",
				Template:             podTemplate(labels, "db:1"),
				VolumeClaimTemplates: []corev1.PersistentVolumeClaim{claimTemplate("data"), claimTemplate("logs")},
			},
		})
		Expect(err).NotTo(HaveOccurred())
	}

	steps := func() []string {
		GinkgoHelper()
		var out []string
		for _, inst := range record(c, ctrl, object.RefOf(vsts)) {
			out = append(out, step(inst.Pending.Verb, inst.Pending.Ref.Kind, inst.Pending.Ref.Name))
		}
		return out
	}

	pod := func(name string) *corev1.Pod {
		GinkgoHelper()
		obj, err := c.Store.Get(object.Ref{Kind: "Pod", Namespace: namespace, Name: name})
		Expect(err).NotTo(HaveOccurred())
		typed := &corev1.Pod{}
		Expect(object.Into(obj, typed)).To(Succeed())
		return typed
	}

	mutate := func(mutate func(obj object.Object) error) {
		GinkgoHelper()
		_, err := c.Mutate(ctx, object.RefOf(vsts), mutate)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		c = newCluster(config.VStatefulSet)
		ctrl = c.Controller(config.VStatefulSet)
	})

	It("visits every claim of every ordinal before its pod", func() {
		create()
		var expected []string
		expected = append(expected, step(message.List, "Pod", ""))
		for j := 0; j < 3; j++ {
			for _, claim := range []string{"data", "logs"} {
				name := controllers.ClaimName(claim, "db", j)
				expected = append(expected,
					step(message.Get, "PersistentVolumeClaim", name),
					step(message.Create, "PersistentVolumeClaim", name))
			}
			expected = append(expected, step(message.Create, "Pod", controllers.PodName("db", j)))
		}
		Expect(steps()).To(Equal(expected))
	})

	It("skips claims that already exist", func() {
		existing := claimTemplate("data")
		existing.Name = controllers.ClaimName("data", "db", 0)
		existing.Namespace = namespace
		_, err := c.Create(ctx, &existing)
		Expect(err).NotTo(HaveOccurred())
		create()

		got := steps()
		Expect(got).To(ContainElement(step(message.Get, "PersistentVolumeClaim", "data-db-0")))
		Expect(got).NotTo(ContainElement(step(message.Create, "PersistentVolumeClaim", "data-db-0")))
		Expect(got).To(ContainElement(step(message.Create, "PersistentVolumeClaim", "logs-db-0")))
	})

	It("gives every pod a stable identity", func() {
		create()
		quiesce(c)

		for j := 0; j < 3; j++ {
			p := pod(controllers.PodName("db", j))
			Expect(p.Spec.Hostname).To(Equal(p.Name))
			Expect(p.Spec.Subdomain).To(Equal("db-headless"))
			Expect(p.Labels).To(HaveKeyWithValue("app", "db"))
			Expect(p.Labels).To(HaveKeyWithValue(controllers.StatefulSetPodNameLabel, p.Name))
			Expect(p.Labels).To(HaveKey(controllers.ControllerRevisionHashLabel))
			Expect(object.ControllerOf(p).UID).To(Equal(vsts.GetUID()))

			claims := map[string]string{}
			for _, v := range p.Spec.Volumes {
				if v.PersistentVolumeClaim != nil {
					claims[v.Name] = v.PersistentVolumeClaim.ClaimName
				}
			}
			Expect(claims).To(Equal(map[string]string{
				"data": controllers.ClaimName("data", "db", j),
				"logs": controllers.ClaimName("logs", "db", j),
			}))
		}

		claims := c.Store.List("PersistentVolumeClaim", namespace)
		Expect(claims).To(HaveLen(6))
		for _, claim := range claims {
			Expect(claim.GetOwnerReferences()).To(BeEmpty())
			Expect(claim.GetLabels()).To(HaveKeyWithValue("app", "db"))
		}
	})

	It("deletes condemned pods from the highest ordinal down and keeps their claims", func() {
		create()
		quiesce(c)
		mutate(func(obj object.Object) error {
			return unstructured.SetNestedField(obj.Object, int64(1), "spec", "replicas")
		})

		var deleted []string
		for _, s := range steps() {
			if s == step(message.GetThenDelete, "Pod", "db-2") || s == step(message.GetThenDelete, "Pod", "db-1") {
				deleted = append(deleted, s)
			}
		}
		Expect(deleted).To(Equal([]string{
			step(message.GetThenDelete, "Pod", "db-2"),
			step(message.GetThenDelete, "Pod", "db-1"),
		}))

		quiesce(c)
		Expect(names(ownedPods(c, vsts))).To(ConsistOf("db-0"))
		Expect(c.Store.List("PersistentVolumeClaim", namespace)).To(HaveLen(6))
	})

	It("replaces pods of an outdated revision one at a time", func() {
		create()
		quiesce(c)
		oldRevision := pod("db-0").Labels[controllers.ControllerRevisionHashLabel]

		mutate(func(obj object.Object) error {
			containers, _, err := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "containers")
			if err != nil {
				return err
			}
			containers[0].(map[string]any)["image"] = "db:2"
			return unstructured.SetNestedSlice(obj.Object, containers, "spec", "template", "spec", "containers")
		})

		got := steps()
		Expect(got[len(got)-1]).To(Equal(step(message.GetThenDelete, "Pod", "db-2")))

		quiesce(c)
		for j := 0; j < 3; j++ {
			p := pod(controllers.PodName("db", j))
			Expect(p.Labels[controllers.ControllerRevisionHashLabel]).NotTo(Equal(oldRevision))
			Expect(p.Spec.Containers[0].Image).To(Equal("db:2"))
		}
	})

	It("adopts an orphan pod with its ordinal name", func() {
		_, err := c.Create(ctx, &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "db-0", Namespace: namespace, Labels: labels},
			Spec:       podTemplate(labels, "db:1").Spec,
		})
		Expect(err).NotTo(HaveOccurred())
		create()

		var adoption *message.Request
		for _, inst := range record(c, ctrl, object.RefOf(vsts)) {
			if inst.Pending.Verb == message.Update && inst.Pending.Ref.Name == "db-0" {
				adoption = inst.Pending
			}
		}
		Expect(adoption).NotTo(BeNil())
		Expect(object.ControllerOf(adoption.Object).UID).To(Equal(vsts.GetUID()))
		Expect(adoption.Object.GetLabels()).To(HaveKeyWithValue(controllers.StatefulSetPodNameLabel, "db-0"))

		quiesce(c)
		Expect(object.ControllerOf(pod("db-0")).UID).To(Equal(vsts.GetUID()))
		Expect(pod("db-0").Spec.Hostname).To(Equal("db-0"))
	})

	It("fails while a pod of its name belongs to another controller", func() {
		_, err := c.Create(ctx, &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "db-0",
				Namespace: namespace,
				Labels:    labels,
				OwnerReferences: []metav1.OwnerReference{{
					APIVersion: v1beta1.GroupVersion.String(),
					Kind:       v1beta1.VReplicaSetKind,
					Name:       "other",
					UID:        "12345",
					Controller: ptr.To(true),
				}},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		create()

		got := steps()
		Expect(got).NotTo(ContainElement(step(message.Create, "Pod", "db-0")))
		_, backingOff := ctrl.NextWakeup(true)
		Expect(backingOff).To(BeTrue())
		_, err = c.Store.Get(object.Ref{Kind: "Pod", Namespace: namespace, Name: "db-1"})
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})
})
