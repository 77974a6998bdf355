package controllers_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/cluster"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/internal/status"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

func conditionStatus(conditions []status.Condition, conditionType status.ConditionType) corev1.ConditionStatus {
	for _, condition := range conditions {
		if condition.Type == conditionType {
			return condition.Status
		}
	}
	return ""
}

func expectOwned(c *cluster.Cluster, owner object.Object, refs ...object.Ref) {
	GinkgoHelper()
	for _, ref := range refs {
		obj, err := c.Store.Get(ref)
		Expect(err).NotTo(HaveOccurred(), ref.String())
		Expect(object.ControllerOf(obj)).NotTo(BeNil(), ref.String())
		Expect(object.ControllerOf(obj).UID).To(Equal(owner.GetUID()), ref.String())
	}
}

var _ = Describe("ZookeeperCluster", func() {
	It("renders the ensemble and reports its ready replicas", func() {
		c := newCluster(config.ZooKeeper)
		zk, err := c.Create(ctx, &v1beta1.ZookeeperCluster{
			ObjectMeta: metav1.ObjectMeta{Name: "zk", Namespace: namespace},
			Spec:       v1beta1.ZookeeperClusterSpec{Replicas: ptr.To[int32](3)},
		})
		Expect(err).NotTo(HaveOccurred())
		quiesce(c)

		expectOwned(c, zk,
			object.Ref{Kind: "Service", Namespace: namespace, Name: "zk-headless"},
			object.Ref{Kind: "Service", Namespace: namespace, Name: "zk-client"},
			object.Ref{Kind: "Service", Namespace: namespace, Name: "zk-admin-server"},
			object.Ref{Kind: "ConfigMap", Namespace: namespace, Name: "zk-configmap"},
			object.Ref{Kind: "PodDisruptionBudget", Namespace: namespace, Name: "zk"},
			object.Ref{Kind: "StatefulSet", Namespace: namespace, Name: "zk"},
		)

		obj, err := c.Store.Get(object.RefOf(zk))
		Expect(err).NotTo(HaveOccurred())
		typed := &v1beta1.ZookeeperCluster{}
		Expect(object.Into(obj, typed)).To(Succeed())
		Expect(typed.Status.ReadyReplicas).To(BeEquivalentTo(3))
		Expect(conditionStatus(typed.Status.Conditions, status.ReconcileSuccess)).To(Equal(corev1.ConditionTrue))
		Expect(conditionStatus(typed.Status.Conditions, status.AllReplicasReady)).To(Equal(corev1.ConditionTrue))
	})
})

var _ = Describe("FluentBit", func() {
	It("mounts the secret rendered from its configuration", func() {
		c := newCluster(config.FluentBitConfig, config.FluentBit)
		fbc, err := c.Create(ctx, &v1beta1.FluentBitConfig{
			ObjectMeta: metav1.ObjectMeta{Name: "logs-conf", Namespace: namespace},
			Spec: v1beta1.FluentBitConfigSpec{
				Inputs: []v1beta1.FluentBitPlugin{{Name: "tail", Parameters: map[string]string{"Path": "/var/log/containers/*.log"}}},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		fb, err := c.Create(ctx, &v1beta1.FluentBit{
			ObjectMeta: metav1.ObjectMeta{Name: "logs", Namespace: namespace},
			Spec:       v1beta1.FluentBitSpec{FluentBitConfigName: "logs-conf"},
		})
		Expect(err).NotTo(HaveOccurred())
		quiesce(c)

		expectOwned(c, fbc, object.Ref{Kind: "Secret", Namespace: namespace, Name: "logs-conf-config"})
		expectOwned(c, fb,
			object.Ref{Kind: "ServiceAccount", Namespace: namespace, Name: "logs"},
			object.Ref{Kind: "DaemonSet", Namespace: namespace, Name: "logs"},
		)

		obj, err := c.Store.Get(object.RefOf(fb))
		Expect(err).NotTo(HaveOccurred())
		typed := &v1beta1.FluentBit{}
		Expect(object.Into(obj, typed)).To(Succeed())
		Expect(conditionStatus(typed.Status.Conditions, status.AllReplicasReady)).To(Equal(corev1.ConditionTrue))
	})
})
