package cluster_test

import (
	"context"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/builtin/gc"
	"github.com/vreconcile/operators/internal/cluster"
	"github.com/vreconcile/operators/internal/config"
	"github.com/vreconcile/operators/internal/controller"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/pkg/object"
	"gopkg.in/ini.v1"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"
)

func rabbitmqConfig(extra string) *config.Config {
	cfg, err := config.NewConfig([]byte(`
namespace: ns
controllers:
- name: rabbitmq
` + extra))
	Expect(err).NotTo(HaveOccurred())
	return cfg
}

func rabbit(name string, replicas int32) *v1beta1.RabbitmqCluster {
	return &v1beta1.RabbitmqCluster{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "ns"},
		Spec:       v1beta1.RabbitmqClusterSpec{Replicas: ptr.To(replicas)},
	}
}

var (
	stsRef         = object.Ref{Kind: "StatefulSet", Namespace: "ns", Name: "r-server"}
	serverConfRef  = object.Ref{Kind: "ConfigMap", Namespace: "ns", Name: "r-server-conf"}
	rabbitChildren = []object.Ref{
		{Kind: "Service", Namespace: "ns", Name: "r-nodes"},
		{Kind: "Service", Namespace: "ns", Name: "r"},
		{Kind: "Secret", Namespace: "ns", Name: "r-erlang-cookie"},
		{Kind: "Secret", Namespace: "ns", Name: "r-default-user"},
		{Kind: "ConfigMap", Namespace: "ns", Name: "r-plugins-conf"},
		serverConfRef,
		{Kind: "ServiceAccount", Namespace: "ns", Name: "r-server"},
		{Kind: "Role", Namespace: "ns", Name: "r-peer-discovery"},
		{Kind: "RoleBinding", Namespace: "ns", Name: "r-server"},
		stsRef,
	}
)

func replicasOf(obj object.Object) int64 {
	replicas, _, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	return replicas
}

func expectControlledChildren(c *cluster.Cluster, cr object.Object) {
	GinkgoHelper()
	for _, ref := range rabbitChildren {
		obj, err := c.Store.Get(ref)
		Expect(err).NotTo(HaveOccurred(), ref.String())
		owner := object.ControllerOf(obj)
		Expect(owner).NotTo(BeNil(), ref.String())
		Expect(owner.Kind).To(Equal(v1beta1.RabbitmqClusterKind))
		Expect(owner.Name).To(Equal(cr.GetName()))
		Expect(owner.UID).To(Equal(cr.GetUID()))
	}
}

var _ = Describe("Cluster", func() {
	var (
		ctx  context.Context
		c    *cluster.Cluster
		ctrl *controller.Controller
		cr   object.Object
		key  object.Ref
	)

	createRabbit := func() {
		var err error
		cr, err = c.Create(ctx, rabbit("r", 3))
		Expect(err).NotTo(HaveOccurred())
		key = object.RefOf(cr)
	}

	BeforeEach(func() {
		ctx = context.Background()
		c = newCluster(rabbitmqConfig(""))
		ctrl = c.Controller(config.RabbitMQ)
		Expect(ctrl).NotTo(BeNil())
	})

	When("a cluster is created in an empty store", func() {
		BeforeEach(func() {
			createRabbit()
			quiesce(c)
		})

		It("creates every sub-resource controlled by the cluster", func() {
			expectControlledChildren(c, cr)
			sts, err := c.Store.Get(stsRef)
			Expect(err).NotTo(HaveOccurred())
			Expect(replicasOf(sts)).To(BeEquivalentTo(3))
		})

		It("adds the finalizer and reports the default user", func() {
			obj, err := c.Store.Get(key)
			Expect(err).NotTo(HaveOccurred())
			typed := &v1beta1.RabbitmqCluster{}
			Expect(object.Into(obj, typed)).To(Succeed())
			Expect(typed.Finalizers).To(ConsistOf("deletion.finalizers.rabbitmqclusters.vreconcile.io"))
			Expect(typed.Status.DefaultUser).NotTo(BeNil())
			Expect(typed.Status.DefaultUser.SecretReference.Name).To(Equal("r-default-user"))
			Expect(typed.Status.DefaultUser.ServiceReference.Name).To(Equal("r"))
		})

		It("leaves nothing in flight", func() {
			Expect(c.Step()).To(BeFalse())
			Expect(c.Bus.Len()).To(BeZero())
			Expect(ctrl.Ongoing()).To(BeEmpty())
		})

		It("only reads when reconciled again against a matching store", func() {
			_, rvBefore := c.Store.Counters()
			ctrl.Crash()
			ctrl.Restart()
			Expect(ctrl.Pickup(key)).To(BeTrue())

			var verbs []message.Verb
			_, running := drive(c, ctrl, key, func(inst controller.Instance) bool {
				if inst.HasPending {
					verbs = append(verbs, inst.Pending.Verb)
				}
				return false
			})
			Expect(running).To(BeFalse())
			Expect(verbs).NotTo(BeEmpty())
			Expect(verbs).To(HaveEach(Equal(message.Get)))
			_, rvAfter := c.Store.Counters()
			Expect(rvAfter).To(Equal(rvBefore))
		})

		It("scales the statefulset without touching the other sub-resources", func() {
			versions := map[object.Ref]string{}
			for _, ref := range rabbitChildren {
				obj, err := c.Store.Get(ref)
				Expect(err).NotTo(HaveOccurred())
				versions[ref] = obj.GetResourceVersion()
			}

			_, err := c.Mutate(ctx, key, func(obj object.Object) error {
				return unstructured.SetNestedField(obj.Object, int64(5), "spec", "replicas")
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.Scheduled()).To(ConsistOf(key))
			Expect(ctrl.Pickup(key)).To(BeTrue())

			inst, running := drive(c, ctrl, key, pendingOn(message.GetThenUpdate, stsRef))
			Expect(running).To(BeTrue())
			Expect(inst.State.Step()).To(Equal("AfterUpdate(StatefulSet/r-server)"))
			Expect(replicasOf(inst.Pending.Object)).To(BeEquivalentTo(5))

			quiesce(c)
			sts, err := c.Store.Get(stsRef)
			Expect(err).NotTo(HaveOccurred())
			Expect(replicasOf(sts)).To(BeEquivalentTo(5))
			for _, ref := range rabbitChildren {
				if ref == stsRef {
					continue
				}
				obj, err := c.Store.Get(ref)
				Expect(err).NotTo(HaveOccurred())
				Expect(obj.GetResourceVersion()).To(Equal(versions[ref]), ref.String())
			}
		})

		It("retries an update that lost a race with a crashed reconcile", func() {
			_, err := c.Mutate(ctx, key, func(obj object.Object) error {
				return unstructured.SetNestedField(obj.Object, "log.console.level = debug", "spec", "rabbitmq", "additionalConfig")
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(ctrl.Pickup(key)).To(BeTrue())
			first, _ := drive(c, ctrl, key, pendingOn(message.GetThenUpdate, serverConfRef))

			ctrl.Crash()
			ctrl.Restart()
			Expect(ctrl.Pickup(key)).To(BeTrue())
			second, _ := drive(c, ctrl, key, pendingOn(message.GetThenUpdate, serverConfRef))
			Expect(second.PendingID).NotTo(Equal(first.PendingID))

			Expect(c.APIServer.HandleID(first.PendingID)).To(BeTrue())
			Expect(c.APIServer.HandleID(second.PendingID)).To(BeTrue())
			resp := c.Bus.Messages()
			Expect(resp).To(ContainElement(WithTransform(func(m message.Message) bool {
				return m.ID == second.PendingID && apierrors.IsConflict(m.Response.Err)
			}, BeTrue())))

			Expect(ctrl.Continue(key)).To(BeTrue())
			inst := ctrl.Ongoing()[key]
			Expect(inst.State.Step()).To(Equal("AfterGet(ConfigMap/r-server-conf)"))
			Expect(inst.Pending.Verb).To(Equal(message.Get))

			quiesce(c)
			cm, err := c.Store.Get(serverConfRef)
			Expect(err).NotTo(HaveOccurred())
			data, _, _ := unstructured.NestedStringMap(cm.Object, "data")
			conf, err := ini.Load([]byte(data["rabbitmq.conf"]))
			Expect(err).NotTo(HaveOccurred())
			Expect(conf.Section("").Key("log.console.level").Value()).To(Equal("debug"))
		})

		It("collects the sub-resources of a deleted cluster under random interleavings", func() {
			Expect(c.Delete(ctx, key)).To(Succeed())
			_, err := c.Explore(rand.New(rand.NewSource(3)), cluster.ExploreOptions{Steps: 600, CrashOneIn: 40})
			Expect(err).NotTo(HaveOccurred())
			quiesce(c)
			for _, ref := range rabbitChildren {
				_, err := c.Store.Get(ref)
				Expect(apierrors.IsNotFound(err)).To(BeTrue(), ref.String())
			}
		})

		It("removes the cluster and collects its sub-resources on delete", func() {
			Expect(c.Delete(ctx, key)).To(Succeed())
			obj, err := c.Store.Get(key)
			Expect(err).NotTo(HaveOccurred())
			Expect(object.IsDeleting(obj)).To(BeTrue())

			quiesce(c)
			_, err = c.Store.Get(key)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
			for _, ref := range rabbitChildren {
				_, err := c.Store.Get(ref)
				Expect(apierrors.IsNotFound(err)).To(BeTrue(), ref.String())
			}
		})
	})

	When("a sub-resource is left behind by an earlier cluster of the same name", func() {
		var stale object.Object

		BeforeEach(func() {
			earlier, err := c.Create(ctx, rabbit("r", 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Delete(ctx, object.RefOf(earlier))).To(Succeed())

			stale, err = c.Create(ctx, &appsv1.StatefulSet{
				ObjectMeta: metav1.ObjectMeta{
					Name:      "r-server",
					Namespace: "ns",
					OwnerReferences: []metav1.OwnerReference{{
						APIVersion:         v1beta1.GroupVersion.String(),
						Kind:               v1beta1.RabbitmqClusterKind,
						Name:               "r",
						UID:                earlier.GetUID(),
						Controller:         ptr.To(true),
						BlockOwnerDeletion: ptr.To(true),
					}},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			createRabbit()
			Expect(cr.GetUID()).NotTo(Equal(stale.GetUID()))
		})

		It("deletes it guarded by its uid and lets the reconcile recreate it", func() {
			Expect(c.GC.Enabled()).To(ContainElement(stsRef))
			Expect(c.GC.StepKey(stsRef)).To(BeTrue())

			requests := c.APIServer.Pending()
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].Request.Verb).To(Equal(message.Delete))
			Expect(requests[0].Request.Ref).To(Equal(stsRef))
			Expect(*requests[0].Request.Preconditions.UID).To(Equal(stale.GetUID()))

			quiesce(c)
			sts, err := c.Store.Get(stsRef)
			Expect(err).NotTo(HaveOccurred())
			Expect(sts.GetUID()).NotTo(Equal(stale.GetUID()))
			Expect(object.ControllerOf(sts).UID).To(Equal(cr.GetUID()))
			expectControlledChildren(c, cr)
		})

		It("converges when left to run on its own", func() {
			quiesce(c)
			expectControlledChildren(c, cr)
		})

		It("only collects orphans while controllers crash", func() {
			_, err := c.Explore(rand.New(rand.NewSource(7)), cluster.ExploreOptions{Steps: 600, CrashOneIn: 40})
			Expect(err).NotTo(HaveOccurred())
			quiesce(c)
			expectControlledChildren(c, cr)
		})
	})

	When("the api-server times out requests", func() {
		BeforeEach(func() {
			c = newCluster(rabbitmqConfig(`apiServer:
  faults:
    timeoutEvery: 50
`))
			ctrl = c.Controller(config.RabbitMQ)
			createRabbit()
		})

		It("still converges through retries", func() {
			quiesce(c)
			expectControlledChildren(c, cr)
		})
	})

	When("the state breaks a safety property", func() {
		BeforeEach(func() {
			createRabbit()
			quiesce(c)
		})

		It("reports a controller owner uid that was never allocated", func() {
			_, err := c.Create(ctx, &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
				Name:      "forged",
				Namespace: "ns",
				OwnerReferences: []metav1.OwnerReference{{
					APIVersion: v1beta1.GroupVersion.String(),
					Kind:       v1beta1.RabbitmqClusterKind,
					Name:       "r",
					UID:        "100000",
					Controller: ptr.To(true),
				}},
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.CheckInvariants()).To(MatchError(ContainSubstring("controlled by uid \"100000\"")))
		})

		It("reports a collector delete aimed at an object with a live owner", func() {
			sts, err := c.Store.Get(stsRef)
			Expect(err).NotTo(HaveOccurred())
			c.Bus.Send(message.Message{
				Src: message.BuiltInEndpoint(gc.Name, stsRef),
				Dst: message.APIServerEndpoint(),
				ID:  c.Bus.NextID(),
				Request: &message.Request{
					Verb:          message.Delete,
					Ref:           stsRef,
					Preconditions: &metav1.Preconditions{UID: ptr.To(sts.GetUID())},
				},
			})
			Expect(c.CheckInvariants()).To(MatchError(ContainSubstring("r-server which has a live owner")))
		})
	})

	When("actions interleave randomly and controllers crash", func() {
		It("keeps the safety properties and converges afterwards", func() {
			createRabbit()
			for seed := int64(1); seed <= 5; seed++ {
				_, err := c.Explore(rand.New(rand.NewSource(seed)), cluster.ExploreOptions{Steps: 400, CrashOneIn: 50})
				Expect(err).NotTo(HaveOccurred())
			}
			quiesce(c)
			expectControlledChildren(c, cr)
			Expect(ctrl.Ongoing()).To(BeEmpty())
		})
	})

	When("every component runs in its own goroutine", func() {
		It("reconciles until the context is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error)
			go func() {
				done <- c.Run(runCtx)
			}()

			var err error
			cr, err = c.Create(runCtx, rabbit("r", 1))
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() error {
				_, err := c.Store.Get(stsRef)
				return err
			}).WithTimeout(10 * time.Second).Should(Succeed())

			cancel()
			Eventually(done).WithTimeout(5 * time.Second).Should(Receive(BeNil()))
			expectControlledChildren(c, cr)
		})
	})
})
