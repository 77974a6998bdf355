package apiserver_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/apiserver"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var _ = Describe("APIServer", func() {
	var (
		scheme *runtime.Scheme
		server *apiserver.APIServer
		bus    *message.Bus
		m      *metrics.Metrics
	)

	BeforeEach(func() {
		scheme = registry.NewScheme()
		installed, err := registry.Default(scheme)
		Expect(err).NotTo(HaveOccurred())
		log := zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true))
		bus = message.NewBus()
		m = metrics.New(prometheus.NewRegistry())
		server = &apiserver.APIServer{
			Store:   store.New(installed, clocktesting.NewFakePassiveClock(time.Now()), log),
			Bus:     bus,
			Types:   installed,
			Log:     log,
			Metrics: m,
		}
	})

	rabbitmq := func(replicas int32) object.Object {
		obj, err := object.FromTyped(&v1beta1.RabbitmqCluster{
			ObjectMeta: metav1.ObjectMeta{Name: "r", Namespace: "default"},
			Spec:       v1beta1.RabbitmqClusterSpec{Replicas: ptr.To(replicas)},
		}, scheme)
		Expect(err).NotTo(HaveOccurred())
		return obj
	}

	create := func(obj object.Object) *message.Response {
		return server.Handle(&message.Request{Verb: message.Create, Ref: object.RefOf(obj), Object: obj})
	}

	It("creates and gets objects", func() {
		resp := create(rabbitmq(1))
		Expect(resp.Err).NotTo(HaveOccurred())
		Expect(resp.Object.GetUID()).NotTo(BeEmpty())

		resp = server.Handle(&message.Request{Verb: message.Get, Ref: object.RefOf(resp.Object)})
		Expect(resp.Ok()).To(BeTrue())
		Expect(resp.Object.GetName()).To(Equal("r"))
		Expect(testutil.ToFloat64(m.APIServerRequests.WithLabelValues("Create", "OK"))).To(Equal(1.0))
	})

	It("rejects invalid objects with BadRequest without mutating the store", func() {
		resp := create(rabbitmq(-1))
		Expect(apierrors.IsBadRequest(resp.Err)).To(BeTrue())
		uid, rv := server.Store.Counters()
		Expect(uid).To(BeEquivalentTo(1))
		Expect(rv).To(BeEquivalentTo(1))
	})

	It("rejects objects without a name", func() {
		obj := rabbitmq(1)
		obj.SetName("")
		Expect(apierrors.IsBadRequest(create(obj).Err)).To(BeTrue())
	})

	It("rejects more than one controller owner reference", func() {
		cm, err := object.FromTyped(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
			Name: "c", Namespace: "default",
			OwnerReferences: []metav1.OwnerReference{
				{Kind: "RabbitmqCluster", Name: "a", UID: "1", Controller: ptr.To(true)},
				{Kind: "RabbitmqCluster", Name: "b", UID: "2", Controller: ptr.To(true)},
			},
		}}, scheme)
		Expect(err).NotTo(HaveOccurred())
		Expect(apierrors.IsBadRequest(create(cm).Err)).To(BeTrue())
	})

	It("rejects forbidden transitions", func() {
		created := create(rabbitmq(3)).Object
		next := created.DeepCopy()
		Expect(next.Object["spec"].(map[string]any)["replicas"]).To(BeEquivalentTo(3))
		next.Object["spec"].(map[string]any)["replicas"] = int64(1)
		resp := server.Handle(&message.Request{Verb: message.Update, Ref: object.RefOf(next), Object: next})
		Expect(apierrors.IsBadRequest(resp.Err)).To(BeTrue())

		next.Object["spec"].(map[string]any)["replicas"] = int64(5)
		resp = server.Handle(&message.Request{Verb: message.Update, Ref: object.RefOf(next), Object: next})
		Expect(resp.Err).NotTo(HaveOccurred())
		Expect(resp.Object.GetGeneration()).To(BeEquivalentTo(2))
	})

	It("requires an owner for the guarded verbs", func() {
		created := create(rabbitmq(1)).Object
		resp := server.Handle(&message.Request{Verb: message.GetThenDelete, Ref: object.RefOf(created)})
		Expect(apierrors.IsBadRequest(resp.Err)).To(BeTrue())
		resp = server.Handle(&message.Request{Verb: message.GetThenUpdate, Ref: object.RefOf(created), Object: created})
		Expect(apierrors.IsBadRequest(resp.Err)).To(BeTrue())
	})

	It("answers GetThenUpdate with InvalidOwner when the owner differs", func() {
		created := create(rabbitmq(1)).Object
		resp := server.Handle(&message.Request{
			Verb:   message.GetThenUpdate,
			Ref:    object.RefOf(created),
			Object: created,
			Owner:  &metav1.OwnerReference{Kind: "Other", Name: "x", UID: "9"},
		})
		Expect(store.IsInvalidOwner(resp.Err)).To(BeTrue())
	})

	It("lists installed kinds only", func() {
		create(rabbitmq(1))
		resp := server.Handle(&message.Request{Verb: message.List, Ref: object.Ref{Kind: v1beta1.RabbitmqClusterKind, Namespace: "default"}})
		Expect(resp.Items).To(HaveLen(1))
		resp = server.Handle(&message.Request{Verb: message.List, Ref: object.Ref{Kind: "Widget"}})
		Expect(apierrors.IsBadRequest(resp.Err)).To(BeTrue())
	})

	It("answers every request on the bus exactly once, keeping its id", func() {
		src := message.ClientEndpoint("test")
		obj := rabbitmq(1)
		id := bus.NextID()
		bus.Send(message.Message{Src: src, Dst: server.Endpoint(), ID: id,
			Request: &message.Request{Verb: message.Create, Ref: object.RefOf(obj), Object: obj}})

		Expect(server.Step(nil)).To(BeTrue())
		Expect(server.Step(nil)).To(BeFalse())
		resp, ok := bus.Receive(id, src)
		Expect(ok).To(BeTrue())
		Expect(resp.Response.Ok()).To(BeTrue())
		Expect(bus.Len()).To(BeZero())
	})

	It("injects timeouts without touching the store", func() {
		server.Faults = &apiserver.EveryNth{N: 2}
		Expect(create(rabbitmq(1)).Err).NotTo(HaveOccurred())
		obj := rabbitmq(1)
		obj.SetName("second")
		resp := create(obj)
		Expect(apierrors.IsTimeout(resp.Err)).To(BeTrue())
		Expect(server.Store.List(v1beta1.RabbitmqClusterKind, "")).To(HaveLen(1))
	})
})
