package controller_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vreconcile/operators/internal/apiserver"
	"github.com/vreconcile/operators/internal/controller"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/metrics"
	"github.com/vreconcile/operators/internal/reconciler"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// secretReconciler makes sure every ConfigMap has a Secret of the same name.
// ConfigMaps labelled fail=true end in Error.
type secretReconciler struct {
	scheme *runtime.Scheme
}

func (secretReconciler) Kind() string { return "ConfigMap" }

func (secretReconciler) Init() reconciler.State {
	return reconciler.Phase{Name: "Init"}
}

func (r secretReconciler) Reconcile(cr object.Object, resp *message.Response, state reconciler.State) (reconciler.State, *message.Request) {
	ref := object.Ref{Kind: "Secret", Namespace: cr.GetNamespace(), Name: cr.GetName()}
	switch state.Step() {
	case "Init":
		if cr.GetLabels()["fail"] == "true" {
			return reconciler.ErrorPhase(errors.New("asked to fail")), nil
		}
		return reconciler.Phase{Name: "AfterGet"}, reconciler.GetRequest(ref)
	case "AfterGet":
		if resp.Ok() {
			return reconciler.DonePhase(), nil
		}
		if !apierrors.IsNotFound(resp.Err) {
			return reconciler.ErrorPhase(resp.Err), nil
		}
		secret, err := object.FromTyped(&corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:            ref.Name,
				Namespace:       ref.Namespace,
				OwnerReferences: []metav1.OwnerReference{reconciler.ControllerRef(cr)},
			},
		}, r.scheme)
		if err != nil {
			return reconciler.ErrorPhase(err), nil
		}
		return reconciler.Phase{Name: "AfterCreate"}, reconciler.CreateRequest(secret)
	case "AfterCreate":
		if resp.Ok() {
			return reconciler.DonePhase(), nil
		}
		return reconciler.ErrorPhase(resp.Err), nil
	}
	return reconciler.ErrorPhase(errors.New("unknown step " + state.Step())), nil
}

var _ = Describe("Controller", func() {
	var (
		scheme   *runtime.Scheme
		clk      *clocktesting.FakeClock
		st       *store.Store
		bus      *message.Bus
		server   *apiserver.APIServer
		ctrl     *controller.Controller
		recorder *record.FakeRecorder
		m        *metrics.Metrics
	)

	BeforeEach(func() {
		scheme = registry.NewScheme()
		installed, err := registry.Default(scheme)
		Expect(err).NotTo(HaveOccurred())
		log := zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true))
		clk = clocktesting.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		st = store.New(installed, clk, log)
		bus = message.NewBus()
		m = metrics.New(prometheus.NewRegistry())
		server = &apiserver.APIServer{Store: st, Bus: bus, Types: installed, Log: log, Metrics: m}
		recorder = record.NewFakeRecorder(100)
		ctrl = &controller.Controller{
			Name:       "secrets",
			Reconciler: secretReconciler{scheme: scheme},
			Store:      st,
			Bus:        bus,
			Log:        log,
			Recorder:   recorder,
			Metrics:    m,
			Clock:      clk,
		}
	})

	configMap := func(name string, labels map[string]string) object.Object {
		obj, err := object.FromTyped(&corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default", Labels: labels},
		}, scheme)
		Expect(err).NotTo(HaveOccurred())
		return obj
	}

	settle := func() {
		for i := 0; i < 1000; i++ {
			if !server.Step(func(int) int { return 0 }) && !ctrl.Step() {
				return
			}
		}
		Fail("system did not settle")
	}

	It("reconciles CRs that exist before setup", func() {
		_, err := st.Create(configMap("before", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl.Setup()).To(Succeed())
		Expect(ctrl.Scheduled()).To(ConsistOf(object.Ref{Kind: "ConfigMap", Namespace: "default", Name: "before"}))

		settle()
		_, err = st.Get(object.Ref{Kind: "Secret", Namespace: "default", Name: "before"})
		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.Events).To(Receive(ContainSubstring("SuccessfulCreate")))
		Expect(testutil.ToFloat64(m.ReconcileTotal.WithLabelValues("secrets", "Done"))).To(Equal(1.0))
	})

	It("keeps at most one request in flight per instance", func() {
		Expect(ctrl.Setup()).To(Succeed())
		_, err := st.Create(configMap("one", nil))
		Expect(err).NotTo(HaveOccurred())
		key := object.Ref{Kind: "ConfigMap", Namespace: "default", Name: "one"}

		Expect(ctrl.Pickup(key)).To(BeTrue())
		Expect(ctrl.Pickup(key)).To(BeFalse())
		Expect(ctrl.Continue(key)).To(BeTrue())
		Expect(bus.Requests()).To(HaveLen(1))
		Expect(ctrl.Continuable()).To(BeEmpty())
		Expect(ctrl.Continue(key)).To(BeFalse())

		Expect(server.Step(func(int) int { return 0 })).To(BeTrue())
		Expect(ctrl.Continuable()).To(ConsistOf(key))
	})

	It("marks a CR changed during its reconcile and reschedules it at the end", func() {
		Expect(ctrl.Setup()).To(Succeed())
		created, err := st.Create(configMap("busy", nil))
		Expect(err).NotTo(HaveOccurred())
		key := object.RefOf(created)
		Expect(ctrl.Pickup(key)).To(BeTrue())

		created.Object["data"] = map[string]any{"k": "v"}
		_, err = st.Update(created)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl.Scheduled()).To(BeEmpty())

		for ctrl.Continue(key) || server.Step(func(int) int { return 0 }) {
		}
		Expect(ctrl.Ongoing()).To(BeEmpty())
		Expect(ctrl.Scheduled()).To(ConsistOf(key))
	})

	It("backs off after an error and retries once the delay has passed", func() {
		Expect(ctrl.Setup()).To(Succeed())
		_, err := st.Create(configMap("broken", map[string]string{"fail": "true"}))
		Expect(err).NotTo(HaveOccurred())

		settle()
		Expect(recorder.Events).To(Receive(ContainSubstring("ReconcileError")))
		Expect(ctrl.Scheduled()).To(BeEmpty())
		at, ok := ctrl.NextWakeup(true)
		Expect(ok).To(BeTrue())
		Expect(at).To(Equal(clk.Now().Add(5 * time.Millisecond)))

		clk.Step(5 * time.Millisecond)
		ctrl.Tick()
		Expect(ctrl.Scheduled()).To(HaveLen(1))

		settle()
		at, ok = ctrl.NextWakeup(true)
		Expect(ok).To(BeTrue())
		Expect(at).To(Equal(clk.Now().Add(10 * time.Millisecond)))
	})

	It("requeues a finished CR after RequeueAfter", func() {
		ctrl.RequeueAfter = time.Minute
		Expect(ctrl.Setup()).To(Succeed())
		_, err := st.Create(configMap("periodic", nil))
		Expect(err).NotTo(HaveOccurred())
		settle()

		_, ok := ctrl.NextWakeup(true)
		Expect(ok).To(BeFalse())
		at, ok := ctrl.NextWakeup(false)
		Expect(ok).To(BeTrue())
		Expect(at).To(Equal(clk.Now().Add(time.Minute)))

		clk.Step(time.Minute)
		ctrl.Tick()
		Expect(ctrl.Scheduled()).To(HaveLen(1))
	})

	It("discards responses left behind by a crash", func() {
		Expect(ctrl.Setup()).To(Succeed())
		created, err := st.Create(configMap("crashy", nil))
		Expect(err).NotTo(HaveOccurred())
		key := object.RefOf(created)
		Expect(ctrl.Pickup(key)).To(BeTrue())
		Expect(ctrl.Continue(key)).To(BeTrue())

		ctrl.Crash()
		Expect(ctrl.Ongoing()).To(BeEmpty())
		Expect(ctrl.Scheduled()).To(BeEmpty())
		Expect(server.Step(func(int) int { return 0 })).To(BeTrue())
		Expect(ctrl.HasStale()).To(BeTrue())
		Expect(ctrl.DiscardStale()).To(BeTrue())
		Expect(bus.Len()).To(Equal(0))

		ctrl.Restart()
		Expect(ctrl.Scheduled()).To(ConsistOf(key))
		settle()
		_, err = st.Get(object.Ref{Kind: "Secret", Namespace: "default", Name: "crashy"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("forgets CRs that are deleted", func() {
		Expect(ctrl.Setup()).To(Succeed())
		created, err := st.Create(configMap("gone", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Delete(object.RefOf(created), nil)).To(Succeed())
		Expect(ctrl.Scheduled()).To(BeEmpty())
	})

	When("watching owned objects", func() {
		It("triggers the controlling CR when an owned object changes", func() {
			ctrl.WatchOwned = true
			Expect(ctrl.Setup()).To(Succeed())
			_, err := st.Create(configMap("owner", nil))
			Expect(err).NotTo(HaveOccurred())
			settle()
			Expect(ctrl.Scheduled()).To(BeEmpty())

			Expect(st.Delete(object.Ref{Kind: "Secret", Namespace: "default", Name: "owner"}, nil)).To(Succeed())
			Expect(ctrl.Scheduled()).To(HaveLen(1))
			settle()
			_, err = st.Get(object.Ref{Kind: "Secret", Namespace: "default", Name: "owner"})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
