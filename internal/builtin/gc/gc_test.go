package gc_test

import (
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/internal/apiserver"
	"github.com/vreconcile/operators/internal/builtin/gc"
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/internal/store"
	"github.com/vreconcile/operators/pkg/object"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
)

// replacingStore runs replace once, right after handing out a snapshot, the
// way a concurrent writer can slip in between a read and the delete.
type replacingStore struct {
	*store.Store
	replace func()
}

func (r *replacingStore) Snapshot() []object.Object {
	objs := r.Store.Snapshot()
	if replace := r.replace; replace != nil {
		r.replace = nil
		replace()
	}
	return objs
}

var _ = Describe("GarbageCollector", func() {
	var (
		scheme    *runtime.Scheme
		s         *store.Store
		bus       *message.Bus
		server    *apiserver.APIServer
		collector *gc.GarbageCollector
	)

	BeforeEach(func() {
		scheme = registry.NewScheme()
		installed, err := registry.Default(scheme)
		Expect(err).NotTo(HaveOccurred())
		s = store.New(installed, clocktesting.NewFakePassiveClock(time.Now()), logr.Discard())
		bus = message.NewBus()
		server = &apiserver.APIServer{Store: s, Bus: bus, Types: installed, Log: logr.Discard()}
		collector = &gc.GarbageCollector{Store: s, Bus: bus, Log: logr.Discard()}
	})

	configMap := func(name string, owners ...metav1.OwnerReference) object.Object {
		obj, err := object.FromTyped(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
			Name: name, Namespace: "default", OwnerReferences: owners,
		}}, scheme)
		Expect(err).NotTo(HaveOccurred())
		created, err := s.Create(obj)
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	ownedBy := func(owner object.Object) metav1.OwnerReference {
		return metav1.OwnerReference{
			APIVersion: "v1",
			Kind:       owner.GetKind(),
			Name:       owner.GetName(),
			UID:        owner.GetUID(),
			Controller: ptr.To(true),
		}
	}

	It("leaves objects without owners or with a live owner alone", func() {
		owner := configMap("owner")
		configMap("child", ownedBy(owner))
		Expect(collector.Enabled()).To(BeEmpty())
		Expect(collector.Step()).To(BeFalse())
	})

	It("deletes an object whose owner is gone", func() {
		owner := configMap("owner")
		child := configMap("child", ownedBy(owner))
		Expect(s.Delete(object.RefOf(owner), nil)).To(Succeed())

		Expect(collector.Enabled()).To(ConsistOf(object.RefOf(child)))
		Expect(collector.Step()).To(BeTrue())
		Expect(collector.Enabled()).To(BeEmpty())

		req := bus.Requests()[0]
		Expect(req.Request.Verb).To(Equal(message.Delete))
		Expect(*req.Request.Preconditions.UID).To(Equal(child.GetUID()))

		Expect(server.Step(nil)).To(BeTrue())
		Expect(collector.HasResponses()).To(BeTrue())
		Expect(collector.Step()).To(BeTrue())
		Expect(bus.Len()).To(BeZero())
		_, err := s.Get(object.RefOf(child))
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("treats an owner recreated with a new uid as gone", func() {
		owner := configMap("owner")
		child := configMap("child", ownedBy(owner))
		Expect(s.Delete(object.RefOf(owner), nil)).To(Succeed())
		configMap("owner")
		Expect(collector.Enabled()).To(ConsistOf(object.RefOf(child)))
	})

	It("does not delete a replacement that appeared while the delete was in flight", func() {
		owner := configMap("owner")
		child := configMap("child", ownedBy(owner))
		Expect(s.Delete(object.RefOf(owner), nil)).To(Succeed())
		Expect(collector.StepKey(object.RefOf(child))).To(BeTrue())

		Expect(s.Delete(object.RefOf(child), nil)).To(Succeed())
		replacement := configMap("child")

		Expect(server.Step(nil)).To(BeTrue())
		Expect(collector.Receive()).To(BeTrue())
		got, err := s.Get(object.RefOf(replacement))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.GetUID()).To(Equal(replacement.GetUID()))
	})

	It("pins the delete to the object it judged even if it is replaced right after", func() {
		owner := configMap("owner")
		child := configMap("child", ownedBy(owner))
		Expect(s.Delete(object.RefOf(owner), nil)).To(Succeed())
		liveOwner := configMap("other-owner")

		var replacement object.Object
		collector.Store = &replacingStore{Store: s, replace: func() {
			defer GinkgoRecover()
			Expect(s.Delete(object.RefOf(child), nil)).To(Succeed())
			replacement = configMap("child", ownedBy(liveOwner))
		}}

		Expect(collector.StepKey(object.RefOf(child))).To(BeTrue())
		req := bus.Requests()[0]
		Expect(*req.Request.Preconditions.UID).To(Equal(child.GetUID()))

		Expect(server.Step(nil)).To(BeTrue())
		Expect(collector.Receive()).To(BeTrue())
		got, err := s.Get(object.RefOf(child))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.GetUID()).To(Equal(replacement.GetUID()))
	})
})
