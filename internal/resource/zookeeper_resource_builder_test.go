package resource_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/pipeline"
	"github.com/vreconcile/operators/internal/resource"
	"github.com/vreconcile/operators/pkg/object"
	"gopkg.in/ini.v1"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var _ = Describe("ZookeeperResourceBuilder", func() {
	var (
		instance *v1beta1.ZookeeperCluster
		builders func() []pipeline.ResourceBuilder
		observed pipeline.Observed
	)

	BeforeEach(func() {
		instance = &v1beta1.ZookeeperCluster{
			ObjectMeta: metav1.ObjectMeta{Name: "zk", Namespace: "a-namespace", UID: types.UID("3")},
		}
		instance.Default()
		observed = nil
		builders = func() []pipeline.ResourceBuilder {
			return resource.ZookeeperBuilders(scheme)(instance, observed)
		}
	})

	render := func(kind string) client.Object {
		for _, b := range builders() {
			obj := build(b)
			gvks, _, err := scheme.ObjectKinds(obj)
			Expect(err).NotTo(HaveOccurred())
			if gvks[0].Kind == kind {
				return obj
			}
		}
		Fail("no builder renders " + kind)
		return nil
	}

	It("renders services, config, disruption budget and statefulset", func() {
		var names []string
		for _, b := range builders() {
			obj := build(b)
			expectControlledBy(obj, instance)
			names = append(names, obj.GetName())
		}
		Expect(names).To(Equal([]string{"zk-headless", "zk-client", "zk-admin-server", "zk-configmap", "zk", "zk"}))
	})

	It("renders zoo.cfg from the defaulted configuration", func() {
		configMap := render("ConfigMap").(*corev1.ConfigMap)
		cfg, err := ini.Load([]byte(configMap.Data["zoo.cfg"]))
		Expect(err).NotTo(HaveOccurred())
		section := cfg.Section("")
		Expect(section.Key("tickTime").Value()).To(Equal("2000"))
		Expect(section.Key("minSessionTimeout").Value()).To(Equal("4000"))
		Expect(section.Key("maxSessionTimeout").Value()).To(Equal("40000"))
		Expect(section.Key("admin.serverPort").Value()).To(Equal("8080"))
		Expect(section.Key("dataDir").Value()).To(Equal("/data"))

		Expect(configMap.Data["env.sh"]).To(ContainSubstring("DOMAIN=zk-headless.a-namespace.svc.cluster.local\n"))
		Expect(configMap.Data["env.sh"]).To(ContainSubstring("CLUSTER_SIZE=3\n"))
	})

	It("allows one disruption unless the ensemble has a single node", func() {
		pdb := render("PodDisruptionBudget").(*policyv1.PodDisruptionBudget)
		Expect(pdb.Spec.MaxUnavailable.IntValue()).To(Equal(1))

		instance.Spec.Replicas = ptr.To[int32](1)
		pdb = render("PodDisruptionBudget").(*policyv1.PodDisruptionBudget)
		Expect(pdb.Spec.MaxUnavailable.IntValue()).To(Equal(0))
	})

	It("exposes every port on the headless service only", func() {
		var headless, clientService *corev1.Service
		for _, b := range builders() {
			if service, ok := build(b).(*corev1.Service); ok {
				switch service.Name {
				case "zk-headless":
					headless = service
				case "zk-client":
					clientService = service
				}
			}
		}
		Expect(headless.Spec.ClusterIP).To(Equal(corev1.ClusterIPNone))
		Expect(headless.Spec.Ports).To(HaveLen(5))
		Expect(clientService.Spec.Ports).To(ConsistOf(corev1.ServicePort{Name: "tcp-client", Port: 2181, Protocol: corev1.ProtocolTCP}))
	})

	It("starts pods in order and annotates them with the observed config version", func() {
		conf := object.New(corev1.SchemeGroupVersion.WithKind("ConfigMap"))
		conf.SetNamespace("a-namespace")
		conf.SetName("zk-configmap")
		conf.SetResourceVersion("5")
		observed = pipeline.Observed{object.RefOf(conf): conf}

		sts := render("StatefulSet").(*appsv1.StatefulSet)
		Expect(sts.Spec.PodManagementPolicy).To(Equal(appsv1.OrderedReadyPodManagement))
		Expect(*sts.Spec.Replicas).To(BeEquivalentTo(3))
		Expect(sts.Spec.ServiceName).To(Equal("zk-headless"))
		Expect(sts.Spec.VolumeClaimTemplates[0].Name).To(Equal("data"))
		Expect(sts.Spec.Template.Annotations).To(HaveKeyWithValue(resource.ZookeeperConfVersionAnnotation, "5"))
	})
})
