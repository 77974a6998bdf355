package metadata_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vreconcile/operators/internal/metadata"
)

var _ = Describe("Annotations", func() {
	var crAnnotations map[string]string

	BeforeEach(func() {
		crAnnotations = map[string]string{
			"team":                          "storage",
			"kubectl.kubernetes.io/restart": "now",
			"deployment.k8s.io/revision":    "4",
		}
	})

	Describe("ReconcileAnnotations", func() {
		It("lets later maps win over the stored annotations", func() {
			stored := map[string]string{"team": "queues", "checksum": "abc"}
			Expect(metadata.ReconcileAnnotations(stored, crAnnotations, map[string]string{"team": "infra"})).To(Equal(map[string]string{
				"team":                          "infra",
				"checksum":                      "abc",
				"kubectl.kubernetes.io/restart": "now",
				"deployment.k8s.io/revision":    "4",
			}))
		})

		It("returns a fresh map for a nil input", func() {
			merged := metadata.ReconcileAnnotations(nil)
			Expect(merged).NotTo(BeNil())
			Expect(merged).To(BeEmpty())
		})

		It("leaves its inputs untouched", func() {
			stored := map[string]string{"checksum": "abc"}
			metadata.ReconcileAnnotations(stored, crAnnotations)
			Expect(stored).To(Equal(map[string]string{"checksum": "abc"}))
		})
	})

	Describe("ReconcileAndFilterAnnotations", func() {
		It("copies only user annotations from the CR onto a child", func() {
			Expect(metadata.ReconcileAndFilterAnnotations(map[string]string{}, crAnnotations)).To(Equal(map[string]string{
				"team": "storage",
			}))
		})

		It("keeps Kubernetes annotations already stored on the child", func() {
			stored := map[string]string{"deployment.k8s.io/revision": "1", "team": "queues"}
			Expect(metadata.ReconcileAndFilterAnnotations(stored, crAnnotations)).To(Equal(map[string]string{
				"deployment.k8s.io/revision": "1",
				"team":                       "storage",
			}))
		})
	})
})
