package v1beta1

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var _ = Describe("FluentBit", func() {
	It("requires a config reference", func() {
		fb := &FluentBit{ObjectMeta: metav1.ObjectMeta{Name: "fb"}}
		Expect(apierrors.IsInvalid(fb.ValidateCreate())).To(BeTrue())

		fb.Spec.FluentBitConfigName = "cfg"
		Expect(fb.ValidateCreate()).To(Succeed())
		Expect(fb.ValidateUpdate(fb.DeepCopy())).To(Succeed())
	})

	It("defaults the image and metrics port", func() {
		fb := &FluentBit{}
		fb.Default()
		Expect(fb.Spec.Image).To(Equal(defaultFluentBitImage))
		Expect(fb.Spec.MetricsPort).To(BeEquivalentTo(2020))
	})
})

var _ = Describe("FluentBitConfig", func() {
	var cfg *FluentBitConfig

	BeforeEach(func() {
		cfg = &FluentBitConfig{
			ObjectMeta: metav1.ObjectMeta{Name: "cfg"},
			Spec: FluentBitConfigSpec{
				Inputs:  []FluentBitPlugin{{Name: "tail", Tag: "kube.*"}},
				Outputs: []FluentBitPlugin{{Name: "stdout", Match: "*"}},
				Parsers: []FluentBitParser{{Name: "docker", Format: "json"}},
			},
		}
	})

	It("accepts a well formed config", func() {
		Expect(cfg.ValidateCreate()).To(Succeed())
	})

	It("rejects nameless plugins", func() {
		cfg.Spec.Filters = []FluentBitPlugin{{Match: "*"}}
		Expect(apierrors.IsInvalid(cfg.ValidateCreate())).To(BeTrue())
	})

	It("rejects unknown log levels", func() {
		cfg.Spec.Service.LogLevel = "loud"
		Expect(apierrors.IsInvalid(cfg.ValidateCreate())).To(BeTrue())
	})

	It("rejects parsers without a format", func() {
		cfg.Spec.Parsers = append(cfg.Spec.Parsers, FluentBitParser{Name: "bad"})
		Expect(apierrors.IsInvalid(cfg.ValidateCreate())).To(BeTrue())
	})
})
