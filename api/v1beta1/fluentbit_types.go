// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package v1beta1

import (
	"fmt"

	"github.com/vreconcile/operators/internal/status"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	FluentBitKind       = "FluentBit"
	FluentBitConfigKind = "FluentBitConfig"

	defaultFluentBitImage = "fluent/fluent-bit:3.1.9"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
type FluentBit struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   FluentBitSpec   `json:"spec,omitempty"`
	Status FluentBitStatus `json:"status,omitempty"`
}

type FluentBitSpec struct {
	Image string `json:"image,omitempty"`
	// FluentBitConfigName is the name of the FluentBitConfig whose rendered
	// Secret is mounted into every fluent-bit pod.
	FluentBitConfigName string `json:"fluentBitConfigName"`
	// +kubebuilder:default:=2020
	MetricsPort               int32                        `json:"metricsPort,omitempty"`
	Resources                 *corev1.ResourceRequirements `json:"resources,omitempty"`
	Tolerations               []corev1.Toleration          `json:"tolerations,omitempty"`
	NodeSelector              map[string]string            `json:"nodeSelector,omitempty"`
	ServiceAccountAnnotations map[string]string            `json:"serviceAccountAnnotations,omitempty"`
}

type FluentBitStatus struct {
	Conditions         []status.Condition `json:"conditions"`
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
type FluentBitList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []FluentBit `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
type FluentBitConfig struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   FluentBitConfigSpec   `json:"spec,omitempty"`
	Status FluentBitConfigStatus `json:"status,omitempty"`
}

type FluentBitConfigSpec struct {
	Service FluentBitService  `json:"service,omitempty"`
	Inputs  []FluentBitPlugin `json:"inputs,omitempty"`
	Filters []FluentBitPlugin `json:"filters,omitempty"`
	Outputs []FluentBitPlugin `json:"outputs,omitempty"`
	Parsers []FluentBitParser `json:"parsers,omitempty"`
}

type FluentBitService struct {
	// +kubebuilder:default:=5
	FlushSeconds int32  `json:"flushSeconds,omitempty"`
	LogLevel     string `json:"logLevel,omitempty"`
	HTTPServer   bool   `json:"httpServer,omitempty"`
}

// FluentBitPlugin is one [INPUT], [FILTER] or [OUTPUT] section.
type FluentBitPlugin struct {
	Name       string            `json:"name"`
	Tag        string            `json:"tag,omitempty"`
	Match      string            `json:"match,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// FluentBitParser is one [PARSER] section of parsers.conf.
type FluentBitParser struct {
	Name       string `json:"name"`
	Format     string `json:"format"`
	Regex      string `json:"regex,omitempty"`
	TimeKey    string `json:"timeKey,omitempty"`
	TimeFormat string `json:"timeFormat,omitempty"`
}

type FluentBitConfigStatus struct {
	Conditions         []status.Condition `json:"conditions"`
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
type FluentBitConfigList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []FluentBitConfig `json:"items"`
}

func (fb FluentBit) ChildResourceName(name string) string {
	return childResourceName(fb.Name, name)
}

func (fb *FluentBit) Default() {
	if fb.Spec.Image == "" {
		fb.Spec.Image = defaultFluentBitImage
	}
	if fb.Spec.MetricsPort == 0 {
		fb.Spec.MetricsPort = 2020
	}
}

var _ Validator = &FluentBit{}

func (fb *FluentBit) ValidateCreate() error {
	var allErrs field.ErrorList
	if fb.Spec.FluentBitConfigName == "" {
		allErrs = append(allErrs, field.Required(field.NewPath("spec", "fluentBitConfigName"), ""))
	}
	if fb.Spec.MetricsPort < 0 || fb.Spec.MetricsPort > 65535 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("spec", "metricsPort"), fb.Spec.MetricsPort, "must be a valid port"))
	}
	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(FluentBitKind), fb.Name, allErrs)
}

func (fb *FluentBit) ValidateUpdate(old runtime.Object) error {
	if _, ok := old.(*FluentBit); !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a FluentBit but got a %T", old))
	}
	return fb.ValidateCreate()
}

func (fb *FluentBit) SetDefaultStatus() {
	fb.Status = FluentBitStatus{Conditions: []status.Condition{}}
}

func (fb *FluentBit) GetConditions() []status.Condition { return fb.Status.Conditions }

func (fb *FluentBit) SetConditions(conditions []status.Condition) { fb.Status.Conditions = conditions }

func (fb *FluentBit) SetObservedGeneration(generation int64) {
	fb.Status.ObservedGeneration = generation
}

func (cfg FluentBitConfig) ChildResourceName(name string) string {
	return childResourceName(cfg.Name, name)
}

func (cfg *FluentBitConfig) Default() {
	if cfg.Spec.Service.FlushSeconds == 0 {
		cfg.Spec.Service.FlushSeconds = 5
	}
	if cfg.Spec.Service.LogLevel == "" {
		cfg.Spec.Service.LogLevel = "info"
	}
}

var _ Validator = &FluentBitConfig{}

func (cfg *FluentBitConfig) ValidateCreate() error {
	var allErrs field.ErrorList
	spec := field.NewPath("spec")
	for _, section := range []struct {
		name    string
		plugins []FluentBitPlugin
	}{
		{"inputs", cfg.Spec.Inputs},
		{"filters", cfg.Spec.Filters},
		{"outputs", cfg.Spec.Outputs},
	} {
		for i, p := range section.plugins {
			if p.Name == "" {
				allErrs = append(allErrs, field.Required(spec.Child(section.name).Index(i).Child("name"), ""))
			}
		}
	}
	for i, p := range cfg.Spec.Parsers {
		if p.Name == "" || p.Format == "" {
			allErrs = append(allErrs, field.Required(spec.Child("parsers").Index(i), "name and format are required"))
		}
	}
	switch cfg.Spec.Service.LogLevel {
	case "", "off", "error", "warn", "info", "debug", "trace":
	default:
		allErrs = append(allErrs, field.NotSupported(spec.Child("service", "logLevel"), cfg.Spec.Service.LogLevel,
			[]string{"off", "error", "warn", "info", "debug", "trace"}))
	}
	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(FluentBitConfigKind), cfg.Name, allErrs)
}

func (cfg *FluentBitConfig) ValidateUpdate(old runtime.Object) error {
	if _, ok := old.(*FluentBitConfig); !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a FluentBitConfig but got a %T", old))
	}
	return cfg.ValidateCreate()
}

func (cfg *FluentBitConfig) SetDefaultStatus() {
	cfg.Status = FluentBitConfigStatus{Conditions: []status.Condition{}}
}

func (cfg *FluentBitConfig) GetConditions() []status.Condition { return cfg.Status.Conditions }

func (cfg *FluentBitConfig) SetConditions(conditions []status.Condition) {
	cfg.Status.Conditions = conditions
}

func (cfg *FluentBitConfig) SetObservedGeneration(generation int64) {
	cfg.Status.ObservedGeneration = generation
}

func init() {
	SchemeBuilder.Register(&FluentBit{}, &FluentBitList{}, &FluentBitConfig{}, &FluentBitConfigList{})
}
