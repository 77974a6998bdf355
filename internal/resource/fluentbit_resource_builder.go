// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"fmt"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/metadata"
	"github.com/vreconcile/operators/internal/pipeline"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	fluentBitComponent = "fluent-bit"

	// FluentBitConfigVolume is where the rendered configuration is mounted.
	FluentBitConfigVolume = "/fluent-bit/etc/"
)

type FluentBitResourceBuilder struct {
	Instance *v1beta1.FluentBit
	Scheme   *runtime.Scheme
}

func (builder *FluentBitResourceBuilder) ResourceBuilders() []pipeline.ResourceBuilder {
	return []pipeline.ResourceBuilder{
		&FluentBitServiceAccountBuilder{builder},
		&FluentBitRoleBuilder{builder},
		&FluentBitRoleBindingBuilder{builder},
		&FluentBitServiceBuilder{builder},
		&FluentBitDaemonSetBuilder{builder},
	}
}

func FluentBitBuilders(scheme *runtime.Scheme) pipeline.BuilderFactory {
	return func(cr client.Object, _ pipeline.Observed) []pipeline.ResourceBuilder {
		builder := &FluentBitResourceBuilder{Instance: cr.(*v1beta1.FluentBit), Scheme: scheme}
		return builder.ResourceBuilders()
	}
}

// Every fluent-bit sub-resource is named after the CR.
func (builder *FluentBitResourceBuilder) objectMeta() metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: builder.Instance.Name, Namespace: builder.Instance.Namespace}
}

func (builder *FluentBitResourceBuilder) selector() map[string]string {
	return metadata.LabelSelector(builder.Instance.Name, fluentBitComponent)
}

func (builder *FluentBitResourceBuilder) setMetadata(obj client.Object) error {
	obj.SetLabels(metadata.GetLabels(builder.Instance.Name, fluentBitComponent, builder.Instance.Labels))
	obj.SetAnnotations(metadata.ReconcileAndFilterAnnotations(obj.GetAnnotations(), builder.Instance.Annotations))
	return setControllerReference(builder.Instance, obj, builder.Scheme)
}

type FluentBitServiceAccountBuilder struct {
	*FluentBitResourceBuilder
}

func (builder *FluentBitServiceAccountBuilder) Build() (client.Object, error) {
	return &corev1.ServiceAccount{ObjectMeta: builder.objectMeta()}, nil
}

func (builder *FluentBitServiceAccountBuilder) Update(object client.Object) error {
	if err := builder.setMetadata(object); err != nil {
		return err
	}
	object.SetAnnotations(metadata.ReconcileAnnotations(object.GetAnnotations(), builder.Instance.Spec.ServiceAccountAnnotations))
	return nil
}

type FluentBitRoleBuilder struct {
	*FluentBitResourceBuilder
}

func (builder *FluentBitRoleBuilder) Build() (client.Object, error) {
	return &rbacv1.Role{ObjectMeta: builder.objectMeta()}, nil
}

func (builder *FluentBitRoleBuilder) Update(object client.Object) error {
	role := object.(*rbacv1.Role)
	role.Rules = []rbacv1.PolicyRule{
		{
			APIGroups: []string{""},
			Resources: []string{"pods", "namespaces"},
			Verbs:     []string{"get", "list", "watch"},
		},
	}
	return builder.setMetadata(role)
}

type FluentBitRoleBindingBuilder struct {
	*FluentBitResourceBuilder
}

func (builder *FluentBitRoleBindingBuilder) Build() (client.Object, error) {
	return &rbacv1.RoleBinding{ObjectMeta: builder.objectMeta()}, nil
}

func (builder *FluentBitRoleBindingBuilder) Update(object client.Object) error {
	roleBinding := object.(*rbacv1.RoleBinding)
	roleBinding.RoleRef = rbacv1.RoleRef{
		APIGroup: rbacv1.GroupName,
		Kind:     "Role",
		Name:     builder.Instance.Name,
	}
	roleBinding.Subjects = []rbacv1.Subject{
		{Kind: rbacv1.ServiceAccountKind, Name: builder.Instance.Name, Namespace: builder.Instance.Namespace},
	}
	return builder.setMetadata(roleBinding)
}

type FluentBitServiceBuilder struct {
	*FluentBitResourceBuilder
}

func (builder *FluentBitServiceBuilder) Build() (client.Object, error) {
	return &corev1.Service{ObjectMeta: builder.objectMeta()}, nil
}

func (builder *FluentBitServiceBuilder) Update(object client.Object) error {
	service := object.(*corev1.Service)
	service.Spec.Type = corev1.ServiceTypeClusterIP
	service.Spec.Selector = builder.selector()
	service.Spec.Ports = []corev1.ServicePort{
		{
			Name:       "metrics",
			Port:       builder.Instance.Spec.MetricsPort,
			TargetPort: intstr.FromString("metrics"),
			Protocol:   corev1.ProtocolTCP,
		},
	}
	return builder.setMetadata(service)
}

type FluentBitDaemonSetBuilder struct {
	*FluentBitResourceBuilder
}

func (builder *FluentBitDaemonSetBuilder) Build() (client.Object, error) {
	return &appsv1.DaemonSet{
		ObjectMeta: builder.objectMeta(),
		Spec: appsv1.DaemonSetSpec{
			Selector: &metav1.LabelSelector{MatchLabels: builder.selector()},
		},
	}, nil
}

func (builder *FluentBitDaemonSetBuilder) Update(object client.Object) error {
	ds := object.(*appsv1.DaemonSet)
	spec := builder.Instance.Spec

	var resources corev1.ResourceRequirements
	if spec.Resources != nil {
		resources = *spec.Resources
	}
	hostPath := func(name, path string) corev1.Volume {
		return corev1.Volume{Name: name, VolumeSource: corev1.VolumeSource{HostPath: &corev1.HostPathVolumeSource{Path: path}}}
	}

	ds.Spec.UpdateStrategy = appsv1.DaemonSetUpdateStrategy{Type: appsv1.RollingUpdateDaemonSetStrategyType}
	ds.Spec.Template = corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{
			Labels: metadata.GetLabels(builder.Instance.Name, fluentBitComponent, builder.Instance.Labels),
			Annotations: metadata.ReconcileAnnotations(
				metadata.ReconcileAndFilterAnnotations(ds.Spec.Template.Annotations, builder.Instance.Annotations),
				map[string]string{
					"prometheus.io/scrape": "true",
					"prometheus.io/port":   fmt.Sprint(spec.MetricsPort),
					"prometheus.io/path":   "/api/v1/metrics/prometheus",
				}),
		},
		Spec: corev1.PodSpec{
			ServiceAccountName: builder.Instance.Name,
			NodeSelector:       spec.NodeSelector,
			Tolerations:        spec.Tolerations,
			Volumes: []corev1.Volume{
				{
					Name: "config",
					VolumeSource: corev1.VolumeSource{
						Secret: &corev1.SecretVolumeSource{SecretName: FluentBitConfigSecretName(spec.FluentBitConfigName)},
					},
				},
				hostPath("varlog", "/var/log"),
				hostPath("varlibcontainers", "/var/lib/containerd/containers"),
			},
			Containers: []corev1.Container{
				{
					Name:      "fluent-bit",
					Image:     spec.Image,
					Resources: resources,
					Ports: []corev1.ContainerPort{
						{Name: "metrics", ContainerPort: spec.MetricsPort, Protocol: corev1.ProtocolTCP},
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "config", MountPath: FluentBitConfigVolume, ReadOnly: true},
						{Name: "varlog", MountPath: "/var/log", ReadOnly: true},
						{Name: "varlibcontainers", MountPath: "/var/lib/containerd/containers", ReadOnly: true},
					},
				},
			},
		},
	}
	return builder.setMetadata(ds)
}
