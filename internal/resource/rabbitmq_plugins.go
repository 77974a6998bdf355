// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"strings"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/metadata"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var requiredPlugins = []string{
	"rabbitmq_peer_discovery_k8s", // required for clustering
	"rabbitmq_prometheus",         // enforce prometheus metrics
	"rabbitmq_management",
}

const PluginsConfigName = "plugins-conf"

type RabbitMQPlugins struct {
	requiredPlugins   []string
	additionalPlugins []string
}

func NewRabbitMQPlugins(plugins []v1beta1.Plugin) RabbitMQPlugins {
	additionalPlugins := make([]string, len(plugins))
	for i := range additionalPlugins {
		additionalPlugins[i] = string(plugins[i])
	}

	return RabbitMQPlugins{
		requiredPlugins:   requiredPlugins,
		additionalPlugins: additionalPlugins,
	}
}

// DesiredPlugins lists required plugins first, then additional ones, without
// duplicates.
func (r *RabbitMQPlugins) DesiredPlugins() []string {
	allPlugins := append(append([]string{}, r.requiredPlugins...), r.additionalPlugins...)

	check := make(map[string]bool)
	enabledPlugins := make([]string, 0, len(allPlugins))
	for _, p := range allPlugins {
		if !check[p] {
			check[p] = true
			enabledPlugins = append(enabledPlugins, p)
		}
	}
	return enabledPlugins
}

func (r *RabbitMQPlugins) AsString(sep string) string {
	return strings.Join(r.DesiredPlugins(), sep)
}

type RabbitmqPluginsConfigMapBuilder struct {
	Instance *v1beta1.RabbitmqCluster
	Scheme   *runtime.Scheme
}

func (builder *RabbitmqResourceBuilder) RabbitmqPluginsConfigMap() *RabbitmqPluginsConfigMapBuilder {
	return &RabbitmqPluginsConfigMapBuilder{
		Instance: builder.Instance,
		Scheme:   builder.Scheme,
	}
}

func (builder *RabbitmqPluginsConfigMapBuilder) Build() (client.Object, error) {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      builder.Instance.ChildResourceName(PluginsConfigName),
			Namespace: builder.Instance.Namespace,
		},
		Data: map[string]string{
			"enabled_plugins": desiredPluginsAsString([]v1beta1.Plugin{}),
		},
	}, nil
}

func (builder *RabbitmqPluginsConfigMapBuilder) Update(object client.Object) error {
	configMap := object.(*corev1.ConfigMap)
	configMap.Labels = metadata.GetLabels(builder.Instance.Name, rabbitmqComponent, builder.Instance.Labels)
	configMap.Annotations = metadata.ReconcileAndFilterAnnotations(configMap.GetAnnotations(), builder.Instance.Annotations)

	if configMap.Data == nil {
		configMap.Data = make(map[string]string)
	}
	configMap.Data["enabled_plugins"] = desiredPluginsAsString(builder.Instance.Spec.Rabbitmq.AdditionalPlugins)

	return setControllerReference(builder.Instance, configMap, builder.Scheme)
}

func desiredPluginsAsString(additionalPlugins []v1beta1.Plugin) string {
	plugins := NewRabbitMQPlugins(additionalPlugins)
	return "[" + plugins.AsString(",") + "]."
}
