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
	"gopkg.in/ini.v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	ServerConfigMapName = "server-conf"

	// maxMemoryHeadroom caps the memory kept free for the Erlang VM.
	maxMemoryHeadroom int64 = 2 << 30
)

var defaultRabbitmqConf = [][2]string{
	{"queue_master_locator", "min-masters"},
	{"disk_free_limit.absolute", "2GB"},
	{"cluster_partition_handling", "pause_minority"},
	{"cluster_formation.peer_discovery_backend", "rabbit_peer_discovery_k8s"},
	{"cluster_formation.k8s.host", "kubernetes.default"},
	{"cluster_formation.k8s.address_type", "hostname"},
}

type ServerConfigMapBuilder struct {
	Instance *v1beta1.RabbitmqCluster
	Scheme   *runtime.Scheme
}

func (builder *RabbitmqResourceBuilder) ServerConfigMap() *ServerConfigMapBuilder {
	return &ServerConfigMapBuilder{
		Instance: builder.Instance,
		Scheme:   builder.Scheme,
	}
}

func (builder *ServerConfigMapBuilder) Build() (client.Object, error) {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      builder.Instance.ChildResourceName(ServerConfigMapName),
			Namespace: builder.Instance.Namespace,
		},
	}, nil
}

func (builder *ServerConfigMapBuilder) Update(object client.Object) error {
	configMap := object.(*corev1.ConfigMap)
	configMap.Labels = metadata.GetLabels(builder.Instance.Name, rabbitmqComponent, builder.Instance.Labels)
	configMap.Annotations = metadata.ReconcileAndFilterAnnotations(configMap.GetAnnotations(), builder.Instance.Annotations)

	rabbitmqConf, err := builder.rabbitmqConf()
	if err != nil {
		return err
	}
	configMap.Data = map[string]string{
		"rabbitmq.conf": rabbitmqConf,
	}
	if advanced := builder.Instance.Spec.Rabbitmq.AdvancedConfig; advanced != "" {
		configMap.Data["advanced.config"] = advanced
	}
	if env := builder.Instance.Spec.Rabbitmq.EnvConfig; env != "" {
		configMap.Data["rabbitmq-env.conf"] = env
	}

	return setControllerReference(builder.Instance, configMap, builder.Scheme)
}

// rabbitmqConf renders the operator defaults followed by the user's
// additionalConfig. User keys override defaults in place.
func (builder *ServerConfigMapBuilder) rabbitmqConf() (string, error) {
	cfg, err := newIni(defaultRabbitmqConf)
	if err != nil {
		return "", err
	}
	defaultSection := cfg.Section("")
	if builder.Instance.MemoryLimited() {
		limit := builder.Instance.Spec.Resources.Limits.Memory().Value()
		if _, err := defaultSection.NewKey("total_memory_available_override_value", fmt.Sprint(removeHeadroom(limit))); err != nil {
			return "", err
		}
	}

	userConfiguration, err := ini.Load([]byte(builder.Instance.Spec.Rabbitmq.AdditionalConfig))
	if err != nil {
		return "", fmt.Errorf("failed to parse additionalConfig: %w", err)
	}
	for _, key := range userConfiguration.Section("").Keys() {
		if defaultSection.HasKey(key.Name()) {
			defaultSection.Key(key.Name()).SetValue(key.Value())
			continue
		}
		if _, err := defaultSection.NewKey(key.Name(), key.Value()); err != nil {
			return "", err
		}
	}

	rendered, err := writeIni(cfg)
	return string(rendered), err
}

// removeHeadroom keeps a fifth of the limit, at most 2GiB, for the runtime.
func removeHeadroom(memLimit int64) int64 {
	headroom := memLimit / 5
	if headroom > maxMemoryHeadroom {
		headroom = maxMemoryHeadroom
	}
	return memLimit - headroom
}
