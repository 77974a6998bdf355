// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/metadata"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

type ClientServiceBuilder struct {
	Instance *v1beta1.RabbitmqCluster
	Scheme   *runtime.Scheme
}

func (builder *RabbitmqResourceBuilder) ClientService() *ClientServiceBuilder {
	return &ClientServiceBuilder{
		Instance: builder.Instance,
		Scheme:   builder.Scheme,
	}
}

// Build names the client service after the cluster itself.
func (builder *ClientServiceBuilder) Build() (client.Object, error) {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      builder.Instance.Name,
			Namespace: builder.Instance.Namespace,
		},
	}, nil
}

func (builder *ClientServiceBuilder) Update(object client.Object) error {
	service := object.(*corev1.Service)
	builder.setAnnotations(service)
	service.Labels = metadata.GetLabels(builder.Instance.Name, rabbitmqComponent, builder.Instance.Labels)
	service.Spec.Type = builder.Instance.Spec.Service.Type
	service.Spec.Selector = metadata.LabelSelector(builder.Instance.Name, rabbitmqComponent)

	service.Spec.Ports = builder.updatePorts(service.Spec.Ports)

	if builder.Instance.Spec.Service.Type == corev1.ServiceTypeClusterIP || builder.Instance.Spec.Service.Type == "" {
		for i := range service.Spec.Ports {
			service.Spec.Ports[i].NodePort = int32(0)
		}
	}

	return setControllerReference(builder.Instance, service, builder.Scheme)
}

var pluginPorts = []struct {
	plugin v1beta1.Plugin
	port   corev1.ServicePort
}{
	{"rabbitmq_mqtt", corev1.ServicePort{Name: "mqtt", Port: 1883, Protocol: corev1.ProtocolTCP}},
	{"rabbitmq_web_mqtt", corev1.ServicePort{Name: "web-mqtt", Port: 15675, Protocol: corev1.ProtocolTCP}},
	{"rabbitmq_stomp", corev1.ServicePort{Name: "stomp", Port: 61613, Protocol: corev1.ProtocolTCP}},
	{"rabbitmq_web_stomp", corev1.ServicePort{Name: "web-stomp", Port: 15674, Protocol: corev1.ProtocolTCP}},
	{"rabbitmq_stream", corev1.ServicePort{Name: "stream", Port: 5552, Protocol: corev1.ProtocolTCP}},
}

// desiredPorts lists the ports in a fixed order so renders are stable.
func (builder *ClientServiceBuilder) desiredPorts() []corev1.ServicePort {
	ports := []corev1.ServicePort{
		{Protocol: corev1.ProtocolTCP, Port: 5672, Name: "amqp"},
		{Protocol: corev1.ProtocolTCP, Port: 15672, Name: "management"},
		{Protocol: corev1.ProtocolTCP, Port: 15692, Name: "prometheus"},
	}
	for _, p := range pluginPorts {
		if builder.Instance.AdditionalPluginEnabled(p.plugin) {
			ports = append(ports, p.port)
		}
	}
	return ports
}

// updatePorts keeps the node ports already allocated to existing ports.
func (builder *ClientServiceBuilder) updatePorts(servicePorts []corev1.ServicePort) []corev1.ServicePort {
	nodePorts := map[string]int32{}
	for _, servicePort := range servicePorts {
		nodePorts[servicePort.Name] = servicePort.NodePort
	}

	updatedServicePorts := builder.desiredPorts()
	for i := range updatedServicePorts {
		updatedServicePorts[i].NodePort = nodePorts[updatedServicePorts[i].Name]
	}
	return updatedServicePorts
}

func (builder *ClientServiceBuilder) setAnnotations(service *corev1.Service) {
	if builder.Instance.Spec.Service.Annotations != nil {
		service.Annotations = metadata.ReconcileAnnotations(metadata.ReconcileAndFilterAnnotations(service.Annotations, builder.Instance.Annotations), builder.Instance.Spec.Service.Annotations)
	} else {
		service.Annotations = metadata.ReconcileAndFilterAnnotations(service.Annotations, builder.Instance.Annotations)
	}
}
