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

const (
	headlessServiceName = "nodes"
)

type HeadlessServiceBuilder struct {
	Instance *v1beta1.RabbitmqCluster
	Scheme   *runtime.Scheme
}

func (builder *RabbitmqResourceBuilder) HeadlessService() *HeadlessServiceBuilder {
	return &HeadlessServiceBuilder{
		Instance: builder.Instance,
		Scheme:   builder.Scheme,
	}
}

func (builder *HeadlessServiceBuilder) Build() (client.Object, error) {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      builder.Instance.ChildResourceName(headlessServiceName),
			Namespace: builder.Instance.Namespace,
		},
	}, nil
}

func (builder *HeadlessServiceBuilder) Update(object client.Object) error {
	service := object.(*corev1.Service)
	service.Labels = metadata.GetLabels(builder.Instance.Name, rabbitmqComponent, builder.Instance.Labels)
	service.Annotations = metadata.ReconcileAndFilterAnnotations(service.GetAnnotations(), builder.Instance.Annotations)
	service.Spec = corev1.ServiceSpec{
		ClusterIP: "None",
		Selector:  metadata.LabelSelector(builder.Instance.Name, rabbitmqComponent),
		Ports: []corev1.ServicePort{
			{
				Protocol: corev1.ProtocolTCP,
				Port:     4369,
				Name:     "epmd",
			},
			{
				Protocol: corev1.ProtocolTCP,
				Port:     25672,
				Name:     "cluster-rpc",
			},
		},
		PublishNotReadyAddresses: true,
	}

	return setControllerReference(builder.Instance, service, builder.Scheme)
}
