// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package v1beta1

import (
	"fmt"
	"regexp"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

var pluginPattern = regexp.MustCompile(`^\w+$`)

var _ Validator = &RabbitmqCluster{}

func (cluster *RabbitmqCluster) ValidateCreate() error {
	var allErrs field.ErrorList
	spec := field.NewPath("spec")

	if cluster.Spec.Replicas != nil && *cluster.Spec.Replicas < 0 {
		allErrs = append(allErrs, field.Invalid(spec.Child("replicas"), *cluster.Spec.Replicas, "must be greater than or equal to 0"))
	}
	switch cluster.Spec.Service.Type {
	case "", corev1.ServiceTypeClusterIP, corev1.ServiceTypeLoadBalancer, corev1.ServiceTypeNodePort:
	default:
		allErrs = append(allErrs, field.NotSupported(spec.Child("service", "type"), cluster.Spec.Service.Type,
			[]string{string(corev1.ServiceTypeClusterIP), string(corev1.ServiceTypeLoadBalancer), string(corev1.ServiceTypeNodePort)}))
	}
	plugins := spec.Child("rabbitmq", "additionalPlugins")
	if len(cluster.Spec.Rabbitmq.AdditionalPlugins) > 100 {
		allErrs = append(allErrs, field.TooMany(plugins, len(cluster.Spec.Rabbitmq.AdditionalPlugins), 100))
	}
	for i, p := range cluster.Spec.Rabbitmq.AdditionalPlugins {
		if len(p) > 100 || !pluginPattern.MatchString(string(p)) {
			allErrs = append(allErrs, field.Invalid(plugins.Index(i), p, "plugin names must match ^\\w+$ and be at most 100 characters"))
		}
	}
	if len(cluster.Spec.Rabbitmq.AdditionalConfig) > 2000 {
		allErrs = append(allErrs, field.TooLong(spec.Child("rabbitmq", "additionalConfig"), "", 2000))
	}
	if cluster.Spec.Persistence.Storage != nil && cluster.Spec.Persistence.Storage.Sign() < 0 {
		allErrs = append(allErrs, field.Invalid(spec.Child("persistence", "storage"), cluster.Spec.Persistence.Storage.String(), "must not be negative"))
	}

	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(RabbitmqClusterKind), cluster.Name, allErrs)
}

// ValidateUpdate forbids scaling down and changing the persistence storage.
func (cluster *RabbitmqCluster) ValidateUpdate(old runtime.Object) error {
	oldCluster, ok := old.(*RabbitmqCluster)
	if !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a RabbitmqCluster but got a %T", old))
	}
	if err := cluster.ValidateCreate(); err != nil {
		return err
	}

	previous := oldCluster.DeepCopy()
	previous.Default()
	current := cluster.DeepCopy()
	current.Default()

	if *current.Spec.Replicas < *previous.Spec.Replicas {
		return apierrors.NewForbidden(Resource("rabbitmqclusters"), cluster.Name,
			field.Forbidden(field.NewPath("spec", "replicas"),
				fmt.Sprintf("cluster scale down from %d to %d replicas is not supported", *previous.Spec.Replicas, *current.Spec.Replicas)))
	}
	if previous.Spec.Persistence.Storage.Cmp(*current.Spec.Persistence.Storage) != 0 {
		return apierrors.NewForbidden(Resource("rabbitmqclusters"), cluster.Name,
			field.Forbidden(field.NewPath("spec", "persistence", "storage"), "persistence storage cannot be updated"))
	}
	return nil
}
