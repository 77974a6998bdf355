// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"fmt"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/pipeline"
	"github.com/vreconcile/operators/internal/resource"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func setDefaultUserStatus(cr client.Object, _ pipeline.Observed) error {
	rmq, ok := cr.(*v1beta1.RabbitmqCluster)
	if !ok {
		return fmt.Errorf("expected a RabbitmqCluster but got a %T", cr)
	}

	rmq.Status.DefaultUser = &v1beta1.RabbitmqClusterDefaultUser{
		ServiceReference: &v1beta1.RabbitmqClusterServiceReference{
			Name:      rmq.Name,
			Namespace: rmq.Namespace,
		},
		SecretReference: &v1beta1.RabbitmqClusterSecretReference{
			Name:      rmq.ChildResourceName(resource.DefaultUserSecretName),
			Namespace: rmq.Namespace,
			Keys: map[string]string{
				"username": "username",
				"password": "password",
			},
		},
	}
	return nil
}
