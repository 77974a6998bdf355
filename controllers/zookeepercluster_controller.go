// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/pipeline"
	"github.com/vreconcile/operators/internal/resource"
	"github.com/vreconcile/operators/pkg/object"
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func NewZookeeperClusterReconciler(scheme *runtime.Scheme, now func() time.Time, log logr.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		CRKind:   v1beta1.ZookeeperClusterKind,
		Scheme:   scheme,
		Builders: resource.ZookeeperBuilders(scheme),
		Status:   setReadyReplicas,
		Now:      now,
		Log:      log,
	}
}

// setReadyReplicas copies the ready replicas of the ensemble StatefulSet.
func setReadyReplicas(cr client.Object, observed pipeline.Observed) error {
	zk, ok := cr.(*v1beta1.ZookeeperCluster)
	if !ok {
		return fmt.Errorf("expected a ZookeeperCluster but got a %T", cr)
	}
	obj, found := observed.Get("StatefulSet", zk.Namespace, zk.Name)
	if !found {
		return nil
	}
	sts := &appsv1.StatefulSet{}
	if err := object.Into(obj, sts); err != nil {
		return err
	}
	zk.Status.ReadyReplicas = sts.Status.ReadyReplicas
	return nil
}
