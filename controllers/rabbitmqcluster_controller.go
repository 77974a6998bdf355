// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package controllers holds the reconciler of every CR kind. RabbitMQ,
// ZooKeeper and Fluent Bit are sub-resource pipelines; the pod-owning kinds
// are written out as explicit state machines.
package controllers

import (
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/pipeline"
	"github.com/vreconcile/operators/internal/resource"
	"k8s.io/apimachinery/pkg/runtime"
)

// NewRabbitmqClusterReconciler renders the ten RabbitMQ sub-resources in
// dependency order and publishes the default user references in status.
// random seeds the generated credentials; nil uses crypto/rand.
func NewRabbitmqClusterReconciler(scheme *runtime.Scheme, random io.Reader, now func() time.Time, log logr.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		CRKind:    v1beta1.RabbitmqClusterKind,
		Scheme:    scheme,
		Builders:  resource.RabbitmqBuilders(scheme, random),
		Status:    setDefaultUserStatus,
		Finalizer: deletionFinalizer,
		Now:       now,
		Log:       log,
	}
}
