// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/pipeline"
	"github.com/vreconcile/operators/internal/resource"
	"k8s.io/apimachinery/pkg/runtime"
)

func NewFluentBitReconciler(scheme *runtime.Scheme, now func() time.Time, log logr.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		CRKind:   v1beta1.FluentBitKind,
		Scheme:   scheme,
		Builders: resource.FluentBitBuilders(scheme),
		Now:      now,
		Log:      log,
	}
}

// NewFluentBitConfigReconciler renders a FluentBitConfig into the Secret the
// FluentBit DaemonSets mount.
func NewFluentBitConfigReconciler(scheme *runtime.Scheme, now func() time.Time, log logr.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		CRKind:   v1beta1.FluentBitConfigKind,
		Scheme:   scheme,
		Builders: resource.FluentBitConfigBuilders(scheme),
		Now:      now,
		Log:      log,
	}
}
