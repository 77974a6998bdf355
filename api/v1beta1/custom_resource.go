// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package v1beta1

import (
	"strings"

	"github.com/vreconcile/operators/internal/status"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Validator is implemented by every kind of this group. The api-server
// rejects objects failing either check with BadRequest.
type Validator interface {
	client.Object
	ValidateCreate() error
	ValidateUpdate(old runtime.Object) error
}

// Conditioned is implemented by kinds whose controllers report conditions
// into status.
type Conditioned interface {
	client.Object
	GetConditions() []status.Condition
	SetConditions([]status.Condition)
	SetObservedGeneration(int64)
}

// StatusDefaulter is implemented by kinds with a non-empty initial status.
type StatusDefaulter interface {
	SetDefaultStatus()
}

func childResourceName(parent, name string) string {
	return strings.TrimSuffix(strings.Join([]string{parent, name}, "-"), "-")
}
