// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package apiserver

import (
	"fmt"
	"sync"

	"github.com/vreconcile/operators/internal/message"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// FaultInjector decides whether a request fails before reaching the store.
type FaultInjector interface {
	Inject(req *message.Request) error
}

type NoFaults struct{}

func (NoFaults) Inject(*message.Request) error { return nil }

// EveryNth answers every Nth request with a Timeout. N == 0 never fails.
type EveryNth struct {
	N uint64

	mu    sync.Mutex
	count uint64
}

func (f *EveryNth) Inject(req *message.Request) error {
	if f.N == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.count%f.N != 0 {
		return nil
	}
	return apierrors.NewTimeoutError(fmt.Sprintf("injected timeout for %s", req), 0)
}
