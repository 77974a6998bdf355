// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vreconcile/operators/pkg/object"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ReasonInvalidOwner is returned by the owner-guarded operations when the
// stored object is not controlled by the expected owner.
const ReasonInvalidOwner metav1.StatusReason = "InvalidOwner"

func NewInvalidOwner(ref object.Ref, owner metav1.OwnerReference) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusPreconditionFailed,
		Reason: ReasonInvalidOwner,
		Details: &metav1.StatusDetails{
			Name: ref.Name,
			Kind: ref.Kind,
		},
		Message: fmt.Sprintf("%s is not controlled by %s %s (uid %s)", ref, owner.Kind, owner.Name, owner.UID),
	}}
}

func IsInvalidOwner(err error) bool {
	return apierrors.ReasonForError(err) == ReasonInvalidOwner
}

// IsRetryable reports whether a reconcile step should go back to its Get
// instead of failing.
func IsRetryable(err error) bool {
	return apierrors.IsConflict(err) || apierrors.IsAlreadyExists(err)
}

func groupResource(ref object.Ref) schema.GroupResource {
	return schema.GroupResource{Resource: strings.ToLower(ref.Kind)}
}

func notFound(ref object.Ref) error {
	return apierrors.NewNotFound(groupResource(ref), ref.Name)
}

func alreadyExists(ref object.Ref) error {
	return apierrors.NewAlreadyExists(groupResource(ref), ref.Name)
}

func conflict(ref object.Ref, format string, args ...any) error {
	return apierrors.NewConflict(groupResource(ref), ref.Name, fmt.Errorf(format, args...))
}
