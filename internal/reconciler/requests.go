// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package reconciler

import (
	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/pkg/object"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

func GetRequest(ref object.Ref) *message.Request {
	return &message.Request{Verb: message.Get, Ref: ref}
}

func ListRequest(kind, namespace string) *message.Request {
	return &message.Request{Verb: message.List, Ref: object.Ref{Kind: kind, Namespace: namespace}}
}

func CreateRequest(obj object.Object) *message.Request {
	return &message.Request{Verb: message.Create, Ref: object.RefOf(obj), Object: obj}
}

func UpdateRequest(obj object.Object) *message.Request {
	return &message.Request{Verb: message.Update, Ref: object.RefOf(obj), Object: obj}
}

func UpdateStatusRequest(obj object.Object) *message.Request {
	return &message.Request{Verb: message.UpdateStatus, Ref: object.RefOf(obj), Object: obj}
}

func GetThenUpdateRequest(obj object.Object, owner metav1.OwnerReference) *message.Request {
	return &message.Request{Verb: message.GetThenUpdate, Ref: object.RefOf(obj), Object: obj, Owner: &owner}
}

func DeleteRequest(ref object.Ref, preconditions *metav1.Preconditions) *message.Request {
	return &message.Request{Verb: message.Delete, Ref: ref, Preconditions: preconditions}
}

func GetThenDeleteRequest(ref object.Ref, owner metav1.OwnerReference) *message.Request {
	return &message.Request{Verb: message.GetThenDelete, Ref: ref, Owner: &owner}
}

// ControllerRef is the controller owner reference pointing at cr.
func ControllerRef(cr object.Object) metav1.OwnerReference {
	return metav1.OwnerReference{
		APIVersion:         cr.GetAPIVersion(),
		Kind:               cr.GetKind(),
		Name:               cr.GetName(),
		UID:                cr.GetUID(),
		Controller:         ptr.To(true),
		BlockOwnerDeletion: ptr.To(true),
	}
}
