// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pipeline

import (
	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ResourceBuilder renders one sub-resource of a CR. Build returns the object
// to create when it does not exist yet; Update brings an existing or freshly
// built object to the desired shape.
type ResourceBuilder interface {
	Build() (client.Object, error)
	Update(client.Object) error
}

// Observed holds the sub-resources seen or written so far in one reconcile.
type Observed map[object.Ref]object.Object

func (o Observed) with(obj object.Object) Observed {
	next := make(Observed, len(o)+1)
	for ref, existing := range o {
		next[ref] = existing
	}
	next[object.RefOf(obj)] = obj
	return next
}

// Get returns the observed object of kind in namespace with the given name.
func (o Observed) Get(kind, namespace, name string) (object.Object, bool) {
	obj, ok := o[object.Ref{Kind: kind, Namespace: namespace, Name: name}]
	return obj, ok
}

// Typed converts every observed object of one of kinds, ordered by name.
func (o Observed) Typed(scheme *runtime.Scheme, kinds ...string) []runtime.Object {
	var objs []object.Object
	for ref, obj := range o {
		for _, kind := range kinds {
			if ref.Kind == kind {
				objs = append(objs, obj)
			}
		}
	}
	object.SortByName(objs)
	var typed []runtime.Object
	for _, obj := range objs {
		t, err := object.ToTyped(obj, scheme)
		if err == nil {
			typed = append(typed, t)
		}
	}
	return typed
}

// BuilderFactory returns the ordered builders for cr. observed lets later
// builders depend on what earlier steps produced; the number of builders must
// not depend on it.
type BuilderFactory func(cr client.Object, observed Observed) []ResourceBuilder

// StatusFunc fills the kind-specific part of the status of cr.
type StatusFunc func(cr client.Object, observed Observed) error
