// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package registry holds the installed types: for every kind the store
// accepts, how to validate it and what its initial status is.
package registry

import (
	"fmt"
	"sort"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/pkg/object"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

type TypeInfo struct {
	GVK schema.GroupVersionKind
	// Custom is true for the kinds of the v1beta1 group.
	Custom bool
	// Validate checks a single object.
	Validate func(obj object.Object) error
	// ValidateTransition checks an update from old to new.
	ValidateTransition func(old, new object.Object) error
	// DefaultStatus returns a fresh initial status, or nil for kinds without one.
	DefaultStatus func() any
}

// InstalledTypes maps a kind to its type information.
type InstalledTypes map[string]TypeInfo

func (types InstalledTypes) Lookup(kind string) (TypeInfo, error) {
	info, ok := types[kind]
	if !ok {
		return TypeInfo{}, apierrors.NewBadRequest(fmt.Sprintf("kind %q is not installed", kind))
	}
	return info, nil
}

func (types InstalledTypes) Kinds() []string {
	kinds := make([]string, 0, len(types))
	for kind := range types {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Subset keeps only the named kinds. An empty list keeps everything.
func (types InstalledTypes) Subset(kinds []string) (InstalledTypes, error) {
	if len(kinds) == 0 {
		return types, nil
	}
	subset := InstalledTypes{}
	for _, kind := range kinds {
		info, ok := types[kind]
		if !ok {
			return nil, fmt.Errorf("unknown kind %q", kind)
		}
		subset[kind] = info
	}
	return subset, nil
}

func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(v1beta1.AddToScheme(scheme))
	return scheme
}

// builtIns are the Kubernetes kinds the controllers render or manage.
var builtIns = []client.Object{
	&corev1.Pod{},
	&corev1.Service{},
	&corev1.ConfigMap{},
	&corev1.Secret{},
	&corev1.ServiceAccount{},
	&corev1.PersistentVolumeClaim{},
	&rbacv1.Role{},
	&rbacv1.RoleBinding{},
	&appsv1.StatefulSet{},
	&appsv1.DaemonSet{},
	&policyv1.PodDisruptionBudget{},
}

var customs = []v1beta1.Validator{
	&v1beta1.RabbitmqCluster{},
	&v1beta1.ZookeeperCluster{},
	&v1beta1.FluentBit{},
	&v1beta1.FluentBitConfig{},
	&v1beta1.VReplicaSet{},
	&v1beta1.VDeployment{},
	&v1beta1.VStatefulSet{},
}

// Default returns every built-in and custom kind known to the module.
func Default(scheme *runtime.Scheme) (InstalledTypes, error) {
	types := InstalledTypes{}
	for _, prototype := range builtIns {
		gvk, err := apiutil.GVKForObject(prototype, scheme)
		if err != nil {
			return nil, err
		}
		types[gvk.Kind] = builtInType(gvk, scheme)
	}
	for _, prototype := range customs {
		gvk, err := apiutil.GVKForObject(prototype, scheme)
		if err != nil {
			return nil, err
		}
		types[gvk.Kind] = customType(gvk, scheme)
	}
	return types, nil
}

// builtInType validates by decoding into the typed object, which rejects
// fields of the wrong shape.
func builtInType(gvk schema.GroupVersionKind, scheme *runtime.Scheme) TypeInfo {
	validate := func(obj object.Object) error {
		_, err := object.ToTyped(obj, scheme)
		return err
	}
	info := TypeInfo{
		GVK:      gvk,
		Validate: validate,
		ValidateTransition: func(_, new object.Object) error {
			return validate(new)
		},
		DefaultStatus: func() any { return map[string]any{} },
	}
	if gvk.Kind == "Pod" {
		info.DefaultStatus = func() any {
			return map[string]any{"phase": string(corev1.PodPending)}
		}
	}
	return info
}

func customType(gvk schema.GroupVersionKind, scheme *runtime.Scheme) TypeInfo {
	decode := func(obj object.Object) (v1beta1.Validator, error) {
		typed, err := object.ToTyped(obj, scheme)
		if err != nil {
			return nil, err
		}
		validator, ok := typed.(v1beta1.Validator)
		if !ok {
			return nil, fmt.Errorf("%s does not implement validation", gvk.Kind)
		}
		return validator, nil
	}
	return TypeInfo{
		GVK:    gvk,
		Custom: true,
		Validate: func(obj object.Object) error {
			typed, err := decode(obj)
			if err != nil {
				return err
			}
			return typed.ValidateCreate()
		},
		ValidateTransition: func(old, new object.Object) error {
			oldTyped, err := decode(old)
			if err != nil {
				return err
			}
			newTyped, err := decode(new)
			if err != nil {
				return err
			}
			return newTyped.ValidateUpdate(oldTyped)
		},
		DefaultStatus: func() any {
			fresh, err := scheme.New(gvk)
			if err != nil {
				return nil
			}
			defaulter, ok := fresh.(v1beta1.StatusDefaulter)
			if !ok {
				return nil
			}
			defaulter.SetDefaultStatus()
			content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(fresh)
			if err != nil {
				return nil
			}
			return content["status"]
		},
	}
}
