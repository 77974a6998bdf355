// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package object implements the dynamic object model shared by the store,
// the api-server and the controllers.
package object

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

type Object = *unstructured.Unstructured

// metaFields are the top-level fields that belong to neither spec nor status.
var metaFields = map[string]bool{
	"apiVersion": true,
	"kind":       true,
	"metadata":   true,
	"status":     true,
}

// Ref is the store key of an object.
type Ref struct {
	Kind      string
	Namespace string
	Name      string
}

func (r Ref) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

func RefOf(obj Object) Ref {
	return Ref{Kind: obj.GetKind(), Namespace: obj.GetNamespace(), Name: obj.GetName()}
}

func New(gvk schema.GroupVersionKind) Object {
	obj := &unstructured.Unstructured{Object: map[string]any{}}
	obj.SetGroupVersionKind(gvk)
	return obj
}

func DeepCopy(in Object) Object {
	if in == nil {
		return nil
	}
	return in.DeepCopy()
}

// FromTyped converts a typed object into its dynamic form. The GVK is taken
// from the scheme, so typed objects built without TypeMeta are fine.
func FromTyped(typed client.Object, scheme *runtime.Scheme) (Object, error) {
	gvk, err := apiutil.GVKForObject(typed, scheme)
	if err != nil {
		return nil, err
	}
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(typed)
	if err != nil {
		return nil, fmt.Errorf("failed converting %T: %w", typed, err)
	}
	obj := &unstructured.Unstructured{Object: content}
	obj.SetGroupVersionKind(gvk)
	return obj, nil
}

// ToTyped converts a dynamic object into a freshly allocated typed object of
// the kind registered in scheme.
func ToTyped(obj Object, scheme *runtime.Scheme) (client.Object, error) {
	gvk := obj.GroupVersionKind()
	fresh, err := scheme.New(gvk)
	if err != nil {
		return nil, err
	}
	typed, ok := fresh.(client.Object)
	if !ok {
		return nil, fmt.Errorf("%s is not a client.Object", gvk)
	}
	if err := Into(obj, typed); err != nil {
		return nil, err
	}
	typed.GetObjectKind().SetGroupVersionKind(gvk)
	return typed, nil
}

// Into decodes obj into the given typed object.
func Into(obj Object, typed runtime.Object) error {
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.UnstructuredContent(), typed); err != nil {
		return fmt.Errorf("failed converting %s to %T: %w", RefOf(obj), typed, err)
	}
	return nil
}

// Spec returns every top-level field except apiVersion, kind, metadata and
// status. The result shares no memory with obj.
func Spec(obj Object) map[string]any {
	spec := map[string]any{}
	for key, value := range obj.UnstructuredContent() {
		if !metaFields[key] {
			spec[key] = runtime.DeepCopyJSONValue(value)
		}
	}
	return spec
}

// SetSpec replaces every spec field of obj with the ones from spec.
func SetSpec(obj Object, spec map[string]any) {
	content := obj.UnstructuredContent()
	for key := range content {
		if !metaFields[key] {
			delete(content, key)
		}
	}
	for key, value := range spec {
		if !metaFields[key] {
			content[key] = runtime.DeepCopyJSONValue(value)
		}
	}
}

func Status(obj Object) any {
	status, ok := obj.UnstructuredContent()["status"]
	if !ok {
		return nil
	}
	return runtime.DeepCopyJSONValue(status)
}

func SetStatus(obj Object, status any) {
	if status == nil {
		delete(obj.UnstructuredContent(), "status")
		return
	}
	obj.UnstructuredContent()["status"] = runtime.DeepCopyJSONValue(status)
}

func SpecEqual(a, b Object) bool {
	return equality.Semantic.DeepEqual(Spec(a), Spec(b))
}

func StatusEqual(a, b Object) bool {
	return equality.Semantic.DeepEqual(Status(a), Status(b))
}

// ShapeEqual reports whether a and b agree on everything a controller
// manages: spec, labels, annotations, owner references and finalizers.
func ShapeEqual(a, b Object) bool {
	return SpecEqual(a, b) &&
		equality.Semantic.DeepEqual(emptyIfNil(a.GetLabels()), emptyIfNil(b.GetLabels())) &&
		equality.Semantic.DeepEqual(emptyIfNil(a.GetAnnotations()), emptyIfNil(b.GetAnnotations())) &&
		equality.Semantic.DeepEqual(a.GetOwnerReferences(), b.GetOwnerReferences()) &&
		equality.Semantic.DeepEqual(a.GetFinalizers(), b.GetFinalizers())
}

func emptyIfNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// ControllerOf returns the controller owner reference of obj, or nil.
func ControllerOf(obj metav1.Object) *metav1.OwnerReference {
	return metav1.GetControllerOf(obj)
}

// CountControllers returns the number of owner references flagged as controller.
func CountControllers(obj metav1.Object) int {
	count := 0
	for _, ref := range obj.GetOwnerReferences() {
		if ref.Controller != nil && *ref.Controller {
			count++
		}
	}
	return count
}

// OwnerMatches reports whether ref points at owner by kind, name and uid.
func OwnerMatches(ref metav1.OwnerReference, owner metav1.OwnerReference) bool {
	return ref.Kind == owner.Kind && ref.Name == owner.Name && ref.UID == owner.UID
}

// SortByName orders objects by namespace then name, in place.
func SortByName(objs []Object) {
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].GetNamespace() != objs[j].GetNamespace() {
			return objs[i].GetNamespace() < objs[j].GetNamespace()
		}
		return objs[i].GetName() < objs[j].GetName()
	})
}

func HasFinalizer(obj metav1.Object, finalizer string) bool {
	for _, f := range obj.GetFinalizers() {
		if f == finalizer {
			return true
		}
	}
	return false
}

func IsDeleting(obj metav1.Object) bool {
	return obj.GetDeletionTimestamp() != nil
}
