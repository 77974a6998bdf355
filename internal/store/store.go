// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package store is the in-memory etcd model. Every exported operation is
// atomic; watchers are notified after the store lock is released.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/vreconcile/operators/internal/registry"
	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilrand "k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/utils/clock"
)

type EventType string

const (
	Added    EventType = "Added"
	Modified EventType = "Modified"
	Deleted  EventType = "Deleted"
)

type Event struct {
	Type   EventType
	Object object.Object
	// Old is the previous version for Modified and Deleted events.
	Old object.Object
}

type Watcher func(Event)

type Store struct {
	mu         sync.Mutex
	types      registry.InstalledTypes
	clock      clock.PassiveClock
	log        logr.Logger
	objects    map[object.Ref]object.Object
	uidCounter uint64
	rvCounter  uint64
	watchers   []Watcher
}

func New(types registry.InstalledTypes, clk clock.PassiveClock, log logr.Logger) *Store {
	return &Store{
		types:      types,
		clock:      clk,
		log:        log,
		objects:    map[object.Ref]object.Object{},
		uidCounter: 1,
		rvCounter:  1,
	}
}

// Watch registers w for every subsequent mutation.
func (s *Store) Watch(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, w)
}

// Counters returns the next uid and resource version to be assigned.
func (s *Store) Counters() (uid, rv uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uidCounter, s.rvCounter
}

func (s *Store) Get(ref object.Ref) (object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.objects[ref]
	if !ok {
		return nil, notFound(ref)
	}
	return stored.DeepCopy(), nil
}

// List returns the objects of kind in namespace ordered by name. An empty
// namespace lists every namespace.
func (s *Store) List(kind, namespace string) []object.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []object.Object
	for ref, stored := range s.objects {
		if ref.Kind == kind && (namespace == "" || ref.Namespace == namespace) {
			items = append(items, stored.DeepCopy())
		}
	}
	object.SortByName(items)
	return items
}

// Snapshot returns every stored object, ordered by reference.
func (s *Store) Snapshot() []object.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]object.Ref, 0, len(s.objects))
	for ref := range s.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	items := make([]object.Object, 0, len(refs))
	for _, ref := range refs {
		items = append(items, s.objects[ref].DeepCopy())
	}
	return items
}

func (s *Store) Create(obj object.Object) (object.Object, error) {
	s.mu.Lock()
	created, events, err := s.create(obj)
	watchers := s.watchers
	s.mu.Unlock()
	notify(watchers, events)
	return created, err
}

func (s *Store) Update(obj object.Object) (object.Object, error) {
	s.mu.Lock()
	updated, events, err := s.update(object.RefOf(obj), obj, false)
	watchers := s.watchers
	s.mu.Unlock()
	notify(watchers, events)
	return updated, err
}

func (s *Store) UpdateStatus(obj object.Object) (object.Object, error) {
	s.mu.Lock()
	updated, events, err := s.update(object.RefOf(obj), obj, true)
	watchers := s.watchers
	s.mu.Unlock()
	notify(watchers, events)
	return updated, err
}

// GetThenUpdate updates ref only while it is controlled by owner. An empty
// resourceVersion on obj means the stored one.
func (s *Store) GetThenUpdate(ref object.Ref, owner metav1.OwnerReference, obj object.Object) (object.Object, error) {
	s.mu.Lock()
	updated, events, err := s.getThenUpdate(ref, owner, obj)
	watchers := s.watchers
	s.mu.Unlock()
	notify(watchers, events)
	return updated, err
}

func (s *Store) Delete(ref object.Ref, preconditions *metav1.Preconditions) error {
	s.mu.Lock()
	events, err := s.delete(ref, preconditions, nil)
	watchers := s.watchers
	s.mu.Unlock()
	notify(watchers, events)
	return err
}

func (s *Store) GetThenDelete(ref object.Ref, owner metav1.OwnerReference) error {
	s.mu.Lock()
	events, err := s.delete(ref, nil, &owner)
	watchers := s.watchers
	s.mu.Unlock()
	notify(watchers, events)
	return err
}

func notify(watchers []Watcher, events []Event) {
	for _, event := range events {
		for _, w := range watchers {
			w(event)
		}
	}
}

func (s *Store) nextResourceVersion() string {
	rv := object.FormatCounter(s.rvCounter)
	s.rvCounter++
	return rv
}

func (s *Store) create(obj object.Object) (object.Object, []Event, error) {
	info, err := s.types.Lookup(obj.GetKind())
	if err != nil {
		return nil, nil, err
	}
	created := obj.DeepCopy()
	if created.GetName() == "" {
		if created.GetGenerateName() == "" {
			return nil, nil, apierrors.NewBadRequest("name or generateName is required")
		}
		created.SetName(created.GetGenerateName() + utilrand.SafeEncodeString(object.FormatCounter(s.uidCounter)))
	}
	ref := object.RefOf(created)
	if _, exists := s.objects[ref]; exists {
		return nil, nil, alreadyExists(ref)
	}

	created.SetUID(object.FormatUID(s.uidCounter))
	s.uidCounter++
	created.SetResourceVersion(s.nextResourceVersion())
	created.SetGeneration(1)
	created.SetCreationTimestamp(metav1.NewTime(s.clock.Now()).Rfc3339Copy())
	created.SetDeletionTimestamp(nil)
	object.SetStatus(created, info.DefaultStatus())

	s.objects[ref] = created
	s.log.V(1).Info("created", "object", ref.String(), "uid", created.GetUID(), "resourceVersion", created.GetResourceVersion())
	return created.DeepCopy(), []Event{{Type: Added, Object: created.DeepCopy()}}, nil
}

func (s *Store) update(ref object.Ref, obj object.Object, statusOnly bool) (object.Object, []Event, error) {
	stored, ok := s.objects[ref]
	if !ok {
		return nil, nil, notFound(ref)
	}
	if obj.GetResourceVersion() != stored.GetResourceVersion() {
		return nil, nil, conflict(ref, "resourceVersion %q does not match stored %q",
			obj.GetResourceVersion(), stored.GetResourceVersion())
	}
	if obj.GetUID() != "" && obj.GetUID() != stored.GetUID() {
		return nil, nil, apierrors.NewBadRequest(fmt.Sprintf("uid of %s cannot be changed", ref))
	}
	return s.apply(ref, stored, obj, statusOnly)
}

func (s *Store) getThenUpdate(ref object.Ref, owner metav1.OwnerReference, obj object.Object) (object.Object, []Event, error) {
	stored, ok := s.objects[ref]
	if !ok {
		return nil, nil, notFound(ref)
	}
	if controller := object.ControllerOf(stored); controller == nil || !object.OwnerMatches(*controller, owner) {
		return nil, nil, NewInvalidOwner(ref, owner)
	}
	if obj.GetResourceVersion() != "" && obj.GetResourceVersion() != stored.GetResourceVersion() {
		return nil, nil, conflict(ref, "resourceVersion %q does not match stored %q",
			obj.GetResourceVersion(), stored.GetResourceVersion())
	}
	return s.apply(ref, stored, obj, false)
}

// apply writes obj over stored. Identity, lifecycle and (unless statusOnly)
// status fields always come from stored.
func (s *Store) apply(ref object.Ref, stored, obj object.Object, statusOnly bool) (object.Object, []Event, error) {
	var next object.Object
	if statusOnly {
		next = stored.DeepCopy()
		object.SetStatus(next, object.Status(obj))
	} else {
		next = obj.DeepCopy()
		next.SetAPIVersion(stored.GetAPIVersion())
		next.SetKind(ref.Kind)
		next.SetNamespace(ref.Namespace)
		next.SetName(ref.Name)
		next.SetGenerateName(stored.GetGenerateName())
		next.SetUID(stored.GetUID())
		next.SetCreationTimestamp(stored.GetCreationTimestamp())
		next.SetDeletionTimestamp(stored.GetDeletionTimestamp())
		next.SetGeneration(stored.GetGeneration())
		object.SetStatus(next, object.Status(stored))
		if !object.SpecEqual(stored, next) {
			next.SetGeneration(stored.GetGeneration() + 1)
		}
	}
	next.SetResourceVersion(stored.GetResourceVersion())

	if equality.Semantic.DeepEqual(next.Object, stored.Object) {
		return stored.DeepCopy(), nil, nil
	}

	if object.IsDeleting(next) && len(next.GetFinalizers()) == 0 {
		delete(s.objects, ref)
		s.log.V(1).Info("finalized", "object", ref.String(), "uid", stored.GetUID())
		return next.DeepCopy(), []Event{{Type: Deleted, Object: next.DeepCopy(), Old: stored.DeepCopy()}}, nil
	}

	next.SetResourceVersion(s.nextResourceVersion())
	s.objects[ref] = next
	s.log.V(1).Info("updated", "object", ref.String(), "resourceVersion", next.GetResourceVersion(), "statusOnly", statusOnly)
	return next.DeepCopy(), []Event{{Type: Modified, Object: next.DeepCopy(), Old: stored.DeepCopy()}}, nil
}

func (s *Store) delete(ref object.Ref, preconditions *metav1.Preconditions, owner *metav1.OwnerReference) ([]Event, error) {
	stored, ok := s.objects[ref]
	if !ok {
		return nil, notFound(ref)
	}
	if owner != nil {
		if controller := object.ControllerOf(stored); controller == nil || !object.OwnerMatches(*controller, *owner) {
			return nil, NewInvalidOwner(ref, *owner)
		}
	}
	if preconditions != nil {
		if preconditions.UID != nil && *preconditions.UID != stored.GetUID() {
			return nil, conflict(ref, "precondition failed: uid in precondition %s, uid in object meta %s",
				*preconditions.UID, stored.GetUID())
		}
		if preconditions.ResourceVersion != nil && *preconditions.ResourceVersion != stored.GetResourceVersion() {
			return nil, conflict(ref, "precondition failed: resourceVersion in precondition %s, resourceVersion in object meta %s",
				*preconditions.ResourceVersion, stored.GetResourceVersion())
		}
	}

	if len(stored.GetFinalizers()) > 0 {
		if object.IsDeleting(stored) {
			return nil, nil
		}
		next := stored.DeepCopy()
		now := metav1.NewTime(s.clock.Now()).Rfc3339Copy()
		next.SetDeletionTimestamp(&now)
		next.SetResourceVersion(s.nextResourceVersion())
		s.objects[ref] = next
		s.log.V(1).Info("marked for deletion", "object", ref.String(), "finalizers", next.GetFinalizers())
		return []Event{{Type: Modified, Object: next.DeepCopy(), Old: stored.DeepCopy()}}, nil
	}

	delete(s.objects, ref)
	s.log.V(1).Info("deleted", "object", ref.String(), "uid", stored.GetUID())
	return []Event{{Type: Deleted, Object: stored.DeepCopy(), Old: stored.DeepCopy()}}, nil
}
