// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"context"

	"github.com/vreconcile/operators/internal/message"
	"github.com/vreconcile/operators/pkg/object"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const clientName = "user"

// Do sends req to the api-server as an external client and waits for the
// answer. The request is served straight away unless a running api-server
// takes it first.
func (c *Cluster) Do(ctx context.Context, req *message.Request) (*message.Response, error) {
	src := message.ClientEndpoint(clientName)
	id := c.Bus.NextID()
	c.Bus.Send(message.Message{Src: src, Dst: message.APIServerEndpoint(), ID: id, Request: req})
	c.APIServer.HandleID(id)
	for {
		changed := c.Bus.Changed()
		if msg, ok := c.Bus.Receive(id, src); ok {
			return msg.Response, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

func (c *Cluster) write(ctx context.Context, req *message.Request) (object.Object, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Object, resp.Err
}

// Create stores a typed object, such as a CR read from a manifest.
func (c *Cluster) Create(ctx context.Context, obj client.Object) (object.Object, error) {
	u, err := object.FromTyped(obj, c.Scheme)
	if err != nil {
		return nil, err
	}
	return c.CreateObject(ctx, u)
}

func (c *Cluster) CreateObject(ctx context.Context, obj object.Object) (object.Object, error) {
	return c.write(ctx, &message.Request{Verb: message.Create, Ref: object.RefOf(obj), Object: obj})
}

// Update replaces obj when its resourceVersion is still current.
func (c *Cluster) Update(ctx context.Context, obj object.Object) (object.Object, error) {
	return c.write(ctx, &message.Request{Verb: message.Update, Ref: object.RefOf(obj), Object: obj})
}

// Mutate applies mutate to the latest copy of ref and updates it.
func (c *Cluster) Mutate(ctx context.Context, ref object.Ref, mutate func(object.Object) error) (object.Object, error) {
	obj, err := c.Store.Get(ref)
	if err != nil {
		return nil, err
	}
	if err := mutate(obj); err != nil {
		return nil, err
	}
	return c.Update(ctx, obj)
}

func (c *Cluster) Delete(ctx context.Context, ref object.Ref) error {
	_, err := c.write(ctx, &message.Request{Verb: message.Delete, Ref: ref})
	return err
}

// DeleteWithUID deletes ref only while it is the object with uid.
func (c *Cluster) DeleteWithUID(ctx context.Context, ref object.Ref, uid string) error {
	precondition := metav1.NewUIDPreconditions(uid)
	_, err := c.write(ctx, &message.Request{Verb: message.Delete, Ref: ref, Preconditions: precondition})
	return err
}
