// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package message defines the requests and responses exchanged between
// controllers and the api-server, and the bus that carries them.
package message

import (
	"fmt"

	"github.com/vreconcile/operators/pkg/object"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type EndpointKind string

const (
	APIServer  EndpointKind = "APIServer"
	Controller EndpointKind = "Controller"
	BuiltIn    EndpointKind = "BuiltIn"
	Client     EndpointKind = "Client"
)

// Endpoint is the source or destination of a message. Controller and
// built-in endpoints carry the key they act for.
type Endpoint struct {
	Kind EndpointKind
	Name string
	Key  object.Ref
}

func (e Endpoint) String() string {
	if e.Key == (object.Ref{}) {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s(%s, %s)", e.Kind, e.Name, e.Key)
}

func APIServerEndpoint() Endpoint {
	return Endpoint{Kind: APIServer, Name: "api-server"}
}

func ControllerEndpoint(name string, key object.Ref) Endpoint {
	return Endpoint{Kind: Controller, Name: name, Key: key}
}

func BuiltInEndpoint(name string, key object.Ref) Endpoint {
	return Endpoint{Kind: BuiltIn, Name: name, Key: key}
}

func ClientEndpoint(name string) Endpoint {
	return Endpoint{Kind: Client, Name: name}
}

type Verb string

const (
	Get           Verb = "Get"
	List          Verb = "List"
	Create        Verb = "Create"
	Update        Verb = "Update"
	UpdateStatus  Verb = "UpdateStatus"
	GetThenUpdate Verb = "GetThenUpdate"
	Delete        Verb = "Delete"
	GetThenDelete Verb = "GetThenDelete"
)

func (v Verb) Mutating() bool {
	return v != Get && v != List
}

// Request is an api-server request. List uses a Ref without a name.
type Request struct {
	Verb   Verb
	Ref    object.Ref
	Object object.Object
	// Owner guards GetThenUpdate and GetThenDelete.
	Owner         *metav1.OwnerReference
	Preconditions *metav1.Preconditions
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s", r.Verb, r.Ref)
}

type Response struct {
	Verb   Verb
	Object object.Object
	Items  []object.Object
	Err    error
}

func (r *Response) Ok() bool {
	return r != nil && r.Err == nil
}

// Reason is the api status reason of the response error, empty on success.
func (r *Response) Reason() metav1.StatusReason {
	if r.Ok() {
		return ""
	}
	if reason := apierrors.ReasonForError(r.Err); reason != metav1.StatusReasonUnknown {
		return reason
	}
	return metav1.StatusReasonInternalError
}

// Message carries exactly one of Request or Response. A response keeps the
// id of the request it answers.
type Message struct {
	Src      Endpoint
	Dst      Endpoint
	ID       uint64
	Request  *Request
	Response *Response
}

func (m Message) IsRequest() bool {
	return m.Request != nil
}

func (m Message) String() string {
	if m.IsRequest() {
		return fmt.Sprintf("#%d %s -> %s: %s", m.ID, m.Src, m.Dst, m.Request)
	}
	return fmt.Sprintf("#%d %s -> %s: %s reply (%s)", m.ID, m.Src, m.Dst, m.Response.Verb, m.Response.Reason())
}

// Matches reports whether resp answers req.
func Matches(req, resp Message) bool {
	return req.IsRequest() && !resp.IsRequest() && req.ID == resp.ID && resp.Dst == req.Src
}

// Reply builds the response message to req.
func Reply(req Message, resp *Response) Message {
	return Message{Src: req.Dst, Dst: req.Src, ID: req.ID, Response: resp}
}

func (m Message) deepCopy() Message {
	out := m
	if m.Request != nil {
		req := *m.Request
		req.Object = object.DeepCopy(m.Request.Object)
		if m.Request.Owner != nil {
			owner := *m.Request.Owner
			req.Owner = &owner
		}
		if m.Request.Preconditions != nil {
			req.Preconditions = m.Request.Preconditions.DeepCopy()
		}
		out.Request = &req
	}
	if m.Response != nil {
		resp := *m.Response
		resp.Object = object.DeepCopy(m.Response.Object)
		if m.Response.Items != nil {
			resp.Items = make([]object.Object, len(m.Response.Items))
			for i, item := range m.Response.Items {
				resp.Items[i] = item.DeepCopy()
			}
		}
		out.Response = &resp
	}
	return out
}
