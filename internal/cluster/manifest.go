// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"
)

// Apply creates every object of a multi-document YAML or JSON stream, in
// order. Objects without a namespace land in the configured one.
func (c *Cluster) Apply(ctx context.Context, r io.Reader) ([]object.Object, error) {
	decoder := utilyaml.NewYAMLOrJSONDecoder(r, 4096)
	var created []object.Object
	for {
		var raw runtime.RawExtension
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return created, nil
			}
			return created, fmt.Errorf("failed to decode manifest: %w", err)
		}
		raw.Raw = bytes.TrimSpace(raw.Raw)
		if len(raw.Raw) == 0 || bytes.Equal(raw.Raw, []byte("null")) {
			continue
		}
		obj := &unstructured.Unstructured{}
		if err := obj.UnmarshalJSON(raw.Raw); err != nil {
			return created, fmt.Errorf("failed to decode manifest: %w", err)
		}
		if obj.GetNamespace() == "" {
			obj.SetNamespace(c.Config.Namespace)
		}
		stored, err := c.CreateObject(ctx, obj)
		if err != nil {
			return created, fmt.Errorf("failed to create %s: %w", object.RefOf(obj), err)
		}
		c.log.Info("created from manifest", "object", object.RefOf(stored).String())
		created = append(created, stored)
	}
}

// Dump renders every stored object as a YAML document stream.
func (c *Cluster) Dump(w io.Writer) error {
	for _, obj := range c.Store.Snapshot() {
		out, err := yaml.Marshal(obj.Object)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "---\n%s", out); err != nil {
			return err
		}
	}
	return nil
}
