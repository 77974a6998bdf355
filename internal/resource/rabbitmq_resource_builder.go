// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package resource renders the sub-resources of every pipeline-driven CR.
package resource

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/pipeline"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

const rabbitmqComponent = "rabbitmq"

type RabbitmqResourceBuilder struct {
	Instance *v1beta1.RabbitmqCluster
	Scheme   *runtime.Scheme
	// Observed holds the sub-resources already reconciled in this pass.
	Observed pipeline.Observed
	// Rand is the source of generated credentials. Nil means crypto/rand.
	Rand io.Reader
}

func (builder *RabbitmqResourceBuilder) ResourceBuilders() []pipeline.ResourceBuilder {
	return []pipeline.ResourceBuilder{
		builder.HeadlessService(),
		builder.ClientService(),
		builder.ErlangCookie(),
		builder.DefaultUserSecret(),
		builder.RabbitmqPluginsConfigMap(),
		builder.ServerConfigMap(),
		builder.ServiceAccount(),
		builder.Role(),
		builder.RoleBinding(),
		builder.StatefulSet(),
	}
}

// RabbitmqBuilders adapts RabbitmqResourceBuilder to the pipeline.
func RabbitmqBuilders(scheme *runtime.Scheme, random io.Reader) pipeline.BuilderFactory {
	return func(cr client.Object, observed pipeline.Observed) []pipeline.ResourceBuilder {
		builder := &RabbitmqResourceBuilder{
			Instance: cr.(*v1beta1.RabbitmqCluster),
			Scheme:   scheme,
			Observed: observed,
			Rand:     random,
		}
		return builder.ResourceBuilders()
	}
}

func (builder *RabbitmqResourceBuilder) randomEncodedString(dataLen int) (string, error) {
	return randomEncodedString(builder.Rand, dataLen)
}

func randomEncodedString(random io.Reader, dataLen int) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	randomBytes := make([]byte, dataLen)
	if _, err := io.ReadFull(random, randomBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(randomBytes), nil
}

func setControllerReference(owner, obj client.Object, scheme *runtime.Scheme) error {
	if err := controllerutil.SetControllerReference(owner, obj, scheme); err != nil {
		return fmt.Errorf("failed setting controller reference: %w", err)
	}
	return nil
}
