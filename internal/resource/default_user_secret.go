// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"fmt"

	"github.com/vreconcile/operators/internal/metadata"
	"gopkg.in/ini.v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	DefaultUserSecretName = "default-user"
	BindingProvider       = "rabbitmq"
)

type DefaultUserSecretBuilder struct {
	*RabbitmqResourceBuilder
}

func (builder *RabbitmqResourceBuilder) DefaultUserSecret() *DefaultUserSecretBuilder {
	return &DefaultUserSecretBuilder{builder}
}

func (builder *DefaultUserSecretBuilder) Build() (client.Object, error) {
	username, err := builder.randomEncodedString(24)
	if err != nil {
		return nil, err
	}

	password, err := builder.randomEncodedString(24)
	if err != nil {
		return nil, err
	}

	defaultUserConf, err := generateDefaultUserConf(username, password)
	if err != nil {
		return nil, err
	}

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      builder.Instance.ChildResourceName(DefaultUserSecretName),
			Namespace: builder.Instance.Namespace,
		},
		Type: corev1.SecretTypeOpaque,
		// Default user secret implements the service binding Provisioned Service
		// See: https://k8s-service-bindings.github.io/spec/#provisioned-service
		Data: map[string][]byte{
			"provider":          []byte(BindingProvider),
			"type":              []byte(BindingProvider),
			"username":          []byte(username),
			"password":          []byte(password),
			"default_user.conf": defaultUserConf,
		},
	}, nil
}

// Update keeps the generated credentials and refreshes the connection
// details, which follow the spec.
func (builder *DefaultUserSecretBuilder) Update(object client.Object) error {
	secret := object.(*corev1.Secret)
	secret.Labels = metadata.GetLabels(builder.Instance.Name, rabbitmqComponent, builder.Instance.Labels)
	secret.Annotations = metadata.ReconcileAndFilterAnnotations(secret.GetAnnotations(), builder.Instance.Annotations)

	if secret.Data == nil {
		secret.Data = map[string][]byte{}
	}
	secret.Data["host"] = []byte(fmt.Sprintf("%s.%s.svc", builder.Instance.Name, builder.Instance.Namespace))
	secret.Data["port"] = []byte("5672")

	return setControllerReference(builder.Instance, secret, builder.Scheme)
}

func generateDefaultUserConf(username, password string) ([]byte, error) {
	cfg := ini.Empty()
	defaultSection := cfg.Section("")

	if _, err := defaultSection.NewKey("default_user", username); err != nil {
		return nil, err
	}

	if _, err := defaultSection.NewKey("default_pass", password); err != nil {
		return nil, err
	}

	return writeIni(cfg)
}
