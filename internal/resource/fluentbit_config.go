// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/metadata"
	"github.com/vreconcile/operators/internal/pipeline"
	"gopkg.in/ini.v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const fluentBitConfigSuffix = "config"

// FluentBitConfigSecretName is the Secret rendered for the named
// FluentBitConfig.
func FluentBitConfigSecretName(configName string) string {
	return v1beta1.FluentBitConfig{ObjectMeta: metav1.ObjectMeta{Name: configName}}.ChildResourceName(fluentBitConfigSuffix)
}

func FluentBitConfigBuilders(scheme *runtime.Scheme) pipeline.BuilderFactory {
	return func(cr client.Object, _ pipeline.Observed) []pipeline.ResourceBuilder {
		return []pipeline.ResourceBuilder{
			&FluentBitConfigSecretBuilder{Instance: cr.(*v1beta1.FluentBitConfig), Scheme: scheme},
		}
	}
}

type FluentBitConfigSecretBuilder struct {
	Instance *v1beta1.FluentBitConfig
	Scheme   *runtime.Scheme
}

func (builder *FluentBitConfigSecretBuilder) Build() (client.Object, error) {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      FluentBitConfigSecretName(builder.Instance.Name),
			Namespace: builder.Instance.Namespace,
		},
		Type: corev1.SecretTypeOpaque,
	}, nil
}

func (builder *FluentBitConfigSecretBuilder) Update(object client.Object) error {
	secret := object.(*corev1.Secret)
	secret.Labels = metadata.GetLabels(builder.Instance.Name, fluentBitComponent, builder.Instance.Labels)
	secret.Annotations = metadata.ReconcileAndFilterAnnotations(secret.GetAnnotations(), builder.Instance.Annotations)

	conf, err := builder.fluentBitConf()
	if err != nil {
		return fmt.Errorf("failed to render fluent-bit.conf: %w", err)
	}
	parsers, err := builder.parsersConf()
	if err != nil {
		return fmt.Errorf("failed to render parsers.conf: %w", err)
	}
	secret.Data = map[string][]byte{
		"fluent-bit.conf": conf,
		"parsers.conf":    parsers,
	}
	return setControllerReference(builder.Instance, secret, builder.Scheme)
}

// fluentBitFile is a classic-mode fluent-bit file: repeated [SECTION]
// headers with indented "Key Value" entries.
func fluentBitFile() *ini.File {
	return ini.Empty(ini.LoadOptions{
		AllowNonUniqueSections:   true,
		KeyValueDelimiterOnWrite: " ",
		IgnoreInlineComment:      true,
	})
}

func addSection(cfg *ini.File, name string, pairs [][2]string) error {
	section, err := cfg.NewSection(name)
	if err != nil {
		return err
	}
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		if _, err := section.NewKey(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func pluginPairs(p v1beta1.FluentBitPlugin) [][2]string {
	pairs := [][2]string{{"Name", p.Name}, {"Tag", p.Tag}, {"Match", p.Match}}
	keys := make([]string, 0, len(p.Parameters))
	for k := range p.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, p.Parameters[k]})
	}
	return pairs
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

func (builder *FluentBitConfigSecretBuilder) fluentBitConf() ([]byte, error) {
	spec := builder.Instance.Spec
	cfg := fluentBitFile()
	if err := addSection(cfg, "SERVICE", [][2]string{
		{"Flush", fmt.Sprint(spec.Service.FlushSeconds)},
		{"Log_Level", spec.Service.LogLevel},
		{"Parsers_File", FluentBitConfigVolume + "parsers.conf"},
		{"HTTP_Server", onOff(spec.Service.HTTPServer)},
		{"HTTP_Listen", "0.0.0.0"},
	}); err != nil {
		return nil, err
	}
	for _, section := range []struct {
		name    string
		plugins []v1beta1.FluentBitPlugin
	}{
		{"INPUT", spec.Inputs},
		{"FILTER", spec.Filters},
		{"OUTPUT", spec.Outputs},
	} {
		for _, p := range section.plugins {
			if err := addSection(cfg, section.name, pluginPairs(p)); err != nil {
				return nil, err
			}
		}
	}
	return writeFluentBitFile(cfg)
}

func (builder *FluentBitConfigSecretBuilder) parsersConf() ([]byte, error) {
	cfg := fluentBitFile()
	for _, p := range builder.Instance.Spec.Parsers {
		if err := addSection(cfg, "PARSER", [][2]string{
			{"Name", p.Name},
			{"Format", p.Format},
			{"Regex", p.Regex},
			{"Time_Key", p.TimeKey},
			{"Time_Format", p.TimeFormat},
		}); err != nil {
			return nil, err
		}
	}
	return writeFluentBitFile(cfg)
}

func writeFluentBitFile(cfg *ini.File) ([]byte, error) {
	var buffer bytes.Buffer
	if _, err := cfg.WriteToIndent(&buffer, "    "); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
