// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package metadata

import (
	"strings"
)

const (
	NameLabel      = "app.kubernetes.io/name"
	ComponentLabel = "app.kubernetes.io/component"
	PartOfLabel    = "app.kubernetes.io/part-of"

	PartOf = "vreconcile"
)

type label map[string]string

// Label returns the identity labels of everything rendered for one CR
// instance of the given component (rabbitmq, zookeeper, fluent-bit).
func Label(instanceName, component string) label {
	return map[string]string{
		NameLabel:      instanceName,
		ComponentLabel: component,
		PartOfLabel:    PartOf,
	}
}

// GetLabels merges the user's CR labels into the identity labels. User
// labels under app.kubernetes.io are dropped.
func GetLabels(instanceName, component string, instanceLabels map[string]string) label {
	allLabels := Label(instanceName, component)

	for label, value := range instanceLabels {
		if !strings.HasPrefix(label, "app.kubernetes.io") {
			allLabels[label] = value
		}
	}

	return allLabels
}

func LabelSelector(instanceName, component string) label {
	return map[string]string{
		NameLabel:      instanceName,
		ComponentLabel: component,
	}
}
