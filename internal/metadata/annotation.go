// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package metadata

import "strings"

// ReconcileAnnotations merges defaults into existing; defaults win.
func ReconcileAnnotations(existing map[string]string, defaults ...map[string]string) map[string]string {
	return merge(existing, false, defaults...)
}

// ReconcileAndFilterAnnotations is ReconcileAnnotations with the Kubernetes
// annotations of defaults filtered out. Existing annotations are kept as is.
func ReconcileAndFilterAnnotations(existing map[string]string, defaults ...map[string]string) map[string]string {
	return merge(existing, true, defaults...)
}

func merge(existing map[string]string, filter bool, defaults ...map[string]string) map[string]string {
	merged := map[string]string{}
	for k, v := range existing {
		merged[k] = v
	}
	for _, annotations := range defaults {
		for k, v := range annotations {
			if filter && isKubernetesAnnotation(k) {
				continue
			}
			merged[k] = v
		}
	}
	return merged
}

func isKubernetesAnnotation(key string) bool {
	return strings.Contains(key, "kubernetes.io") || strings.Contains(key, "k8s.io")
}
