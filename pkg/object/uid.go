// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package object

import (
	"fmt"
	"strconv"

	"k8s.io/apimachinery/pkg/types"
)

// UIDs and resource versions are decimal renderings of store counters.

func FormatCounter(counter uint64) string {
	return strconv.FormatUint(counter, 10)
}

func FormatUID(counter uint64) types.UID {
	return types.UID(FormatCounter(counter))
}

func ParseCounter(value string) (uint64, error) {
	counter, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a store counter: %w", value, err)
	}
	return counter, nil
}

func ParseUID(uid types.UID) (uint64, error) {
	return ParseCounter(string(uid))
}

// ResourceVersion returns the numeric resource version of obj, or 0 when unset
// or malformed.
func ResourceVersion(obj Object) uint64 {
	rv, err := ParseCounter(obj.GetResourceVersion())
	if err != nil {
		return 0
	}
	return rv
}
