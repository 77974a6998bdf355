// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"bytes"

	"gopkg.in/ini.v1"
)

func init() {
	// Every file rendered here is a flat "key = value" list: no section
	// headers, no trailing blank line, no key alignment.
	ini.PrettySection = false
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

func writeIni(cfg *ini.File) ([]byte, error) {
	var buffer bytes.Buffer
	if _, err := cfg.WriteTo(&buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// newIni returns a file whose default section holds pairs in order.
func newIni(pairs [][2]string) (*ini.File, error) {
	cfg := ini.Empty()
	section := cfg.Section("")
	for _, kv := range pairs {
		if _, err := section.NewKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
