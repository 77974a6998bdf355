// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package controllers

// deletionFinalizer holds a RabbitmqCluster in place until its controller
// has seen the deletion.
const deletionFinalizer = "deletion.finalizers.rabbitmqclusters.vreconcile.io"
