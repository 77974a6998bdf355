// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package v1beta1

import (
	"fmt"

	"github.com/vreconcile/operators/internal/status"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	k8sresource "k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
)

const (
	ZookeeperClusterKind = "ZookeeperCluster"

	defaultZookeeperImage = "pravega/zookeeper:0.2.15"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName={"zk"}
type ZookeeperCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ZookeeperClusterSpec   `json:"spec,omitempty"`
	Status ZookeeperClusterStatus `json:"status,omitempty"`
}

type ZookeeperClusterSpec struct {
	// +kubebuilder:default:=3
	Replicas    *int32                       `json:"replicas,omitempty"`
	Image       string                       `json:"image,omitempty"`
	Ports       ZookeeperPorts               `json:"ports,omitempty"`
	Conf        ZookeeperConfig              `json:"conf,omitempty"`
	Persistence ZookeeperPersistence         `json:"persistence,omitempty"`
	Resources   *corev1.ResourceRequirements `json:"resources,omitempty"`
}

type ZookeeperPorts struct {
	Client         int32 `json:"client,omitempty"`
	Quorum         int32 `json:"quorum,omitempty"`
	LeaderElection int32 `json:"leaderElection,omitempty"`
	Metrics        int32 `json:"metrics,omitempty"`
	AdminServer    int32 `json:"adminServer,omitempty"`
}

// ZookeeperConfig holds the zoo.cfg tunables. Zero values are replaced by
// the ZooKeeper defaults.
type ZookeeperConfig struct {
	InitLimit                int  `json:"initLimit,omitempty"`
	TickTime                 int  `json:"tickTime,omitempty"`
	SyncLimit                int  `json:"syncLimit,omitempty"`
	GlobalOutstandingLimit   int  `json:"globalOutstandingLimit,omitempty"`
	PreAllocSize             int  `json:"preAllocSize,omitempty"`
	SnapCount                int  `json:"snapCount,omitempty"`
	CommitLogCount           int  `json:"commitLogCount,omitempty"`
	SnapSizeLimitInKb        int  `json:"snapSizeLimitInKb,omitempty"`
	MaxCnxns                 int  `json:"maxCnxns,omitempty"`
	MinSessionTimeout        int  `json:"minSessionTimeout,omitempty"`
	MaxSessionTimeout        int  `json:"maxSessionTimeout,omitempty"`
	AutoPurgeSnapRetainCount int  `json:"autoPurgeSnapRetainCount,omitempty"`
	AutoPurgePurgeInterval   int  `json:"autoPurgePurgeInterval,omitempty"`
	QuorumListenOnAllIPs     bool `json:"quorumListenOnAllIPs,omitempty"`
}

type ZookeeperPersistence struct {
	StorageClassName *string               `json:"storageClassName,omitempty"`
	Storage          *k8sresource.Quantity `json:"storage,omitempty"`
}

type ZookeeperClusterStatus struct {
	Conditions         []status.Condition `json:"conditions"`
	ReadyReplicas      int32              `json:"readyReplicas,omitempty"`
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
type ZookeeperClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ZookeeperCluster `json:"items"`
}

func (zk ZookeeperCluster) ChildResourceName(name string) string {
	return childResourceName(zk.Name, name)
}

func (zk *ZookeeperCluster) Default() {
	spec := &zk.Spec
	if spec.Replicas == nil {
		spec.Replicas = ptr.To[int32](3)
	}
	if spec.Image == "" {
		spec.Image = defaultZookeeperImage
	}
	defaultInt32(&spec.Ports.Client, 2181)
	defaultInt32(&spec.Ports.Quorum, 2888)
	defaultInt32(&spec.Ports.LeaderElection, 3888)
	defaultInt32(&spec.Ports.Metrics, 7000)
	defaultInt32(&spec.Ports.AdminServer, 8080)

	conf := &spec.Conf
	defaultInt(&conf.InitLimit, 10)
	defaultInt(&conf.TickTime, 2000)
	defaultInt(&conf.SyncLimit, 2)
	defaultInt(&conf.GlobalOutstandingLimit, 1000)
	defaultInt(&conf.PreAllocSize, 65536)
	defaultInt(&conf.SnapCount, 10000)
	defaultInt(&conf.CommitLogCount, 500)
	defaultInt(&conf.SnapSizeLimitInKb, 4194304)
	defaultInt(&conf.MinSessionTimeout, 2*conf.TickTime)
	defaultInt(&conf.MaxSessionTimeout, 20*conf.TickTime)
	defaultInt(&conf.AutoPurgeSnapRetainCount, 3)
	defaultInt(&conf.AutoPurgePurgeInterval, 1)

	if spec.Persistence.Storage == nil {
		storage := k8sresource.MustParse("20Gi")
		spec.Persistence.Storage = &storage
	}
}

func defaultInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func defaultInt32(field *int32, value int32) {
	if *field == 0 {
		*field = value
	}
}

var _ Validator = &ZookeeperCluster{}

func (zk *ZookeeperCluster) ValidateCreate() error {
	var allErrs field.ErrorList
	spec := field.NewPath("spec")
	if zk.Spec.Replicas != nil && *zk.Spec.Replicas < 1 {
		allErrs = append(allErrs, field.Invalid(spec.Child("replicas"), *zk.Spec.Replicas, "must be at least 1"))
	}
	conf := zk.Spec.Conf
	if conf.TickTime < 0 {
		allErrs = append(allErrs, field.Invalid(spec.Child("conf", "tickTime"), conf.TickTime, "must not be negative"))
	}
	if conf.MinSessionTimeout != 0 && conf.MaxSessionTimeout != 0 && conf.MinSessionTimeout > conf.MaxSessionTimeout {
		allErrs = append(allErrs, field.Invalid(spec.Child("conf", "minSessionTimeout"), conf.MinSessionTimeout,
			"must not exceed maxSessionTimeout"))
	}
	if len(allErrs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(Kind(ZookeeperClusterKind), zk.Name, allErrs)
}

func (zk *ZookeeperCluster) ValidateUpdate(old runtime.Object) error {
	oldZk, ok := old.(*ZookeeperCluster)
	if !ok {
		return apierrors.NewBadRequest(fmt.Sprintf("expected a ZookeeperCluster but got a %T", old))
	}
	if err := zk.ValidateCreate(); err != nil {
		return err
	}
	previous := oldZk.DeepCopy()
	previous.Default()
	current := zk.DeepCopy()
	current.Default()
	if previous.Spec.Persistence.Storage.Cmp(*current.Spec.Persistence.Storage) != 0 {
		return apierrors.NewForbidden(Resource("zookeeperclusters"), zk.Name,
			field.Forbidden(field.NewPath("spec", "persistence", "storage"), "persistence storage cannot be updated"))
	}
	return nil
}

func (zk *ZookeeperCluster) SetDefaultStatus() {
	zk.Status = ZookeeperClusterStatus{Conditions: []status.Condition{}}
}

func (zk *ZookeeperCluster) GetConditions() []status.Condition {
	return zk.Status.Conditions
}

func (zk *ZookeeperCluster) SetConditions(conditions []status.Condition) {
	zk.Status.Conditions = conditions
}

func (zk *ZookeeperCluster) SetObservedGeneration(generation int64) {
	zk.Status.ObservedGeneration = generation
}

func init() {
	SchemeBuilder.Register(&ZookeeperCluster{}, &ZookeeperClusterList{})
}
