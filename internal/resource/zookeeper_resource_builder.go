// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"fmt"
	"strings"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/metadata"
	"github.com/vreconcile/operators/internal/pipeline"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	zookeeperComponent = "zookeeper"

	zookeeperHeadlessName    = "headless"
	zookeeperClientName      = "client"
	zookeeperAdminServerName = "admin-server"
	ZookeeperConfigMapName   = "configmap"

	// ZookeeperConfVersionAnnotation carries the resourceVersion of the
	// zoo.cfg ConfigMap on the pod template.
	ZookeeperConfVersionAnnotation = "vreconcile.io/zookeeper-conf-version"
)

type ZookeeperResourceBuilder struct {
	Instance *v1beta1.ZookeeperCluster
	Scheme   *runtime.Scheme
	Observed pipeline.Observed
}

func (builder *ZookeeperResourceBuilder) ResourceBuilders() []pipeline.ResourceBuilder {
	return []pipeline.ResourceBuilder{
		&zookeeperServiceBuilder{builder, zookeeperHeadlessName},
		&zookeeperServiceBuilder{builder, zookeeperClientName},
		&zookeeperServiceBuilder{builder, zookeeperAdminServerName},
		&ZookeeperConfigMapBuilder{builder},
		&ZookeeperPodDisruptionBudgetBuilder{builder},
		&ZookeeperStatefulSetBuilder{builder},
	}
}

func ZookeeperBuilders(scheme *runtime.Scheme) pipeline.BuilderFactory {
	return func(cr client.Object, observed pipeline.Observed) []pipeline.ResourceBuilder {
		builder := &ZookeeperResourceBuilder{
			Instance: cr.(*v1beta1.ZookeeperCluster),
			Scheme:   scheme,
			Observed: observed,
		}
		return builder.ResourceBuilders()
	}
}

func (builder *ZookeeperResourceBuilder) labels() map[string]string {
	return metadata.GetLabels(builder.Instance.Name, zookeeperComponent, builder.Instance.Labels)
}

func (builder *ZookeeperResourceBuilder) selector() map[string]string {
	return metadata.LabelSelector(builder.Instance.Name, zookeeperComponent)
}

func (builder *ZookeeperResourceBuilder) objectMeta(name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:      builder.Instance.ChildResourceName(name),
		Namespace: builder.Instance.Namespace,
	}
}

func (builder *ZookeeperResourceBuilder) setMetadata(obj client.Object) error {
	obj.SetLabels(builder.labels())
	obj.SetAnnotations(metadata.ReconcileAndFilterAnnotations(obj.GetAnnotations(), builder.Instance.Annotations))
	return setControllerReference(builder.Instance, obj, builder.Scheme)
}

// zookeeperServiceBuilder renders one of the headless, client and admin
// server services.
type zookeeperServiceBuilder struct {
	*ZookeeperResourceBuilder
	name string
}

func (builder *zookeeperServiceBuilder) Build() (client.Object, error) {
	return &corev1.Service{ObjectMeta: builder.objectMeta(builder.name)}, nil
}

func (builder *zookeeperServiceBuilder) Update(object client.Object) error {
	service := object.(*corev1.Service)
	ports := builder.Instance.Spec.Ports
	tcp := func(name string, port int32) corev1.ServicePort {
		return corev1.ServicePort{Name: name, Port: port, Protocol: corev1.ProtocolTCP}
	}

	service.Spec.Selector = builder.selector()
	switch builder.name {
	case zookeeperHeadlessName:
		service.Spec.ClusterIP = corev1.ClusterIPNone
		service.Spec.PublishNotReadyAddresses = true
		service.Spec.Ports = []corev1.ServicePort{
			tcp("tcp-client", ports.Client),
			tcp("tcp-quorum", ports.Quorum),
			tcp("tcp-leader-election", ports.LeaderElection),
			tcp("tcp-metrics", ports.Metrics),
			tcp("tcp-admin-server", ports.AdminServer),
		}
	case zookeeperClientName:
		service.Spec.Type = corev1.ServiceTypeClusterIP
		service.Spec.Ports = []corev1.ServicePort{tcp("tcp-client", ports.Client)}
	case zookeeperAdminServerName:
		service.Spec.Type = corev1.ServiceTypeClusterIP
		service.Spec.Ports = []corev1.ServicePort{tcp("tcp-admin-server", ports.AdminServer)}
	}
	return builder.setMetadata(service)
}

type ZookeeperConfigMapBuilder struct {
	*ZookeeperResourceBuilder
}

func (builder *ZookeeperConfigMapBuilder) Build() (client.Object, error) {
	return &corev1.ConfigMap{ObjectMeta: builder.objectMeta(ZookeeperConfigMapName)}, nil
}

func (builder *ZookeeperConfigMapBuilder) Update(object client.Object) error {
	configMap := object.(*corev1.ConfigMap)
	zooCfg, err := builder.zooCfg()
	if err != nil {
		return err
	}
	configMap.Data = map[string]string{
		"zoo.cfg":          zooCfg,
		"log4j.properties": "zookeeper.root.logger=CONSOLE\nzookeeper.console.threshold=INFO\n",
		"env.sh":           builder.envSh(),
	}
	return builder.setMetadata(configMap)
}

func (builder *ZookeeperConfigMapBuilder) zooCfg() (string, error) {
	conf := builder.Instance.Spec.Conf
	pairs := [][2]string{
		{"4lw.commands.whitelist", "cons, envi, conf, crst, srvr, stat, mntr, ruok"},
		{"dataDir", "/data"},
		{"standaloneEnabled", "false"},
		{"reconfigEnabled", "true"},
		{"skipACL", "yes"},
		{"metricsProvider.className", "org.apache.zookeeper.metrics.prometheus.PrometheusMetricsProvider"},
		{"metricsProvider.httpPort", fmt.Sprint(builder.Instance.Spec.Ports.Metrics)},
		{"admin.serverPort", fmt.Sprint(builder.Instance.Spec.Ports.AdminServer)},
		{"initLimit", fmt.Sprint(conf.InitLimit)},
		{"syncLimit", fmt.Sprint(conf.SyncLimit)},
		{"tickTime", fmt.Sprint(conf.TickTime)},
		{"globalOutstandingLimit", fmt.Sprint(conf.GlobalOutstandingLimit)},
		{"preAllocSize", fmt.Sprint(conf.PreAllocSize)},
		{"snapCount", fmt.Sprint(conf.SnapCount)},
		{"commitLogCount", fmt.Sprint(conf.CommitLogCount)},
		{"snapSizeLimitInKb", fmt.Sprint(conf.SnapSizeLimitInKb)},
		{"maxCnxns", fmt.Sprint(conf.MaxCnxns)},
		{"minSessionTimeout", fmt.Sprint(conf.MinSessionTimeout)},
		{"maxSessionTimeout", fmt.Sprint(conf.MaxSessionTimeout)},
		{"autopurge.snapRetainCount", fmt.Sprint(conf.AutoPurgeSnapRetainCount)},
		{"autopurge.purgeInterval", fmt.Sprint(conf.AutoPurgePurgeInterval)},
		{"quorumListenOnAllIPs", fmt.Sprint(conf.QuorumListenOnAllIPs)},
		{"dynamicConfigFile", "/data/zoo.cfg.dynamic"},
	}
	cfg, err := newIni(pairs)
	if err != nil {
		return "", err
	}
	rendered, err := writeIni(cfg)
	return string(rendered), err
}

func (builder *ZookeeperConfigMapBuilder) envSh() string {
	ports := builder.Instance.Spec.Ports
	domain := fmt.Sprintf("%s.%s.svc.cluster.local",
		builder.Instance.ChildResourceName(zookeeperHeadlessName), builder.Instance.Namespace)
	return strings.Join([]string{
		"#!/usr/bin/env bash",
		"DOMAIN=" + domain,
		fmt.Sprintf("QUORUM_PORT=%d", ports.Quorum),
		fmt.Sprintf("LEADER_PORT=%d", ports.LeaderElection),
		fmt.Sprintf("CLIENT_HOST=%s", builder.Instance.ChildResourceName(zookeeperClientName)),
		fmt.Sprintf("CLIENT_PORT=%d", ports.Client),
		fmt.Sprintf("ADMIN_SERVER_HOST=%s", builder.Instance.ChildResourceName(zookeeperAdminServerName)),
		fmt.Sprintf("ADMIN_SERVER_PORT=%d", ports.AdminServer),
		fmt.Sprintf("CLUSTER_NAME=%s", builder.Instance.Name),
		fmt.Sprintf("CLUSTER_SIZE=%d", *builder.Instance.Spec.Replicas),
	}, "\n") + "\n"
}

type ZookeeperPodDisruptionBudgetBuilder struct {
	*ZookeeperResourceBuilder
}

func (builder *ZookeeperPodDisruptionBudgetBuilder) Build() (client.Object, error) {
	return &policyv1.PodDisruptionBudget{ObjectMeta: builder.objectMeta("")}, nil
}

// Update allows one voluntary disruption, none for single-node ensembles.
func (builder *ZookeeperPodDisruptionBudgetBuilder) Update(object client.Object) error {
	pdb := object.(*policyv1.PodDisruptionBudget)
	maxUnavailable := intstr.FromInt32(1)
	if *builder.Instance.Spec.Replicas <= 1 {
		maxUnavailable = intstr.FromInt32(0)
	}
	pdb.Spec = policyv1.PodDisruptionBudgetSpec{
		MaxUnavailable: &maxUnavailable,
		Selector:       &metav1.LabelSelector{MatchLabels: builder.selector()},
	}
	return builder.setMetadata(pdb)
}

type ZookeeperStatefulSetBuilder struct {
	*ZookeeperResourceBuilder
}

func (builder *ZookeeperStatefulSetBuilder) Build() (client.Object, error) {
	pvc := corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "data",
			Namespace: builder.Instance.Namespace,
			Labels:    metadata.Label(builder.Instance.Name, zookeeperComponent),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: *builder.Instance.Spec.Persistence.Storage},
			},
			StorageClassName: builder.Instance.Spec.Persistence.StorageClassName,
		},
	}
	return &appsv1.StatefulSet{
		ObjectMeta: builder.objectMeta(""),
		Spec: appsv1.StatefulSetSpec{
			ServiceName:          builder.Instance.ChildResourceName(zookeeperHeadlessName),
			Selector:             &metav1.LabelSelector{MatchLabels: builder.selector()},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{pvc},
			PodManagementPolicy:  appsv1.OrderedReadyPodManagement,
		},
	}, nil
}

func (builder *ZookeeperStatefulSetBuilder) Update(object client.Object) error {
	sts := object.(*appsv1.StatefulSet)
	ports := builder.Instance.Spec.Ports

	sts.Spec.Replicas = builder.Instance.Spec.Replicas
	sts.Spec.UpdateStrategy = appsv1.StatefulSetUpdateStrategy{Type: appsv1.RollingUpdateStatefulSetStrategyType}

	podAnnotations := metadata.ReconcileAndFilterAnnotations(sts.Spec.Template.Annotations, builder.Instance.Annotations)
	if conf, ok := builder.Observed.Get("ConfigMap", builder.Instance.Namespace, builder.Instance.ChildResourceName(ZookeeperConfigMapName)); ok {
		podAnnotations[ZookeeperConfVersionAnnotation] = conf.GetResourceVersion()
	}

	var resources corev1.ResourceRequirements
	if builder.Instance.Spec.Resources != nil {
		resources = *builder.Instance.Spec.Resources
	}

	sts.Spec.Template = corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{
			Labels:      builder.labels(),
			Annotations: podAnnotations,
		},
		Spec: corev1.PodSpec{
			Affinity: &corev1.Affinity{
				PodAntiAffinity: &corev1.PodAntiAffinity{
					PreferredDuringSchedulingIgnoredDuringExecution: []corev1.WeightedPodAffinityTerm{
						{
							Weight: 20,
							PodAffinityTerm: corev1.PodAffinityTerm{
								TopologyKey:   "kubernetes.io/hostname",
								LabelSelector: &metav1.LabelSelector{MatchLabels: builder.selector()},
							},
						},
					},
				},
			},
			Volumes: []corev1.Volume{
				{
					Name: "conf",
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{
								Name: builder.Instance.ChildResourceName(ZookeeperConfigMapName),
							},
						},
					},
				},
			},
			Containers: []corev1.Container{
				{
					Name:      "zookeeper",
					Image:     builder.Instance.Spec.Image,
					Resources: resources,
					Command:   []string{"/usr/local/bin/zookeeperStart.sh"},
					Ports: []corev1.ContainerPort{
						{Name: "client", ContainerPort: ports.Client},
						{Name: "quorum", ContainerPort: ports.Quorum},
						{Name: "leader-election", ContainerPort: ports.LeaderElection},
						{Name: "metrics", ContainerPort: ports.Metrics},
						{Name: "admin-server", ContainerPort: ports.AdminServer},
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "data", MountPath: "/data"},
						{Name: "conf", MountPath: "/conf"},
					},
					ReadinessProbe: &corev1.Probe{
						ProbeHandler: corev1.ProbeHandler{
							Exec: &corev1.ExecAction{Command: []string{"zookeeperReady.sh"}},
						},
						InitialDelaySeconds: 10,
						PeriodSeconds:       10,
						TimeoutSeconds:      10,
					},
					LivenessProbe: &corev1.Probe{
						ProbeHandler: corev1.ProbeHandler{
							Exec: &corev1.ExecAction{Command: []string{"zookeeperLive.sh"}},
						},
						InitialDelaySeconds: 10,
						PeriodSeconds:       10,
						TimeoutSeconds:      10,
					},
					Lifecycle: &corev1.Lifecycle{
						PreStop: &corev1.LifecycleHandler{
							Exec: &corev1.ExecAction{Command: []string{"zookeeperTeardown.sh"}},
						},
					},
				},
			},
			TerminationGracePeriodSeconds: ptr.To[int64](30),
		},
	}
	sts.Labels = builder.labels()
	sts.Annotations = metadata.ReconcileAndFilterAnnotations(sts.Annotations, builder.Instance.Annotations)
	return setControllerReference(builder.Instance, sts, builder.Scheme)
}
