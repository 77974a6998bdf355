// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"fmt"

	"github.com/vreconcile/operators/api/v1beta1"
	"github.com/vreconcile/operators/internal/metadata"
	"github.com/vreconcile/operators/internal/pipeline"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	k8sresource "k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	statefulSetName     = "server"
	initContainerCPU    = "100m"
	initContainerMemory = "500Mi"
	DeletionMarker      = "skipPreStopChecks"

	// ServerConfVersionAnnotation carries the resourceVersion of the server
	// ConfigMap, so that a configuration change rolls the pods.
	ServerConfVersionAnnotation = "vreconcile.io/server-conf-version"
)

type StatefulSetBuilder struct {
	Instance *v1beta1.RabbitmqCluster
	Scheme   *runtime.Scheme
	Observed pipeline.Observed
}

func (builder *RabbitmqResourceBuilder) StatefulSet() *StatefulSetBuilder {
	return &StatefulSetBuilder{
		Instance: builder.Instance,
		Scheme:   builder.Scheme,
		Observed: builder.Observed,
	}
}

func (builder *StatefulSetBuilder) Build() (client.Object, error) {
	// PVC, ServiceName & Selector: can't be updated without deleting the statefulset
	pvc, err := persistentVolumeClaim(builder.Instance, builder.Scheme)
	if err != nil {
		return nil, err
	}

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      builder.Instance.ChildResourceName(statefulSetName),
			Namespace: builder.Instance.Namespace,
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: builder.Instance.ChildResourceName(headlessServiceName),
			Selector: &metav1.LabelSelector{
				MatchLabels: metadata.LabelSelector(builder.Instance.Name, rabbitmqComponent),
			},
			VolumeClaimTemplates: pvc,
			PodManagementPolicy:  appsv1.ParallelPodManagement,
		},
	}, nil
}

func persistentVolumeClaim(instance *v1beta1.RabbitmqCluster, scheme *runtime.Scheme) ([]corev1.PersistentVolumeClaim, error) {
	pvc := corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:        "persistence",
			Namespace:   instance.GetNamespace(),
			Labels:      metadata.Label(instance.Name, rabbitmqComponent),
			Annotations: metadata.ReconcileAndFilterAnnotations(map[string]string{}, instance.Annotations),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: *instance.Spec.Persistence.Storage,
				},
			},
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: instance.Spec.Persistence.StorageClassName,
		},
	}

	if err := setControllerReference(instance, &pvc, scheme); err != nil {
		return nil, err
	}
	disableBlockOwnerDeletion(pvc)

	return []corev1.PersistentVolumeClaim{pvc}, nil
}

// PVCs must stay deletable while the StatefulSet is being removed.
func disableBlockOwnerDeletion(pvc corev1.PersistentVolumeClaim) {
	refs := pvc.OwnerReferences
	for i := range refs {
		refs[i].BlockOwnerDeletion = ptr.To(false)
	}
}

func (builder *StatefulSetBuilder) Update(object client.Object) error {
	sts := object.(*appsv1.StatefulSet)

	sts.Spec.Replicas = builder.Instance.Spec.Replicas

	sts.Spec.UpdateStrategy = appsv1.StatefulSetUpdateStrategy{
		RollingUpdate: &appsv1.RollingUpdateStatefulSetStrategy{
			Partition: ptr.To[int32](0),
		},
		Type: appsv1.RollingUpdateStatefulSetStrategyType,
	}

	sts.Annotations = metadata.ReconcileAndFilterAnnotations(sts.Annotations, builder.Instance.Annotations)
	defaultPodAnnotations := map[string]string{
		"prometheus.io/scrape": "true",
		"prometheus.io/port":   "15692",
	}
	if conf, ok := builder.Observed.Get("ConfigMap", builder.Instance.Namespace, builder.Instance.ChildResourceName(ServerConfigMapName)); ok {
		defaultPodAnnotations[ServerConfVersionAnnotation] = conf.GetResourceVersion()
	}
	podAnnotations := metadata.ReconcileAnnotations(metadata.ReconcileAndFilterAnnotations(sts.Spec.Template.Annotations, builder.Instance.Annotations), defaultPodAnnotations)

	updatedLabels := metadata.GetLabels(builder.Instance.Name, rabbitmqComponent, builder.Instance.Labels)
	sts.Labels = updatedLabels

	sts.Spec.Template = builder.podTemplateSpec(podAnnotations, updatedLabels)

	return setControllerReference(builder.Instance, sts, builder.Scheme)
}

func (builder *StatefulSetBuilder) podTemplateSpec(annotations, labels map[string]string) corev1.PodTemplateSpec {
	cpuRequest := k8sresource.MustParse(initContainerCPU)
	memoryRequest := k8sresource.MustParse(initContainerMemory)

	rabbitmqGID := int64(999)
	rabbitmqUID := int64(999)

	volumes := []corev1.Volume{
		{
			Name: "server-conf",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: builder.Instance.ChildResourceName(ServerConfigMapName),
					},
				},
			},
		},
		{
			Name: "plugins-conf",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: builder.Instance.ChildResourceName(PluginsConfigName),
					},
				},
			},
		},
		{
			Name:         "rabbitmq-etc",
			VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
		},
		{
			Name: "rabbitmq-confd",
			VolumeSource: corev1.VolumeSource{
				Projected: &corev1.ProjectedVolumeSource{
					Sources: []corev1.VolumeProjection{
						{
							Secret: &corev1.SecretProjection{
								LocalObjectReference: corev1.LocalObjectReference{
									Name: builder.Instance.ChildResourceName(DefaultUserSecretName),
								},
								Items: []corev1.KeyToPath{
									{
										Key:  "default_user.conf",
										Path: "default_user.conf",
									},
								},
							},
						},
					},
				},
			},
		},
		{
			Name:         "rabbitmq-erlang-cookie",
			VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
		},
		{
			Name: "erlang-cookie-secret",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{
					SecretName: builder.Instance.ChildResourceName(erlangCookieName),
				},
			},
		},
		{
			Name: "pod-info",
			VolumeSource: corev1.VolumeSource{
				DownwardAPI: &corev1.DownwardAPIVolumeSource{
					Items: []corev1.DownwardAPIVolumeFile{
						{
							Path: DeletionMarker,
							FieldRef: &corev1.ObjectFieldSelector{
								FieldPath: fmt.Sprintf("metadata.labels['%s']", DeletionMarker),
							},
						},
					},
				},
			},
		},
	}

	ports := []corev1.ContainerPort{
		{Name: "epmd", ContainerPort: 4369},
		{Name: "amqp", ContainerPort: 5672},
		{Name: "management", ContainerPort: 15672},
		{Name: "prometheus", ContainerPort: 15692},
	}
	for _, p := range pluginPorts {
		if builder.Instance.AdditionalPluginEnabled(p.plugin) {
			ports = append(ports, corev1.ContainerPort{Name: p.port.Name, ContainerPort: p.port.Port})
		}
	}

	volumeMounts := []corev1.VolumeMount{
		{Name: "persistence", MountPath: "/var/lib/rabbitmq/mnesia/"},
		{Name: "rabbitmq-etc", MountPath: "/etc/rabbitmq/"},
		{Name: "rabbitmq-confd", MountPath: "/etc/rabbitmq/conf.d/"},
		{Name: "rabbitmq-erlang-cookie", MountPath: "/var/lib/rabbitmq/"},
		{Name: "pod-info", MountPath: "/etc/pod-info/"},
	}

	gracePeriod := *builder.Instance.Spec.TerminationGracePeriodSeconds

	return corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{
			Annotations: annotations,
			Labels:      labels,
		},
		Spec: corev1.PodSpec{
			SecurityContext: &corev1.PodSecurityContext{
				FSGroup:    &rabbitmqGID,
				RunAsGroup: &rabbitmqGID,
				RunAsUser:  &rabbitmqUID,
			},
			ImagePullSecrets:              builder.Instance.Spec.ImagePullSecrets,
			TerminationGracePeriodSeconds: ptr.To(gracePeriod),
			ServiceAccountName:            builder.Instance.ChildResourceName(serviceAccountName),
			AutomountServiceAccountToken:  ptr.To(true),
			Tolerations:                   builder.Instance.Spec.Tolerations,
			InitContainers: []corev1.Container{
				{
					Name:  "setup-container",
					Image: builder.Instance.Spec.Image,
					Command: []string{
						"sh", "-c", "cp /tmp/erlang-cookie-secret/.erlang.cookie /var/lib/rabbitmq/.erlang.cookie " +
							"&& chmod 600 /var/lib/rabbitmq/.erlang.cookie ; " +
							"cp /tmp/rabbitmq-plugins/enabled_plugins /etc/rabbitmq/enabled_plugins ; " +
							"cp /tmp/rabbitmq/* /etc/rabbitmq/",
					},
					Resources: corev1.ResourceRequirements{
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    cpuRequest,
							corev1.ResourceMemory: memoryRequest,
						},
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    cpuRequest,
							corev1.ResourceMemory: memoryRequest,
						},
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "server-conf", MountPath: "/tmp/rabbitmq/"},
						{Name: "plugins-conf", MountPath: "/tmp/rabbitmq-plugins/"},
						{Name: "rabbitmq-etc", MountPath: "/etc/rabbitmq/"},
						{Name: "rabbitmq-erlang-cookie", MountPath: "/var/lib/rabbitmq/"},
						{Name: "erlang-cookie-secret", MountPath: "/tmp/erlang-cookie-secret/"},
						{Name: "persistence", MountPath: "/var/lib/rabbitmq/mnesia/"},
					},
				},
			},
			Volumes: volumes,
			Containers: []corev1.Container{
				{
					Name:      "rabbitmq",
					Resources: *builder.Instance.Spec.Resources,
					Image:     builder.Instance.Spec.Image,
					Env: []corev1.EnvVar{
						{
							Name: "MY_POD_NAME",
							ValueFrom: &corev1.EnvVarSource{
								FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.name", APIVersion: "v1"},
							},
						},
						{
							Name: "MY_POD_NAMESPACE",
							ValueFrom: &corev1.EnvVarSource{
								FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.namespace", APIVersion: "v1"},
							},
						},
						{Name: "K8S_SERVICE_NAME", Value: builder.Instance.ChildResourceName(headlessServiceName)},
						{Name: "RABBITMQ_USE_LONGNAME", Value: "true"},
						{Name: "RABBITMQ_NODENAME", Value: "rabbit@$(MY_POD_NAME).$(K8S_SERVICE_NAME).$(MY_POD_NAMESPACE)"},
						{Name: "K8S_HOSTNAME_SUFFIX", Value: ".$(K8S_SERVICE_NAME).$(MY_POD_NAMESPACE)"},
					},
					Ports:        ports,
					VolumeMounts: volumeMounts,
					ReadinessProbe: &corev1.Probe{
						ProbeHandler: corev1.ProbeHandler{
							TCPSocket: &corev1.TCPSocketAction{
								Port: intstr.FromString("amqp"),
							},
						},
						InitialDelaySeconds: 10,
						TimeoutSeconds:      5,
						PeriodSeconds:       10,
						SuccessThreshold:    1,
						FailureThreshold:    3,
					},
					Lifecycle: &corev1.Lifecycle{
						PreStop: &corev1.LifecycleHandler{
							Exec: &corev1.ExecAction{
								Command: []string{"/bin/bash", "-c",
									fmt.Sprintf("if [ ! -z \"$(cat /etc/pod-info/%s)\" ]; then exit 0; fi;", DeletionMarker) +
										fmt.Sprintf(" rabbitmq-upgrade await_online_quorum_plus_one -t %d &&"+
											" rabbitmq-upgrade drain -t %d", gracePeriod, gracePeriod),
								},
							},
						},
					},
				},
			},
		},
	}
}
