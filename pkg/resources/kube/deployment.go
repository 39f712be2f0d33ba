package kube

import (
	"fmt"

	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/utils/ptr"
)

const (
	EnvArgs          = "ARGS"
	EnvBootstrapArgs = "BOOTSTRAP_ARGS"

	configVolumeName = "config-volume"
)

type DeploymentInput struct {
	Workload  stackv1alpha1.WorkloadSpec
	Namespace *graph.Declaration
	// Secret is injected in bulk as environment
	Secret *graph.Declaration
	// ConfigMap is mounted at MountPath
	ConfigMap *graph.Declaration
	MountPath string
	// ArgsEnv is the variable carrying the workload args, ARGS by default
	ArgsEnv string
}

// NewDeployment declares a single container deployment of the workload.
func NewDeployment(provider *graph.Declaration, in DeploymentInput) (*graph.Declaration, error) {
	w := in.Workload
	field := fmt.Sprintf("workloads[%s]", w.Name)
	if err := validateName(field+".name", w.Name, validation.IsDNS1123Label); err != nil {
		return nil, err
	}
	if w.Image == "" {
		return nil, config.InvalidParameter(field+".image", "image is required")
	}
	if w.Replicas < 0 {
		return nil, config.InvalidParameter(field+".replicas", "%d is negative", w.Replicas)
	}
	namespace, err := namespaceRef(field+".namespace", in.Namespace)
	if err != nil {
		return nil, err
	}

	container := corev1.Container{
		Name:            fmt.Sprintf("%s-container", w.Name),
		Image:           w.Image,
		ImagePullPolicy: corev1.PullPolicy(w.ImagePullPolicy),
	}
	for _, e := range w.Env {
		env, err := envVar(field, e)
		if err != nil {
			return nil, err
		}
		container.Env = append(container.Env, env)
	}
	if w.Args != "" {
		argsEnv := in.ArgsEnv
		if argsEnv == "" {
			argsEnv = EnvArgs
		}
		container.Env = append(container.Env, corev1.EnvVar{Name: argsEnv, Value: w.Args})
	}
	if in.Secret != nil {
		if in.Secret.Type != TypeSecret {
			return nil, config.InvalidParameter(field+".secret", "%s is not a secret", in.Secret.Address())
		}
		container.EnvFrom = append(container.EnvFrom, corev1.EnvFromSource{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: in.Secret.Ref(OutputName)},
			},
		})
	}

	podSpec := corev1.PodSpec{
		TerminationGracePeriodSeconds: w.TerminationGracePeriodSeconds,
	}
	if in.ConfigMap != nil {
		if in.ConfigMap.Type != TypeConfigMap {
			return nil, config.InvalidParameter(field+".configMap", "%s is not a config map", in.ConfigMap.Address())
		}
		if in.MountPath == "" {
			return nil, config.InvalidParameter(field+".mountPath", "mount path is required")
		}
		container.VolumeMounts = []corev1.VolumeMount{{
			Name:      configVolumeName,
			MountPath: in.MountPath,
		}}
		podSpec.Volumes = []corev1.Volume{{
			Name: configVolumeName,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: in.ConfigMap.Ref(OutputName)},
				},
			},
		}}
	}
	podSpec.Containers = []corev1.Container{container}

	labels := appLabels(w.Name)
	deployment := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: appsv1.SchemeGroupVersion.String(),
			Kind:       "Deployment",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      w.Name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(w.Replicas),
			Selector: &metav1.LabelSelector{
				MatchLabels: labels,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labels,
				},
				Spec: podSpec,
			},
		},
	}
	return newObject(provider, TypeDeployment, w.Name, deployment, OutputName, OutputUID)
}

func envVar(field string, e stackv1alpha1.EnvVarSpec) (corev1.EnvVar, error) {
	if errs := validation.IsEnvVarName(e.Name); len(errs) > 0 {
		return corev1.EnvVar{}, config.InvalidParameter(field+".env", "%q: %v", e.Name, errs)
	}
	switch {
	case e.FieldPath != "" && e.Value != "":
		return corev1.EnvVar{}, config.InvalidParameter(field+".env", "%s sets both value and fieldPath", e.Name)
	case e.FieldPath != "":
		return corev1.EnvVar{
			Name: e.Name,
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{FieldPath: e.FieldPath},
			},
		}, nil
	default:
		return corev1.EnvVar{Name: e.Name, Value: e.Value}, nil
	}
}
