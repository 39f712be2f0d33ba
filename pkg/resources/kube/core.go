package kube

import (
	"fmt"
	"sort"

	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
)

func NewNamespace(provider *graph.Declaration, name string) (*graph.Declaration, error) {
	if err := validateName("namespace", name, validation.IsDNS1123Label); err != nil {
		return nil, err
	}
	ns := &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       "Namespace",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
		},
	}
	return newObject(provider, TypeNamespace, name, ns, OutputName, OutputUID)
}

// NewSecret declares an opaque secret in the namespace. The values are held
// as bytes and only leave the process base64 encoded. The declaration is
// sensitive.
func NewSecret(provider, ns *graph.Declaration, name string, data map[string]string) (*graph.Declaration, error) {
	if err := validateName("secret.name", name, validation.IsDNS1123Subdomain); err != nil {
		return nil, err
	}
	namespace, err := namespaceRef("secret.namespace", ns)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	secretData := make(map[string][]byte, len(data))
	for _, k := range keys {
		if errs := validation.IsConfigMapKey(k); len(errs) > 0 {
			// the value is never part of the error
			return nil, config.InvalidParameter(fmt.Sprintf("secret.entries[%s]", k), "invalid key")
		}
		secretData[k] = []byte(data[k])
	}
	secret := &corev1.Secret{
		TypeMeta: metav1.TypeMeta{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       "Secret",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Type: corev1.SecretTypeOpaque,
		Data: secretData,
	}
	d, err := newObject(provider, TypeSecret, name, secret, OutputName)
	if err != nil {
		return nil, err
	}
	d.Sensitive = true
	return d, nil
}

func NewConfigMap(provider, ns *graph.Declaration, name string, data map[string]string) (*graph.Declaration, error) {
	if err := validateName("configMap.name", name, validation.IsDNS1123Subdomain); err != nil {
		return nil, err
	}
	namespace, err := namespaceRef("configMap.namespace", ns)
	if err != nil {
		return nil, err
	}
	for k := range data {
		if errs := validation.IsConfigMapKey(k); len(errs) > 0 {
			return nil, config.InvalidParameter(fmt.Sprintf("configMap.data[%s]", k), "%v", errs)
		}
	}
	cm := &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       "ConfigMap",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Data: data,
	}
	return newObject(provider, TypeConfigMap, name, cm, OutputName)
}
