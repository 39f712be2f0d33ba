/*
Copyright 2024 Nokia.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package inventory

import (
	"context"

	"github.com/henderiw/logger/log"
	invv1alpha1 "github.com/kform-dev/kstack/apis/inv/v1alpha1"
	"github.com/kform-dev/kstack/pkg/inventory/policy"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	cliinventory "sigs.k8s.io/cli-utils/pkg/inventory"
)

// ConfigMap stores the record in a config map. Updates carry the resource
// version of the last load, a concurrent writer results in a conflict error.
type ConfigMap struct {
	client    kubernetes.Interface
	namespace string
	name      string
	// Policy decides whether a config map owned by another stack may be
	// overwritten.
	Policy cliinventory.Policy

	exists          bool
	resourceVersion string
	owner           string
}

var _ Storage = &ConfigMap{}

func NewConfigMapStorage(client kubernetes.Interface, namespace, name string) *ConfigMap {
	return &ConfigMap{client: client, namespace: namespace, name: name}
}

func (r *ConfigMap) NamespacedName() string {
	return types.NamespacedName{Namespace: r.namespace, Name: r.name}.String()
}

func (r *ConfigMap) Load(ctx context.Context) (*invv1alpha1.Record, error) {
	log := log.FromContext(ctx).With("inventory", r.NamespacedName())
	cm, err := r.client.CoreV1().ConfigMaps(r.namespace).Get(ctx, r.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			log.Debug("no inventory stored")
			r.exists = false
			r.resourceVersion = ""
			r.owner = ""
			return nil, nil
		}
		return nil, errors.Wrapf(err, "cannot get inventory %s", r.NamespacedName())
	}
	r.exists = true
	r.resourceVersion = cm.ResourceVersion
	r.owner = cm.Labels[invv1alpha1.InventoryLabelKey]
	value, ok := cm.Data[invv1alpha1.RecordDataKey]
	if !ok {
		log.Debug("inventory without record")
		return nil, nil
	}
	record, err := invv1alpha1.UnmarshalRecord([]byte(value))
	if err != nil {
		log.Error("cannot unmarshal record", "error", err.Error())
		return nil, err
	}
	return record, nil
}

// Check applies the ownership policy to the config map found by the last
// load.
func (r *ConfigMap) Check(stack string) error {
	if !r.exists {
		return nil
	}
	return errors.Wrapf(policy.Check(r.Policy, r.owner, stack), "cannot store inventory %s", r.NamespacedName())
}

// Store creates the config map when the last load found none, otherwise it
// updates the loaded version. Load must be called before Store.
func (r *ConfigMap) Store(ctx context.Context, record *invv1alpha1.Record) error {
	log := log.FromContext(ctx).With("inventory", r.NamespacedName())
	if err := r.Check(record.Stack); err != nil {
		return err
	}
	b, err := invv1alpha1.MarshalRecord(record)
	if err != nil {
		return err
	}
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:            r.name,
			Namespace:       r.namespace,
			ResourceVersion: r.resourceVersion,
			Labels: map[string]string{
				invv1alpha1.InventoryLabelKey: record.Stack,
			},
			Annotations: map[string]string{
				invv1alpha1.InventoryRunIDKey: record.RunID,
			},
		},
		Data: map[string]string{
			invv1alpha1.RecordDataKey: string(b),
		},
	}
	var stored *corev1.ConfigMap
	if !r.exists {
		stored, err = r.client.CoreV1().ConfigMaps(r.namespace).Create(ctx, cm, metav1.CreateOptions{})
	} else {
		stored, err = r.client.CoreV1().ConfigMaps(r.namespace).Update(ctx, cm, metav1.UpdateOptions{})
	}
	if err != nil {
		return errors.Wrapf(err, "cannot store inventory %s", r.NamespacedName())
	}
	r.exists = true
	r.resourceVersion = stored.ResourceVersion
	r.owner = record.Stack
	log.Debug("inventory stored", "runId", record.RunID)
	return nil
}
