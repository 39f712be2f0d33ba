/*
Copyright 2023 Nokia.

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

package v1alpha1

const (
	// InventoryLabelKey is the label stored on the ConfigMap
	// inventory object. The value of the label is the name of the
	// stack the record belongs to.
	InventoryLabelKey = "inv.kform.dev/inventory-id"

	// InventoryRunIDKey is the annotation carrying the run id of the
	// render that produced the stored record.
	InventoryRunIDKey = "inv.kform.dev/run-id"
)
