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

package v1alpha1

/*
	stack: responsive-example
	runId: 5f1c...
	declarations:
	  awsx_vpc.responsive-example-eks-vpc:
	    type: awsx_vpc
	    provider: aws
	    hash: 9b1d...
	    dependencies: []
	    manifest: |
	      apiVersion: stack.kform.dev/v1alpha1
	      ...
	exports:
	  eksName: ${eks_cluster.responsive-example-eks-cluster.name}
*/

// Record is the declared state of one render of a stack. It is the input of
// the next plan; the provisioning engine keeps its own state of what was
// applied.
type Record struct {
	Stack        string                       `json:"stack" yaml:"stack"`
	RunID        string                       `json:"runId" yaml:"runId"`
	Declarations map[string]DeclarationRecord `json:"declarations,omitempty" yaml:"declarations,omitempty"`
	Exports      map[string]string            `json:"exports,omitempty" yaml:"exports,omitempty"`
}

type DeclarationRecord struct {
	Type         string   `json:"type" yaml:"type"`
	Provider     string   `json:"provider" yaml:"provider"`
	Hash         string   `json:"hash" yaml:"hash"`
	Sensitive    bool     `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Manifest is the rendered declaration. Secret values are replaced by
	// their digest before the record is built.
	Manifest string `json:"manifest" yaml:"manifest"`
}

// Addresses returns the declared addresses, unsorted.
func (r *Record) Addresses() []string {
	if r == nil {
		return nil
	}
	addresses := make([]string, 0, len(r.Declarations))
	for address := range r.Declarations {
		addresses = append(addresses, address)
	}
	return addresses
}
