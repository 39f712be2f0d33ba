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

package pkgio

var yamldoc1 = `
# comment
apiVersion: stack.kform.dev/v1alpha1 #comment
kind: Declaration
metadata:
  name: awsx_vpc.vpc
spec:
  type: awsx_vpc
  outputs:
  - vpcId
`

var yamldoc2 = `
# comment
apiVersion: stack.kform.dev/v1alpha1 #comment
kind: Declaration
metadata:
  name: eks_cluster.c1
  annotations:
    a: b
spec:
  type: eks_cluster
  dependsOn:
  - awsx_vpc.vpc
---
# comment
apiVersion: stack.kform.dev/v1alpha1
kind: Declaration
metadata:
  name: awsx_vpc.vpc
spec:
  type: awsx_vpc
`

var yamldocNoName = `
apiVersion: stack.kform.dev/v1alpha1
kind: Declaration
spec:
  type: awsx_vpc
`
