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

package awsinfra

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	"github.com/samber/lo"
	"k8s.io/utils/ptr"
)

const (
	TypeRole                 = "aws_iam_role"
	TypeRolePolicyAttachment = "aws_iam_role_policy_attachment"

	OutputARN  = "arn"
	OutputName = "name"
	OutputID   = "id"

	policyVersion          = "2012-10-17"
	actionAssumeRole       = "sts:AssumeRole"
	servicePrincipalSuffix = ".amazonaws.com"
)

// PrincipalKind selects the key of the trust policy principal.
type PrincipalKind string

const (
	PrincipalAWS     PrincipalKind = "AWS"
	PrincipalService PrincipalKind = "Service"
)

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Sid       string            `json:"Sid"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
	Action    string            `json:"Action"`
}

// AssumeRolePolicy returns the trust policy allowing the principal to
// assume the role.
func AssumeRolePolicy(kind PrincipalKind, principal string) (string, error) {
	switch kind {
	case PrincipalAWS:
		if _, err := arn.Parse(principal); err != nil {
			return "", config.InvalidParameter("principal", "%q is not an arn", principal)
		}
	case PrincipalService:
		if len(principal) <= len(servicePrincipalSuffix) || !strings.HasSuffix(principal, servicePrincipalSuffix) {
			return "", config.InvalidParameter("principal", "service principal %q must end with %s", principal, servicePrincipalSuffix)
		}
	default:
		return "", config.InvalidParameter("principal", "unknown principal kind %q", kind)
	}
	b, err := json.Marshal(PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{{
			Sid:       "",
			Effect:    "Allow",
			Principal: map[string]string{string(kind): principal},
			Action:    actionAssumeRole,
		}},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewRole declares an iam role assumable by the principal.
func NewRole(name string, kind PrincipalKind, principal string, tags map[string]string) (*graph.Declaration, error) {
	if name == "" {
		return nil, config.InvalidParameter("role.name", "name is required")
	}
	policy, err := AssumeRolePolicy(kind, principal)
	if err != nil {
		return nil, err
	}
	in := &iam.CreateRoleInput{
		RoleName:                 ptr.To(name),
		AssumeRolePolicyDocument: ptr.To(policy),
		Tags:                     iamTags(tags),
	}
	return graph.New(TypeRole, name, graph.ProviderAWS, in, OutputARN, OutputName, OutputID), nil
}

// NewRolePolicyAttachment attaches a managed policy to the role. The role
// name is taken from the role's name output.
func NewRolePolicyAttachment(name string, role *graph.Declaration, policyARN string) (*graph.Declaration, error) {
	if role == nil || role.Type != TypeRole {
		return nil, config.InvalidParameter(fmt.Sprintf("attachment.%s.role", name), "an iam role is required")
	}
	if !arn.IsARN(policyARN) {
		return nil, config.InvalidParameter(fmt.Sprintf("attachment.%s.policyArn", name), "%q is not an arn", policyARN)
	}
	in := &iam.AttachRolePolicyInput{
		RoleName:  ptr.To(role.Ref(OutputName)),
		PolicyArn: ptr.To(policyARN),
	}
	return graph.New(TypeRolePolicyAttachment, AttachmentName(name), graph.ProviderAWS, in, OutputID), nil
}

func AttachmentName(name string) string {
	return fmt.Sprintf("eks-%s-attachment", name)
}

func iamTags(tags map[string]string) []iamtypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := lo.Keys(tags)
	sort.Strings(keys)
	l := make([]iamtypes.Tag, 0, len(keys))
	for _, k := range keys {
		l = append(l, iamtypes.Tag{Key: ptr.To(k), Value: ptr.To(tags[k])})
	}
	return l
}
