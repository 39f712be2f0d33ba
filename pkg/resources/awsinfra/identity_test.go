package awsinfra

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kform-dev/kstack/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumeRolePolicy(t *testing.T) {
	cases := map[string]struct {
		kind        PrincipalKind
		principal   string
		want        string
		expectedErr bool
	}{
		"AWS": {
			kind:      PrincipalAWS,
			principal: "arn:aws:iam::083511421557:root",
			want:      `{"Version":"2012-10-17","Statement":[{"Sid":"","Effect":"Allow","Principal":{"AWS":"arn:aws:iam::083511421557:root"},"Action":"sts:AssumeRole"}]}`,
		},
		"Service": {
			kind:      PrincipalService,
			principal: "ec2.amazonaws.com",
			want:      `{"Version":"2012-10-17","Statement":[{"Sid":"","Effect":"Allow","Principal":{"Service":"ec2.amazonaws.com"},"Action":"sts:AssumeRole"}]}`,
		},
		"AWSNotAnARN": {
			kind:        PrincipalAWS,
			principal:   "083511421557",
			expectedErr: true,
		},
		"ServiceWrongDomain": {
			kind:        PrincipalService,
			principal:   "ec2.example.com",
			expectedErr: true,
		},
		"ServiceOnlySuffix": {
			kind:        PrincipalService,
			principal:   ".amazonaws.com",
			expectedErr: true,
		},
		"UnknownKind": {
			kind:        "Federated",
			principal:   "cognito-identity.amazonaws.com",
			expectedErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := AssumeRolePolicy(tc.kind, tc.principal)
			if tc.expectedErr {
				var invalid *config.InvalidParameterError
				assert.True(t, errors.As(err, &invalid))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, got)
		})
	}
}

func TestNewRole(t *testing.T) {
	d, err := NewRole("admin", PrincipalAWS, "arn:aws:iam::083511421557:root", map[string]string{
		"z": "last",
		"a": "first",
	})
	require.NoError(t, err)
	assert.Equal(t, "aws_iam_role.admin", d.Address())
	assert.Equal(t, []string{OutputARN, OutputName, OutputID}, d.Outputs)

	b, err := json.Marshal(d.Spec)
	require.NoError(t, err)
	obj := map[string]any{}
	require.NoError(t, json.Unmarshal(b, &obj))
	assert.Equal(t, "admin", obj["RoleName"])
	tags := obj["Tags"].([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, "a", tags[0].(map[string]any)["Key"])

	_, err = NewRole("", PrincipalAWS, "arn:aws:iam::083511421557:root", nil)
	assert.Error(t, err)
}

func TestNewRolePolicyAttachment(t *testing.T) {
	role, err := NewRole("eks-node-access-role", PrincipalService, "ec2.amazonaws.com", nil)
	require.NoError(t, err)

	d, err := NewRolePolicyAttachment("cni", role, "arn:aws:iam::aws:policy/AmazonEKS_CNI_Policy")
	require.NoError(t, err)
	assert.Equal(t, "aws_iam_role_policy_attachment.eks-cni-attachment", d.Address())
	b, err := json.Marshal(d.Spec)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"RoleName":"`+role.Ref(OutputName)+`"`)

	_, err = NewRolePolicyAttachment("cni", role, "AmazonEKS_CNI_Policy")
	assert.Error(t, err)
	_, err = NewRolePolicyAttachment("cni", nil, "arn:aws:iam::aws:policy/AmazonEKS_CNI_Policy")
	assert.Error(t, err)
}
