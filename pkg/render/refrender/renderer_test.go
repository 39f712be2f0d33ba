package refrender

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nsName     = Reference{Address: "kubernetes_namespace.responsive", Output: "name"}
	secretName = Reference{Address: "kubernetes_secret.app.secrets", Output: "name"}
	subnets    = Reference{Address: "awsx_vpc.responsive-example-eks-vpc", Output: "privateSubnetIds"}
	nodeARN    = Reference{Address: "aws_iam_role.eks-node-access-role", Output: "arn"}
	adminARN   = Reference{Address: "aws_iam_role.admin", Output: "arn"}
	bindName   = Reference{Address: "rbac_cluster_role.system:admin", Output: "name"}
)

func TestReferences(t *testing.T) {
	cases := map[string]struct {
		doc      map[string]any
		deps     []string
		refs     []Reference
		rendered map[string]any
	}{
		"Deployment": {
			doc: map[string]any{
				"metadata": map[string]any{"name": "example", "namespace": nsName.Token()},
				"envFrom":  []any{map[string]any{"secretRef": map[string]any{"name": secretName.Token()}}},
			},
			deps: []string{"kubernetes_namespace.responsive", "kubernetes_secret.app.secrets"},
			refs: []Reference{nsName, secretName},
			rendered: map[string]any{
				"metadata": map[string]any{"name": "example", "namespace": "${kubernetes_namespace.responsive.name}"},
				"envFrom":  []any{map[string]any{"secretRef": map[string]any{"name": "${kubernetes_secret.app.secrets.name}"}}},
			},
		},
		"Cluster": {
			doc: map[string]any{
				"subnets":  []any{subnets.Token()},
				"nodeRole": nodeARN.Token(),
				"command":  "aws eks update-kubeconfig --role-arn " + adminARN.Token(),
				"roleRef":  bindName.Token(),
			},
			deps: []string{"aws_iam_role.admin", "aws_iam_role.eks-node-access-role", "awsx_vpc.responsive-example-eks-vpc", "rbac_cluster_role.system:admin"},
			refs: []Reference{adminARN, nodeARN, subnets, bindName},
			rendered: map[string]any{
				"subnets":  []any{"${awsx_vpc.responsive-example-eks-vpc.privateSubnetIds}"},
				"nodeRole": "${aws_iam_role.eks-node-access-role.arn}",
				"command":  "aws eks update-kubeconfig --role-arn ${aws_iam_role.admin.arn}",
				"roleRef":  "${rbac_cluster_role.system:admin.name}",
			},
		},
		"LiteralPlaceholders": {
			doc: map[string]any{
				"properties": "topic=${kafka.topic.prefix}-count",
				"args":       "-Dx=${app.config.name} $HOME",
			},
			deps: []string{},
			refs: []Reference{},
			rendered: map[string]any{
				"properties": "topic=$${kafka.topic.prefix}-count",
				"args":       "-Dx=$${app.config.name} $HOME",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			renderer := New()
			got, err := renderer.Render(ctx, tc.doc)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.rendered, got); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
			if diff := cmp.Diff(tc.deps, sortedStrings(renderer.GetDependencies(ctx).UnsortedList())); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
			refs := renderer.GetReferences(ctx).UnsortedList()
			sortRefs(refs)
			want := append([]Reference{}, tc.refs...)
			sortRefs(want)
			if diff := cmp.Diff(want, refs); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
		})
	}
}

func TestFindReferences(t *testing.T) {
	s := Publish("--name ${eks_cluster.c1.name} --role-arn " + adminARN.Token())
	assert.Equal(t, "--name $${eks_cluster.c1.name} --role-arn ${aws_iam_role.admin.arn}", s)
	assert.Equal(t, []Reference{adminARN}, FindReferences(s))
	assert.Empty(t, FindTokens(s))
}

func TestSubstitute(t *testing.T) {
	values := map[Reference]string{
		{Address: "eks_cluster.c1", Output: "name"}: "c1-8f2a",
	}
	fn := func(ref Reference) (string, bool) {
		v, ok := values[ref]
		return v, ok
	}
	cases := map[string]struct {
		s    string
		want string
	}{
		"Partial": {
			s:    "--name ${eks_cluster.c1.name} --role-arn ${aws_iam_role.admin.arn}",
			want: "--name c1-8f2a --role-arn ${aws_iam_role.admin.arn}",
		},
		"Escaped": {
			s:    "--name ${eks_cluster.c1.name} --topic $${kafka.topic.prefix}",
			want: "--name c1-8f2a --topic ${kafka.topic.prefix}",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Substitute(tc.s, fn))
		})
	}
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

func sortRefs(refs []Reference) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
}
