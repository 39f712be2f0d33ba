package kube

import (
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/graph"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/validation/path"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	clusterRoleKind = "ClusterRole"
	wildcard        = "*"
)

var highPrivilegeAnnotations = map[string]string{
	graph.AnnotationKeyHighPrivilege: "true",
}

// NewClusterAdminRole declares a cluster role granting all verbs on all
// resources of all api groups.
func NewClusterAdminRole(provider *graph.Declaration, name string) (*graph.Declaration, error) {
	if err := validateName("access.clusterRoleName", name, path.IsValidPathSegmentName); err != nil {
		return nil, err
	}
	role := &rbacv1.ClusterRole{
		TypeMeta: metav1.TypeMeta{
			APIVersion: rbacv1.SchemeGroupVersion.String(),
			Kind:       clusterRoleKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Annotations: highPrivilegeAnnotations,
		},
		Rules: []rbacv1.PolicyRule{{
			APIGroups: []string{wildcard},
			Resources: []string{wildcard},
			Verbs:     []string{wildcard},
		}},
	}
	d, err := newObject(provider, TypeClusterRole, name, role, OutputName)
	if err != nil {
		return nil, err
	}
	d.HighPrivilege = true
	return d, nil
}

// NewClusterRoleBinding binds the cluster role to a user.
func NewClusterRoleBinding(provider *graph.Declaration, name string, role *graph.Declaration, user string) (*graph.Declaration, error) {
	if err := validateName("access.bindingName", name, path.IsValidPathSegmentName); err != nil {
		return nil, err
	}
	if role == nil || role.Type != TypeClusterRole {
		return nil, config.InvalidParameter("access.clusterRoleName", "a cluster role is required")
	}
	if user == "" {
		return nil, config.InvalidParameter("access.subject", "subject is required")
	}
	binding := &rbacv1.ClusterRoleBinding{
		TypeMeta: metav1.TypeMeta{
			APIVersion: rbacv1.SchemeGroupVersion.String(),
			Kind:       "ClusterRoleBinding",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Annotations: highPrivilegeAnnotations,
		},
		Subjects: []rbacv1.Subject{{
			Kind:     rbacv1.UserKind,
			APIGroup: rbacv1.GroupName,
			Name:     user,
		}},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     clusterRoleKind,
			Name:     role.Ref(OutputName),
		},
	}
	d, err := newObject(provider, TypeClusterRoleBinding, name, binding, OutputName)
	if err != nil {
		return nil, err
	}
	d.HighPrivilege = true
	return d, nil
}
