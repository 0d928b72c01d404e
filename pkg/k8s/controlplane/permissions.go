// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controlplane

import (
	"context"
	"fmt"
	"strings"

	authv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PermissionCheck is the outcome of one access review.
type PermissionCheck struct {
	Group     string
	Resource  string
	Verb      string
	Namespace string
	Allowed   bool
	Reason    string
}

type permission struct {
	group     string
	resource  string
	verb      string
	namespace string
}

// CheckPermissions reviews whether the current identity may create the
// namespace and create or update the workload kinds bundles usually carry.
// It returns every check performed and an error listing what is missing.
func (k *Kubernetes) CheckPermissions(ctx context.Context, namespace string) ([]PermissionCheck, error) {
	required := []permission{
		{"", "namespaces", "create", ""},
	}
	for _, r := range []struct{ group, resource string }{
		{"apps", "deployments"},
		{"", "services"},
		{"", "configmaps"},
	} {
		for _, verb := range []string{"get", "create", "update"} {
			required = append(required, permission{r.group, r.resource, verb, namespace})
		}
	}

	checks := make([]PermissionCheck, 0, len(required))
	var missing []string

	for _, p := range required {
		allowed, reason, err := k.checkPermission(ctx, p)
		if err != nil {
			return checks, fmt.Errorf("failed to check permission for %s %s: %w", p.verb, p.resource, err)
		}

		checks = append(checks, PermissionCheck{
			Group:     p.group,
			Resource:  p.resource,
			Verb:      p.verb,
			Namespace: p.namespace,
			Allowed:   allowed,
			Reason:    reason,
		})

		if !allowed {
			scope := "cluster-scoped"
			if p.namespace != "" {
				scope = fmt.Sprintf("namespace %q", p.namespace)
			}
			missing = append(missing, fmt.Sprintf("%s %s (%s)", p.verb, p.resource, scope))
		}
	}

	if len(missing) > 0 {
		return checks, fmt.Errorf("missing required permissions:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return checks, nil
}

func (k *Kubernetes) checkPermission(ctx context.Context, p permission) (bool, string, error) {
	review := &authv1.SelfSubjectAccessReview{
		Spec: authv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authv1.ResourceAttributes{
				Group:     p.group,
				Verb:      p.verb,
				Resource:  p.resource,
				Namespace: p.namespace,
			},
		},
	}

	result, err := k.kube.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return false, "", err
	}
	return result.Status.Allowed, result.Status.Reason, nil
}
