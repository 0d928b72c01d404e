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
	stderrors "errors"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/k8s/client"
)

// Stages reported in EXTERNAL_CALL errors.
const (
	StageNamespace = "namespace"
	StageApply     = "apply"
)

// ErrNamespaceExists is returned by CreateNamespace when the namespace is
// already present. Callers treat it as success.
var ErrNamespaceExists = stderrors.New("namespace already exists")

// ControlPlane is the cluster API the deploy pipeline talks to.
type ControlPlane interface {
	// CreateNamespace creates the namespace, returning ErrNamespaceExists
	// when it is already present.
	CreateNamespace(ctx context.Context, name string) error
	// Apply creates or updates every object of the manifest file at path
	// in namespace.
	Apply(ctx context.Context, namespace, path string) error
}

// Kubernetes implements ControlPlane against a Kubernetes API server.
type Kubernetes struct {
	kube    kubernetes.Interface
	dynamic dynamic.Interface
	mapper  meta.RESTMapper
}

// New returns a Kubernetes control plane using the given clients. The mapper
// resolves manifest kinds to API resources.
func New(kube kubernetes.Interface, dyn dynamic.Interface, mapper meta.RESTMapper) *Kubernetes {
	return &Kubernetes{kube: kube, dynamic: dyn, mapper: mapper}
}

// NewFromClients returns a Kubernetes control plane from built clients.
func NewFromClients(c *client.Clients) *Kubernetes {
	return New(c.Kube, c.Dynamic, c.Mapper)
}

// CreateNamespace creates the namespace.
func (k *Kubernetes) CreateNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
		},
	}

	_, err := k.kube.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return ErrNamespaceExists
	}
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeExternalCall, "failed to create namespace", err,
			map[string]any{"stage": StageNamespace, "namespace": name, "error": err.Error()})
	}
	return nil
}

// IgnoreExists returns nil for ErrNamespaceExists and err otherwise.
func IgnoreExists(err error) error {
	if stderrors.Is(err, ErrNamespaceExists) {
		return nil
	}
	return err
}
