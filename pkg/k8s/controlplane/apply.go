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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"
	"sigs.k8s.io/yaml"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

// Apply reads the manifest at path and creates or updates each object.
// Namespaced objects are placed in namespace regardless of what the manifest
// declares. The first failing object aborts the apply; objects already
// applied are left in place.
func (k *Kubernetes) Apply(ctx context.Context, namespace, path string) error {
	objs, err := readObjects(path)
	if err != nil {
		return err
	}

	for i, obj := range objs {
		if err := k.applyObject(ctx, namespace, obj); err != nil {
			if i > 0 {
				slog.Warn("manifest partially applied",
					"namespace", namespace,
					"applied", i,
					"total", len(objs),
					"failed_kind", obj.GetKind(),
					"failed_name", obj.GetName())
			}
			return errors.WrapWithContext(errors.ErrCodeExternalCall,
				fmt.Sprintf("failed to apply %s %s", obj.GetKind(), obj.GetName()), err,
				map[string]any{
					"stage":     StageApply,
					"namespace": namespace,
					"kind":      obj.GetKind(),
					"name":      obj.GetName(),
					"error":     err.Error(),
				})
		}
		slog.Debug("object applied", "namespace", namespace, "kind", obj.GetKind(), "name", obj.GetName())
	}
	return nil
}

func (k *Kubernetes) applyObject(ctx context.Context, namespace string, obj *unstructured.Unstructured) error {
	gvk := obj.GroupVersionKind()
	mapping, err := k.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return fmt.Errorf("unknown resource kind %s: %w", gvk.String(), err)
	}

	var ri dynamic.ResourceInterface
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		obj.SetNamespace(namespace)
		ri = k.dynamic.Resource(mapping.Resource).Namespace(namespace)
	} else {
		ri = k.dynamic.Resource(mapping.Resource)
	}

	existing, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = ri.Create(ctx, obj, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	obj.SetResourceVersion(existing.GetResourceVersion())
	preserveAllocated(obj, existing)
	_, err = ri.Update(ctx, obj, metav1.UpdateOptions{})
	return err
}

// preserveAllocated copies server-allocated Service fields that are
// immutable after creation and usually absent from manifests.
func preserveAllocated(obj, existing *unstructured.Unstructured) {
	if obj.GetKind() != "Service" {
		return
	}
	for _, field := range []string{"clusterIP", "clusterIPs"} {
		if _, found, _ := unstructured.NestedFieldNoCopy(obj.Object, "spec", field); found {
			continue
		}
		if v, found, _ := unstructured.NestedFieldCopy(existing.Object, "spec", field); found {
			_ = unstructured.SetNestedField(obj.Object, v, "spec", field)
		}
	}
}

// readObjects decodes every non-empty document of the manifest file.
func readObjects(path string) ([]*unstructured.Unstructured, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open manifest", err)
	}
	defer f.Close()

	reader := utilyaml.NewYAMLReader(bufio.NewReader(f))
	var objs []*unstructured.Unstructured
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to read manifest", err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		data, err := yaml.YAMLToJSON(doc)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to decode manifest document", err,
				map[string]any{"document": len(objs) + 1})
		}
		if string(bytes.TrimSpace(data)) == "null" {
			continue
		}

		obj := &unstructured.Unstructured{}
		if err := obj.UnmarshalJSON(data); err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid manifest object", err,
				map[string]any{"document": len(objs) + 1})
		}
		objs = append(objs, obj)
	}
	return objs, nil
}
