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

package bundle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		appname   string
		wantErr   bool
	}{
		{"valid", "demo", "nginx", false},
		{"valid with dashes", "team-a", "web-1", false},
		{"missing namespace", "", "nginx", true},
		{"missing appname", "demo", "", true},
		{"traversal", "..", "nginx", true},
		{"slash", "demo", "a/b", true},
		{"uppercase", "Demo", "nginx", true},
		{"hidden", "demo", ".staging", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.namespace, tt.appname)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStoreRecreate(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	dir, err := s.Recreate("demo", "nginx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "demo", "nginx"), dir)

	stale := filepath.Join(dir, "stale.tar")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	_, err = s.Recreate("demo", "nginx")
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "recreate should clear existing contents")
}

func TestStoreLookupAndDelete(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Lookup("demo", "nginx")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))

	dir, err := s.Ensure("demo", "nginx")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.ZipPath("demo", "nginx"), []byte("zip"), 0o600))

	got, err := s.Lookup("demo", "nginx")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	require.NoError(t, s.Delete("demo", "nginx"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(s.ZipPath("demo", "nginx"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreList(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	empty, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range [][2]string{{"zeta", "app"}, {"alpha", "web"}, {"alpha", "api"}} {
		dir, err := s.Recreate(id[0], id[1])
		require.NoError(t, err)
		require.NoError(t, WriteMetadata(dir, &Metadata{Name: id[1], Namespace: id[0]}))
	}
	// no metadata: skipped
	_, err = s.Recreate("alpha", "broken")
	require.NoError(t, err)
	_, err = s.NewStagingDir()
	require.NoError(t, err)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Namespace)
	assert.Equal(t, "api", list[0].Name)
	assert.Equal(t, "web", list[1].Name)
	assert.Equal(t, "zeta", list[2].Namespace)
}

func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	md := &Metadata{
		Name:      "myapp",
		Namespace: "demo",
		Images:    []ImageRef{{Name: "myapp", Path: filepath.Join(dir, "myapp.tar")}},
		NodePorts: []PortMapping{{InternalPort: "8080", ExternalPort: ""}},
	}
	require.NoError(t, WriteMetadata(dir, md))

	data, err := os.ReadFile(filepath.Join(dir, MetadataFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"internal_port": "8080"`)
	assert.Contains(t, string(data), `"external_port": ""`)

	got, err := ReadMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, md, got)
}

func TestWriteMetadataEmptyLists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteMetadata(dir, &Metadata{Name: "a", Namespace: "b"}))

	data, err := os.ReadFile(filepath.Join(dir, MetadataFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"images": []`)
	assert.Contains(t, string(data), `"nodeports": []`)
}

func TestReadMetadataMissing(t *testing.T) {
	_, err := ReadMetadata(t.TempDir())
	assert.True(t, os.IsNotExist(err))
}

func TestLocate(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	dir, ns, app, err := s.Locate(s.Dir("prod", "shop"))
	require.NoError(t, err)
	assert.Equal(t, s.Dir("prod", "shop"), dir)
	assert.Equal(t, "prod", ns)
	assert.Equal(t, "shop", app)

	rejected := []string{
		s.Root(),
		filepath.Join(s.Root(), "prod"),
		filepath.Join(s.Root(), "prod", "shop", "nested"),
		filepath.Join(s.Root(), "..", "prod", "shop"),
		filepath.Join(s.Root(), "Prod", "shop"),
		filepath.Join(t.TempDir(), "prod", "shop"),
	}
	for _, p := range rejected {
		_, _, _, err := s.Locate(p)
		assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err), p)
	}
}

func TestRelativeImages(t *testing.T) {
	refs := []ImageRef{
		{Name: "nginx", Path: "/var/lib/appbundle/prod/demo/library_nginx_latest.tar"},
		{Name: "redis", Path: "redis.tar"},
	}

	got := RelativeImages(refs)
	assert.Equal(t, []ImageRef{
		{Name: "nginx", Path: "library_nginx_latest.tar"},
		{Name: "redis", Path: "redis.tar"},
	}, got)
	assert.Equal(t, "/var/lib/appbundle/prod/demo/library_nginx_latest.tar", refs[0].Path)

	resolved, err := ResolveImages("/srv/bundle", got)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/bundle", "library_nginx_latest.tar"), resolved[0].Path)
}

func TestResolveImages(t *testing.T) {
	dir := t.TempDir()
	refs := []ImageRef{
		{Name: "nginx", Path: "/old/root/demo/nginx/library_nginx_latest.tar"},
		{Name: "redis", Path: "redis.tar"},
	}

	got, err := ResolveImages(dir, refs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "library_nginx_latest.tar"), got[0].Path)
	assert.Equal(t, filepath.Join(dir, "redis.tar"), got[1].Path)
	// input untouched
	assert.Equal(t, "redis.tar", refs[1].Path)

	_, err = ResolveImages(dir, []ImageRef{{Name: "x"}})
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestMoveInto(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.MkdirAll(dst, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("new"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "a.txt"), []byte("old"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "keep.txt"), []byte("keep"), 0o600))

	require.NoError(t, MoveInto(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = os.Stat(filepath.Join(dst, "keep.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestLockerSerializesSameKey(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "demo", "nginx")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Equal(t, 0, l.size())
}

func TestLockerIndependentKeys(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "demo", "a")
	require.NoError(t, err)
	defer unlockA()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx2, "demo", "b")
	require.NoError(t, err)
	unlockB()
}

func TestLockerContextTimeout(t *testing.T) {
	l := NewLocker()

	unlock, err := l.Lock(context.Background(), "demo", "nginx")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "demo", "nginx")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.size())
}
