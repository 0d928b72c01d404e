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
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

type lockKey struct {
	namespace string
	appname   string
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// Locker hands out an exclusive scope per (namespace, appname). Operations on
// different bundles never block each other.
type Locker struct {
	mu    sync.Mutex
	locks map[lockKey]*lockEntry
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[lockKey]*lockEntry)}
}

// Lock blocks until the bundle scope is acquired or ctx is done. The returned
// function releases the scope and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, namespace, appname string) (func(), error) {
	key := lockKey{namespace: namespace, appname: appname}

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.release(key, e, false)
		return nil, errors.WrapWithContext(errors.ErrCodeTimeout, "timed out waiting for bundle lock", err,
			map[string]any{"namespace": namespace, "appname": appname})
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, e, true) })
	}, nil
}

func (l *Locker) release(key lockKey, e *lockEntry, held bool) {
	if held {
		e.sem.Release(1)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of tracked keys.
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
