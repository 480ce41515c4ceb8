// Copyright 2025 The canon Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/canondev/canon/internal/cache"
	"github.com/canondev/canon/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	s := cache.New(t.TempDir())
	content := []byte("# Simplicity\n\nPrefer the simplest design that works.\n")
	d := manifest.Sum(content)

	_, found, err := s.Get(d)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(d, content))

	got, found, err := s.Get(d)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, content, got)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.Ratio)
}

func TestStore_PutIdempotent(t *testing.T) {
	s := cache.New(t.TempDir())
	content := []byte("same bytes")
	d := manifest.Sum(content)

	require.NoError(t, s.Put(d, content))
	require.NoError(t, s.Put(d, content))

	got, found, err := s.Get(d)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, content, got)
}

func TestStore_ShardedLayout(t *testing.T) {
	root := t.TempDir()
	s := cache.New(root)
	content := []byte("sharded")
	d := manifest.Sum(content)

	require.NoError(t, s.Put(d, content))

	_, err := os.Stat(filepath.Join(root, string(d[:2]), string(d[2:])))
	assert.NoError(t, err)
}

func TestStore_MalformedDigest(t *testing.T) {
	s := cache.New(t.TempDir())

	_, _, err := s.Get(manifest.Digest("ab"))
	assert.Error(t, err)

	err = s.Put(manifest.Digest(""), []byte("x"))
	assert.Error(t, err)
}

func TestStore_NoPartialBlobsVisible(t *testing.T) {
	root := t.TempDir()
	s := cache.New(root)
	content := []byte("atomic")
	d := manifest.Sum(content)
	require.NoError(t, s.Put(d, content))

	// Only sharded blob files should exist, no temp leftovers.
	var files []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, filepath.Base(p))
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, string(d[2:]), files[0])
}
