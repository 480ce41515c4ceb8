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

// Package cache implements the content-addressed blob store shared across
// canon invocations. Blobs are keyed by the digest of their bytes, so the
// same content is fetched from upstream at most once regardless of how many
// categories or target directories reference it.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/util/pathutil"
	"k8s.io/klog/v2"
)

// Store is a content-addressed store on the local filesystem. Blobs live in
// a two-level sharded namespace (aa/bbbb...) to bound per-directory file
// counts, which makes lookups O(1) by path construction.
//
// A Store directory may be shared by concurrent invocations. Only
// same-content writes can race on a given digest, so atomic rename into
// place is the only coordination required.
type Store struct {
	root string

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache effectiveness for a run.
type Stats struct {
	Hits   int64   `json:"hits"`
	Misses int64   `json:"misses"`
	Ratio  float64 `json:"hitRatio"`
}

// NewDefaultStore returns a Store rooted at <cache root>/blobs.
func NewDefaultStore() (*Store, error) {
	const op errors.Op = "cache.NewDefaultStore"
	root, err := pathutil.CacheRoot()
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	return New(filepath.Join(root, "blobs")), nil
}

// New returns a Store rooted at the provided directory. The directory is
// created lazily on the first Put.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// blobPath constructs the sharded path for a digest.
func (s *Store) blobPath(d manifest.Digest) string {
	return filepath.Join(s.root, string(d[:2]), string(d[2:]))
}

// Get returns the bytes stored under the digest. The second return value is
// false if the blob is not present; the caller is expected to fetch the
// bytes from upstream and Put them before use.
func (s *Store) Get(d manifest.Digest) ([]byte, bool, error) {
	const op errors.Op = "cache.Get"
	if len(d) < 3 {
		return nil, false, errors.E(op, errors.InvalidParam, fmt.Errorf("malformed digest %q", d))
	}
	data, err := os.ReadFile(s.blobPath(d))
	if err != nil {
		if os.IsNotExist(err) {
			s.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, errors.E(op, errors.IO, err)
	}
	s.hits.Add(1)
	return data, true, nil
}

// Put stores bytes under the digest. Put is idempotent: writing an already
// present digest is a no-op, since content addressing guarantees byte
// identity. The write goes to a temp file in the same directory followed by
// a rename, so no reader can observe a partially written blob and
// concurrent writers of the same digest are safe (last writer wins with
// identical bytes).
//
// A failed Put degrades the cache to a pass-through for this blob: the
// caller still holds the bytes, so the error must be reported but must not
// abort the surrounding sync.
func (s *Store) Put(d manifest.Digest, data []byte) error {
	const op errors.Op = "cache.Put"
	if len(d) < 3 {
		return errors.E(op, errors.InvalidParam, fmt.Errorf("malformed digest %q", d))
	}
	path := s.blobPath(d)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.E(op, errors.IO, err)
	}
	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.E(op, errors.IO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.E(op, errors.IO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.E(op, errors.IO, err)
	}
	klog.V(3).Infof("cached blob %s (%d bytes)", d.Short(), len(data))
	return nil
}

// Stats returns hit/miss counters accumulated by this Store instance.
func (s *Store) Stats() Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return Stats{Hits: hits, Misses: misses, Ratio: ratio}
}
