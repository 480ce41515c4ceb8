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

// Package manifest defines the remote manifest model and the contracts the
// sync engine consumes for resolving and fetching upstream content.
package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Digest is the lowercase hex SHA-256 of a file's bytes. Digests are the
// sole identity for content equality: two files with identical bytes always
// compare equal regardless of path history.
type Digest string

// Empty returns true if the digest is unset.
func (d Digest) Empty() bool {
	return len(d) == 0
}

// Short returns an abbreviated digest for display.
func (d Digest) Short() string {
	if len(d) < 12 {
		return string(d)
	}
	return string(d[:12])
}

// Sum computes the digest of the provided bytes.
func Sum(data []byte) Digest {
	h := sha256.Sum256(data)
	return Digest(hex.EncodeToString(h[:]))
}

// Entry describes one file the upstream offers under the requested
// categories. Entries are transient; they are recomputed on every sync
// invocation and never persisted.
type Entry struct {
	// Path is the slash-separated path of the file relative to the target
	// directory.
	Path string

	// Digest is the canonical digest of the file contents at the resolved
	// ref.
	Digest Digest

	// Category is the id of the category the file belongs to.
	Category string
}

// Manifest is the set of entries produced by a Resolver for a given
// (ref, categories) pair, keyed by path.
type Manifest map[string]Entry

// Paths returns the sorted list of paths in the manifest.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FromEntries builds a Manifest from a list of entries. Later entries win
// on duplicate paths.
func FromEntries(entries []Entry) Manifest {
	m := make(Manifest, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

// Resolver resolves which files should exist for a source ref and a set of
// categories, each with its canonical digest. Implementations must be
// deterministic for a given immutable ref.
type Resolver interface {
	Resolve(ctx context.Context, ref string, categories []string) ([]Entry, error)
}

// BlobFetcher fetches the bytes of a single file at a source ref. It is
// used only on cache miss.
type BlobFetcher interface {
	Fetch(ctx context.Context, ref string, path string) ([]byte, error)
}
