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

// Package baseline persists the last-synced state of every tracked file in
// a target directory. The baseline digest is the merge base of the
// three-way comparison: it is what lets the engine tell a local edit apart
// from an upstream change.
package baseline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the name of the baseline manifest inside the meta dir.
	FileName = "baseline.yaml"

	apiVersion = "canon.dev/v1"
	kind       = "BaselineManifest"
)

// Entry records the last-synced state for one path. An entry exists if and
// only if canon wrote the path at least once and the upstream still offered
// it on the most recent sync.
type Entry struct {
	Path      string    `yaml:"path"`
	Digest    string    `yaml:"digest"`
	SourceRef string    `yaml:"sourceRef"`
	Category  string    `yaml:"category,omitempty"`
	SyncedAt  time.Time `yaml:"syncedAt"`
}

// Manifest is the set of baseline entries for one target directory.
type Manifest struct {
	entries map[string]Entry
}

// manifestDoc is the on-disk representation. Entries are sorted by path so
// the file diffs cleanly under version control.
type manifestDoc struct {
	APIVersion string  `yaml:"apiVersion"`
	Kind       string  `yaml:"kind"`
	Entries    []Entry `yaml:"entries"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]Entry)}
}

// Get returns the entry for path, if present.
func (m *Manifest) Get(path string) (Entry, bool) {
	e, ok := m.entries[path]
	return e, ok
}

// Digest returns the baseline digest for path, empty if untracked.
func (m *Manifest) Digest(path string) manifest.Digest {
	return manifest.Digest(m.entries[path].Digest)
}

// Upsert creates or replaces the entry for path. The category is kept so
// a path can still be attributed after the upstream stops offering it.
func (m *Manifest) Upsert(path string, digest manifest.Digest, sourceRef, category string) {
	m.entries[path] = Entry{
		Path:      path,
		Digest:    string(digest),
		SourceRef: sourceRef,
		Category:  category,
		SyncedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

// Remove deletes the entry for path. Removing an absent path is a no-op.
func (m *Manifest) Remove(path string) {
	delete(m.entries, path)
}

// Len returns the number of tracked paths.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Paths returns the sorted list of tracked paths.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DeepCopy returns an independent copy of the manifest.
func (m *Manifest) DeepCopy() *Manifest {
	cp := NewManifest()
	for p, e := range m.entries {
		cp.entries[p] = e
	}
	return cp
}

// CorruptManifestError is returned when the baseline manifest exists but
// can not be parsed. This is fatal: guessing would silently lose tracking
// of local modifications.
type CorruptManifestError struct {
	Path string
	Err  error
}

func (e *CorruptManifestError) Error() string {
	return fmt.Sprintf("baseline manifest %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptManifestError) Unwrap() error {
	return e.Err
}

// Path returns the location of the baseline manifest for a target dir.
func Path(targetDir string) string {
	return filepath.Join(targetDir, types.MetaDir, FileName)
}

// Load reads the baseline manifest for the target directory. A missing file
// means the directory has never been synced and yields an empty manifest.
func Load(targetDir string) (*Manifest, error) {
	const op errors.Op = "baseline.Load"
	path := Path(targetDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}

	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.E(op, errors.Config, types.UniquePath(targetDir),
			&CorruptManifestError{Path: path, Err: err})
	}
	if doc.Kind != "" && doc.Kind != kind {
		return nil, errors.E(op, errors.Config, types.UniquePath(targetDir),
			&CorruptManifestError{Path: path, Err: fmt.Errorf("unexpected kind %q", doc.Kind)})
	}

	m := NewManifest()
	for _, e := range doc.Entries {
		if e.Path == "" || e.Digest == "" {
			return nil, errors.E(op, errors.Config, types.UniquePath(targetDir),
				&CorruptManifestError{Path: path, Err: fmt.Errorf("entry with empty path or digest")})
		}
		m.entries[e.Path] = e
	}
	return m, nil
}

// Save writes the manifest for the target directory. The write is atomic
// (temp file plus rename) so an interrupted sync never leaves a corrupt or
// half-written manifest behind.
func Save(targetDir string, m *Manifest) error {
	const op errors.Op = "baseline.Save"
	doc := manifestDoc{
		APIVersion: apiVersion,
		Kind:       kind,
	}
	for _, p := range m.Paths() {
		doc.Entries = append(doc.Entries, m.entries[p])
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.E(op, errors.Internal, types.UniquePath(targetDir), err)
	}

	dir := filepath.Join(targetDir, types.MetaDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	tmp, err := os.CreateTemp(dir, ".baseline-*")
	if err != nil {
		return errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	if err := os.Rename(tmpName, Path(targetDir)); err != nil {
		os.Remove(tmpName)
		return errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	return nil
}
