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

// Package testutil contains fixtures shared by the canon package tests.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/canondev/canon/internal/manifest"
)

// WriteFiles writes the provided files (slash-separated paths relative to
// dir) creating parent directories as needed.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for p, content := range files {
		dst := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
			t.Fatalf("mkdir for %s: %v", p, err)
		}
		if err := os.WriteFile(dst, []byte(content), 0600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// Digest returns the content digest of a string.
func Digest(s string) manifest.Digest {
	return manifest.Sum([]byte(s))
}

// ReadDigest hashes the current on-disk bytes of a file.
func ReadDigest(t *testing.T, dir, path string) manifest.Digest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return manifest.Sum(data)
}

// UpstreamRepo is a local git repository holding a collection, used as a
// sync source through the file:// protocol.
type UpstreamRepo struct {
	T   *testing.T
	Dir string
}

// NewUpstreamRepo initializes a git repo with the provided docs tree
// committed on the main branch.
func NewUpstreamRepo(t *testing.T, docs map[string]string) *UpstreamRepo {
	t.Helper()
	dir := t.TempDir()
	repo := &UpstreamRepo{T: t, Dir: dir}
	repo.run("init", "--initial-branch=main")
	repo.run("config", "user.email", "test@example.com")
	repo.run("config", "user.name", "test")
	repo.UpdateDocs(docs, "initial collection")
	return repo
}

// URI returns the file:// uri of the repo.
func (r *UpstreamRepo) URI() string {
	return "file://" + r.Dir
}

// UpdateDocs writes files below docs/ and commits.
func (r *UpstreamRepo) UpdateDocs(docs map[string]string, msg string) {
	r.T.Helper()
	prefixed := make(map[string]string, len(docs))
	for p, c := range docs {
		prefixed["docs/"+p] = c
	}
	WriteFiles(r.T, r.Dir, prefixed)
	r.run("add", "-A")
	r.run("commit", "--allow-empty", "-m", msg)
}

// RemoveDoc deletes a file below docs/ and commits.
func (r *UpstreamRepo) RemoveDoc(path, msg string) {
	r.T.Helper()
	r.run("rm", "docs/"+path)
	r.run("commit", "-m", msg)
}

// Tag creates a tag at HEAD.
func (r *UpstreamRepo) Tag(name string) {
	r.T.Helper()
	r.run("tag", name)
}

// Head returns the commit sha of HEAD.
func (r *UpstreamRepo) Head() string {
	r.T.Helper()
	out := r.output("rev-parse", "HEAD")
	return string(out[:40])
}

func (r *UpstreamRepo) run(args ...string) {
	r.T.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		r.T.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func (r *UpstreamRepo) output(args ...string) []byte {
	r.T.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		r.T.Fatalf("git %v: %v", args, err)
	}
	return out
}

// MapResolver is an in-memory manifest.Resolver for tests.
type MapResolver struct {
	Entries []manifest.Entry
	Err     error
}

func (m *MapResolver) Resolve(context.Context, string, []string) ([]manifest.Entry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entries, nil
}

// MapFetcher is an in-memory manifest.BlobFetcher for tests. Keys are
// paths; values the file contents.
type MapFetcher struct {
	Files  map[string]string
	Err    error
	Efetch map[string]error // per-path injected failures
}

func (m *MapFetcher) Fetch(_ context.Context, _ string, path string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err, ok := m.Efetch[path]; ok {
		return nil, err
	}
	content, ok := m.Files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}
