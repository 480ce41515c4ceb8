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

// Package remote implements the manifest.Resolver and manifest.BlobFetcher
// contracts on top of a git upstream. Any other transport (HTTP content
// API, local mirror) can replace it; the sync engine only consumes the
// contracts.
package remote

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/gitutil"
	"github.com/canondev/canon/internal/manifest"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

const (
	// DocsDir is the directory inside the upstream repo that holds the
	// distributed collection.
	DocsDir = "docs"

	// TenetsDir holds the tenet documents. Always synced.
	TenetsDir = "tenets"

	// BindingsDir holds the binding documents.
	BindingsDir = "bindings"

	// CoreDir is the subdirectory of bindings that applies to every
	// consumer. Always synced.
	CoreDir = "core"

	// CategoriesDir is the subdirectory of bindings holding one directory
	// per opt-in category.
	CategoriesDir = "categories"

	// CategoryTenets and CategoryCore are the pseudo category ids reported
	// for the always-synced trees.
	CategoryTenets = "tenets"
	CategoryCore   = "core"
)

// GitSource resolves manifests and fetches blobs from a git repository.
// Checkouts at a ref are exported once into a temp directory and reused for
// every fetch against the same ref, so the shared clone cache is never read
// while another invocation resets it.
type GitSource struct {
	// Repo is the uri of the upstream repository.
	Repo string

	// ToolVersion is the version of the running binary, checked against the
	// collection catalog's minimum tool version.
	ToolVersion string

	mu       sync.Mutex
	upstream *gitutil.GitUpstreamRepo
	exports  map[string]string // ref -> exported docs dir
}

var _ manifest.Resolver = &GitSource{}
var _ manifest.BlobFetcher = &GitSource{}

// NewGitSource returns a GitSource for the provided repository uri.
func NewGitSource(repo, toolVersion string) *GitSource {
	return &GitSource{
		Repo:        repo,
		ToolVersion: toolVersion,
		exports:     make(map[string]string),
	}
}

// Close removes the exported checkouts.
func (g *GitSource) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, dir := range g.exports {
		os.RemoveAll(dir)
	}
	g.exports = make(map[string]string)
}

// Resolve lists the files the upstream offers at ref for the selected
// categories, with their canonical digests. Deterministic for an immutable
// ref. Fails with a Resolution-kind error when the ref does not exist or a
// requested category is unknown to the collection catalog.
func (g *GitSource) Resolve(ctx context.Context, ref string, categories []string) ([]manifest.Entry, error) {
	const op errors.Op = "remote.Resolve"
	docsDir, err := g.export(ctx, ref)
	if err != nil {
		return nil, errors.E(op, errors.Repo(g.Repo), err)
	}

	catalog, err := LoadCatalog(docsDir)
	if err != nil {
		return nil, errors.E(op, errors.Repo(g.Repo), err)
	}
	if err := catalog.Validate(categories, g.ToolVersion); err != nil {
		return nil, errors.E(op, errors.Repo(g.Repo), err)
	}

	var entries []manifest.Entry
	collect := func(rel, category string) error {
		root := filepath.Join(docsDir, filepath.FromSlash(rel))
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return nil
		}
		return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(info.Name(), ".md") {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			relPath, err := filepath.Rel(docsDir, p)
			if err != nil {
				return err
			}
			entries = append(entries, manifest.Entry{
				Path:     filepath.ToSlash(relPath),
				Digest:   manifest.Sum(data),
				Category: category,
			})
			return nil
		})
	}

	if err := collect(TenetsDir, CategoryTenets); err != nil {
		return nil, errors.E(op, errors.IO, errors.Repo(g.Repo), err)
	}
	if err := collect(path.Join(BindingsDir, CoreDir), CategoryCore); err != nil {
		return nil, errors.E(op, errors.IO, errors.Repo(g.Repo), err)
	}
	for _, cat := range categories {
		if err := collect(path.Join(BindingsDir, CategoriesDir, cat), cat); err != nil {
			return nil, errors.E(op, errors.IO, errors.Repo(g.Repo), err)
		}
	}
	klog.V(2).Infof("resolved %d entries at %s@%s for categories %v", len(entries), g.Repo, ref, categories)
	return entries, nil
}

// Fetch returns the bytes of a single file at ref. Used only on cache miss.
// Failures are Fetch-kind errors which the executor records per path
// without aborting the rest of the run.
func (g *GitSource) Fetch(ctx context.Context, ref string, p string) ([]byte, error) {
	const op errors.Op = "remote.Fetch"
	docsDir, err := g.export(ctx, ref)
	if err != nil {
		return nil, errors.E(op, errors.Fetch, errors.Repo(g.Repo), err)
	}
	data, err := os.ReadFile(filepath.Join(docsDir, filepath.FromSlash(p)))
	if err != nil {
		return nil, errors.E(op, errors.Fetch, errors.Repo(g.Repo), err)
	}
	return data, nil
}

// export materializes the docs tree of the repo at ref into a temp
// directory, once per ref per process.
func (g *GitSource) export(ctx context.Context, ref string) (string, error) {
	const op errors.Op = "remote.export"
	g.mu.Lock()
	defer g.mu.Unlock()

	if dir, ok := g.exports[ref]; ok {
		return dir, nil
	}

	if g.upstream == nil {
		upstream, err := gitutil.NewGitUpstreamRepo(ctx, g.Repo)
		if err != nil {
			return "", errors.E(op, errors.Resolution, err)
		}
		g.upstream = upstream
	}

	// Resolve the ref to a commit so the shared clone can be hard reset
	// without creating local branches. An unresolved ref may still be a
	// commit sha; git verifies it below.
	commit, found := g.upstream.ResolveRef(ref)
	if !found {
		commit = ref
	}

	cloneDir, err := g.upstream.GetRepo(ctx, []string{ref})
	if err != nil {
		return "", errors.E(op, errors.Resolution, err)
	}

	gitRunner, err := gitutil.NewLocalGitRunner(cloneDir)
	if err != nil {
		return "", errors.E(op, err)
	}
	if _, err := gitRunner.Run(ctx, "reset", "--hard", commit); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = g.Repo
			e.Ref = ref
		})
		return "", errors.E(op, errors.Resolution, err)
	}

	srcDocs := filepath.Join(cloneDir, DocsDir)
	if _, err := os.Stat(srcDocs); err != nil {
		if os.IsNotExist(err) {
			return "", errors.E(op, errors.Resolution,
				&UnresolvableRefError{Repo: g.Repo, Ref: ref,
					Reason: "no docs directory at this ref"})
		}
		return "", errors.E(op, errors.IO, err)
	}

	exportDir, err := os.MkdirTemp("", "canon-export-")
	if err != nil {
		return "", errors.E(op, errors.Internal, err)
	}
	opts := copy.Options{
		Skip: func(info os.FileInfo, src, dest string) (bool, error) {
			return strings.HasSuffix(src, ".git"), nil
		},
		OnSymlink: func(src string) copy.SymlinkAction {
			klog.V(2).Infof("ignoring symlink %q in upstream checkout", src)
			return copy.Skip
		},
	}
	if err := copy.Copy(srcDocs, exportDir, opts); err != nil {
		os.RemoveAll(exportDir)
		return "", errors.E(op, errors.IO, err)
	}

	g.exports[ref] = exportDir
	return exportDir, nil
}

// UnresolvableRefError is returned when the requested ref does not identify
// a usable collection in the upstream repo.
type UnresolvableRefError struct {
	Repo   string
	Ref    string
	Reason string
}

func (e *UnresolvableRefError) Error() string {
	return "can not resolve ref " + e.Ref + " in " + e.Repo + ": " + e.Reason
}
