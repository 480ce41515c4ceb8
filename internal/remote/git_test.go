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

package remote_test

import (
	"context"
	"testing"

	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/remote"
	"github.com/canondev/canon/internal/testutil"
	"github.com/canondev/canon/internal/util/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstreamFixture(t *testing.T) *testutil.UpstreamRepo {
	t.Helper()
	t.Setenv(pathutil.CacheDirEnv, t.TempDir())
	return testutil.NewUpstreamRepo(t, map[string]string{
		"tenets/simplicity.md":                  "# Simplicity\n",
		"tenets/explicitness.md":                "# Explicitness\n",
		"bindings/core/no-secrets.md":           "# No secrets\n",
		"bindings/categories/go/error-wrap.md":  "# Wrap errors\n",
		"bindings/categories/rust/ownership.md": "# Ownership\n",
		"bindings/README.md":                    "not a tenet or binding\n",
		"tenets/notes.txt":                      "not markdown\n",
	})
}

func TestResolve_AlwaysSyncedTrees(t *testing.T) {
	repo := upstreamFixture(t)
	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	entries, err := src.Resolve(context.Background(), "main", nil)
	require.NoError(t, err)

	m := manifest.FromEntries(entries)
	assert.Len(t, m, 3)
	assert.Contains(t, m, "tenets/simplicity.md")
	assert.Contains(t, m, "tenets/explicitness.md")
	assert.Contains(t, m, "bindings/core/no-secrets.md")

	// Non-markdown and out-of-tree files are never offered.
	assert.NotContains(t, m, "tenets/notes.txt")
	assert.NotContains(t, m, "bindings/README.md")

	assert.Equal(t, remote.CategoryTenets, m["tenets/simplicity.md"].Category)
	assert.Equal(t, remote.CategoryCore, m["bindings/core/no-secrets.md"].Category)
	assert.Equal(t, testutil.Digest("# Simplicity\n"), m["tenets/simplicity.md"].Digest)
}

func TestResolve_SelectedCategories(t *testing.T) {
	repo := upstreamFixture(t)
	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	entries, err := src.Resolve(context.Background(), "main", []string{"go"})
	require.NoError(t, err)

	m := manifest.FromEntries(entries)
	assert.Contains(t, m, "bindings/categories/go/error-wrap.md")
	assert.NotContains(t, m, "bindings/categories/rust/ownership.md")
	assert.Equal(t, "go", m["bindings/categories/go/error-wrap.md"].Category)
}

func TestResolve_DeterministicAtTag(t *testing.T) {
	repo := upstreamFixture(t)
	repo.Tag("v1.0.0")
	// The tag pins the content; later commits must not leak in.
	repo.UpdateDocs(map[string]string{"tenets/simplicity.md": "# Simplicity v2\n"}, "update")

	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	entries, err := src.Resolve(context.Background(), "v1.0.0", nil)
	require.NoError(t, err)
	m := manifest.FromEntries(entries)
	assert.Equal(t, testutil.Digest("# Simplicity\n"), m["tenets/simplicity.md"].Digest)

	again, err := src.Resolve(context.Background(), "v1.0.0", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, entries, again)
}

func TestResolve_UnknownRef(t *testing.T) {
	repo := upstreamFixture(t)
	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	_, err := src.Resolve(context.Background(), "no-such-ref", nil)
	assert.Error(t, err)
}

func TestResolve_CatalogEnforcesCategories(t *testing.T) {
	t.Setenv(pathutil.CacheDirEnv, t.TempDir())
	repo := testutil.NewUpstreamRepo(t, map[string]string{
		"catalog.yaml":                         "categories:\n- id: go\n",
		"tenets/a.md":                          "a",
		"bindings/categories/go/error-wrap.md": "w",
	})
	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	_, err := src.Resolve(context.Background(), "main", []string{"go"})
	require.NoError(t, err)

	_, err = src.Resolve(context.Background(), "main", []string{"python"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python")
}

func TestFetch_ReturnsFileBytes(t *testing.T) {
	repo := upstreamFixture(t)
	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	data, err := src.Fetch(context.Background(), "main", "bindings/core/no-secrets.md")
	require.NoError(t, err)
	assert.Equal(t, "# No secrets\n", string(data))

	_, err = src.Fetch(context.Background(), "main", "tenets/missing.md")
	assert.Error(t, err)
}

func TestResolve_CommitShaAsRef(t *testing.T) {
	repo := upstreamFixture(t)
	sha := repo.Head()
	repo.UpdateDocs(map[string]string{"tenets/simplicity.md": "# Simplicity v2\n"}, "update")

	src := remote.NewGitSource(repo.URI(), "1.0.0")
	defer src.Close()

	entries, err := src.Resolve(context.Background(), sha, nil)
	require.NoError(t, err)
	m := manifest.FromEntries(entries)
	assert.Equal(t, testutil.Digest("# Simplicity\n"), m["tenets/simplicity.md"].Digest)
}
