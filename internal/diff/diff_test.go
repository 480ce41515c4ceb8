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

package diff_test

import (
	"testing"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/diff"
	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dA = testutil.Digest("content a")
	dB = testutil.Digest("content b")
	dC = testutil.Digest("content c")
)

// TestClassify_RuleTable covers every presence combination of local,
// baseline and remote plus the distinguishing equalities within each.
func TestClassify_RuleTable(t *testing.T) {
	testCases := map[string]struct {
		local    manifest.Digest
		base     manifest.Digest
		remote   manifest.Digest
		expected diff.Classification
	}{
		"all agree": {
			local: dA, base: dA, remote: dA,
			expected: diff.Unmodified,
		},
		"remote updated": {
			local: dA, base: dA, remote: dB,
			expected: diff.RemoteUpdated,
		},
		"locally modified": {
			local: dB, base: dA, remote: dA,
			expected: diff.LocallyModified,
		},
		"local deleted, remote unchanged": {
			local: "", base: dA, remote: dA,
			expected: diff.LocallyModified,
		},
		"both diverged": {
			local: dB, base: dA, remote: dC,
			expected: diff.Conflicted,
		},
		"local deleted, remote updated": {
			local: "", base: dA, remote: dB,
			expected: diff.Conflicted,
		},
		"local edit matches new remote": {
			local: dB, base: dA, remote: dB,
			expected: diff.Unmodified,
		},
		"never synced": {
			local: "", base: "", remote: dA,
			expected: diff.New,
		},
		"never synced but file exists": {
			local: dB, base: "", remote: dA,
			expected: diff.New,
		},
		"upstream retracted": {
			local: dA, base: dA, remote: "",
			expected: diff.Removed,
		},
		"upstream retracted, local edits": {
			local: dB, base: dA, remote: "",
			expected: diff.Removed,
		},
		"upstream retracted, local gone": {
			local: "", base: dA, remote: "",
			expected: diff.Removed,
		},
		"local only": {
			local: dA, base: "", remote: "",
			expected: diff.Untracked,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			local := diff.LocalTree{}
			if !tc.local.Empty() {
				local["p.md"] = tc.local
			}
			base := baseline.NewManifest()
			if !tc.base.Empty() {
				base.Upsert("p.md", tc.base, "v1", "tenets")
			}
			remote := manifest.Manifest{}
			if !tc.remote.Empty() {
				remote["p.md"] = manifest.Entry{Path: "p.md", Digest: tc.remote}
			}

			results := diff.Classify(local, base, remote)
			require.Len(t, results, 1)
			res := results["p.md"]
			assert.Equal(t, tc.expected, res.Class)
			assert.Equal(t, tc.local, res.Local)
			assert.Equal(t, tc.base, res.Baseline)
			assert.Equal(t, tc.remote, res.Remote)
		})
	}
}

func TestClassify_EveryPathGetsExactlyOneResult(t *testing.T) {
	local := diff.LocalTree{"a.md": dA, "b.md": dB}
	base := baseline.NewManifest()
	base.Upsert("b.md", dB, "v1", "tenets")
	base.Upsert("c.md", dC, "v1", "tenets")
	remote := manifest.Manifest{
		"c.md": {Path: "c.md", Digest: dC},
		"d.md": {Path: "d.md", Digest: dA},
	}

	results := diff.Classify(local, base, remote)
	expected := map[string]diff.Result{
		"a.md": {Class: diff.Untracked, Local: dA},
		"b.md": {Class: diff.Removed, Local: dB, Baseline: dB, Category: "tenets"},
		"c.md": {Class: diff.LocallyModified, Baseline: dC, Remote: dC},
		"d.md": {Class: diff.New, Remote: dA},
	}
	if d := cmp.Diff(expected, results); d != "" {
		t.Errorf("unexpected classifications (-want +got):\n%s", d)
	}
}

func TestClassify_CarriesCategory(t *testing.T) {
	remote := manifest.Manifest{
		"bindings/categories/go/errors.md": {
			Path:     "bindings/categories/go/errors.md",
			Digest:   dA,
			Category: "go",
		},
	}
	results := diff.Classify(diff.LocalTree{}, baseline.NewManifest(), remote)
	assert.Equal(t, "go", results["bindings/categories/go/errors.md"].Category)
}

// Once the upstream stops offering a path there is no remote entry to take
// the category from; the baseline entry written on the last sync supplies it.
func TestClassify_RemovedPathKeepsBaselineCategory(t *testing.T) {
	base := baseline.NewManifest()
	base.Upsert("bindings/categories/go/errors.md", dA, "v1", "go")

	results := diff.Classify(diff.LocalTree{}, base, manifest.Manifest{})
	res := results["bindings/categories/go/errors.md"]
	assert.Equal(t, diff.Removed, res.Class)
	assert.Equal(t, "go", res.Category)
}

func TestScanLocal(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"tenets/simplicity.md": "content a",
	})

	tree, err := diff.ScanLocal(dir, []string{"tenets/simplicity.md", "tenets/gone.md"})
	require.NoError(t, err)
	assert.Len(t, tree, 1)
	assert.Equal(t, dA, tree["tenets/simplicity.md"])
}
