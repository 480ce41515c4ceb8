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

package remote

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/canondev/canon/internal/errors"
	"sigs.k8s.io/yaml"
)

// CatalogFileName is the name of the collection catalog at the docs root.
const CatalogFileName = "catalog.yaml"

// Catalog describes the collection at a ref: the categories it offers and
// the minimum tool version able to consume it. The catalog is optional; a
// collection without one accepts any category and any tool version.
type Catalog struct {
	// Categories lists the category ids consumers may select.
	Categories []CatalogCategory `json:"categories,omitempty"`

	// MinToolVersion is the lowest canon version the collection supports.
	MinToolVersion string `json:"minToolVersion,omitempty"`
}

// CatalogCategory is one selectable category.
type CatalogCategory struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// LoadCatalog reads the catalog from an exported docs directory. A missing
// catalog yields an empty one.
func LoadCatalog(docsDir string) (*Catalog, error) {
	const op errors.Op = "remote.LoadCatalog"
	data, err := os.ReadFile(filepath.Join(docsDir, CatalogFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{}, nil
		}
		return nil, errors.E(op, errors.IO, err)
	}
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.E(op, errors.Resolution,
			fmt.Errorf("invalid collection catalog: %w", err))
	}
	return &c, nil
}

// Validate checks the requested categories against the catalog and the
// tool version against the collection's minimum. All failures are
// Resolution-kind: they abort the run before any write.
func (c *Catalog) Validate(categories []string, toolVersion string) error {
	const op errors.Op = "remote.Catalog.Validate"

	if len(c.Categories) > 0 {
		known := make(map[string]bool, len(c.Categories))
		for _, cat := range c.Categories {
			known[cat.ID] = true
		}
		for _, req := range categories {
			if !known[req] {
				return errors.E(op, errors.Resolution,
					fmt.Errorf("unknown category %q; the collection offers %s", req, c.categoryIDs()))
			}
		}
	}

	if c.MinToolVersion == "" || toolVersion == "" || toolVersion == "unknown" {
		return nil
	}
	min, err := semver.NewVersion(c.MinToolVersion)
	if err != nil {
		return errors.E(op, errors.Resolution,
			fmt.Errorf("collection declares invalid minToolVersion %q: %w", c.MinToolVersion, err))
	}
	cur, err := semver.NewVersion(toolVersion)
	if err != nil {
		// A dev build with a non-semver version string skips the check.
		return nil
	}
	if cur.LessThan(min) {
		return errors.E(op, errors.Resolution,
			fmt.Errorf("collection requires canon >= %s, this is %s", c.MinToolVersion, toolVersion))
	}
	return nil
}

func (c *Catalog) categoryIDs() string {
	ids := ""
	for i, cat := range c.Categories {
		if i > 0 {
			ids += ", "
		}
		ids += cat.ID
	}
	return ids
}
