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

// Package config reads and resolves the per-target sync configuration.
// Values from .canon/config.yaml are overridden by command-line flags;
// the sync engine receives the already-resolved result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	canonerrors "github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file inside the meta dir.
const FileName = "config.yaml"

// File is the on-disk representation of .canon/config.yaml.
type File struct {
	// Repo is the uri of the upstream collection repository.
	Repo string `yaml:"repo"`

	// Ref is the upstream ref to sync against (tag, branch or commit).
	Ref string `yaml:"ref"`

	// Categories are the binding categories this consumer opts into.
	// Tenets and core bindings are always synced.
	Categories []string `yaml:"categories,omitempty"`
}

// Sync is the fully resolved input of a sync run. It is validated here;
// the engine treats it as already valid.
type Sync struct {
	Repo       string
	Ref        string
	Categories []string
	TargetDir  string
	Force      bool
	DryRun     bool
	Workers    int
}

// Path returns the location of the config file for a target dir.
func Path(targetDir string) string {
	return filepath.Join(targetDir, types.MetaDir, FileName)
}

// Load reads the config file for a target directory. A missing file yields
// an empty File so flags alone can drive a sync.
func Load(targetDir string) (*File, error) {
	data, err := os.ReadFile(Path(targetDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrapf(err, "reading config for %s", targetDir)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", Path(targetDir))
	}
	return &f, nil
}

// Save writes the config file for a target directory.
func Save(targetDir string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	dir := filepath.Join(targetDir, types.MetaDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	return errors.Wrapf(os.WriteFile(Path(targetDir), data, 0600),
		"writing %s", Path(targetDir))
}

// Resolve merges the config file with flag overrides and validates the
// result. Flag values win over file values; categories are deduplicated
// and sorted so the resolved manifest is deterministic.
func Resolve(targetDir string, f *File, repoFlag, refFlag string, categoryFlags []string,
	force, dryRun bool, workers int) (*Sync, error) {
	const op canonerrors.Op = "config.Resolve"

	info, err := os.Stat(targetDir)
	if err != nil {
		return nil, canonerrors.E(op, canonerrors.Config, types.UniquePath(targetDir),
			fmt.Errorf("target directory does not exist: %w", err))
	}
	if !info.IsDir() {
		return nil, canonerrors.E(op, canonerrors.Config, types.UniquePath(targetDir),
			fmt.Errorf("target is not a directory"))
	}

	s := &Sync{
		Repo:       f.Repo,
		Ref:        f.Ref,
		Categories: f.Categories,
		TargetDir:  targetDir,
		Force:      force,
		DryRun:     dryRun,
		Workers:    workers,
	}
	if repoFlag != "" {
		s.Repo = repoFlag
	}
	if refFlag != "" {
		s.Ref = refFlag
	}
	if len(categoryFlags) > 0 {
		s.Categories = categoryFlags
	}

	if s.Repo == "" {
		return nil, canonerrors.E(op, canonerrors.Config, types.UniquePath(targetDir),
			fmt.Errorf("no upstream repo configured; set repo in %s or pass --repo", Path(targetDir)))
	}
	if s.Ref == "" {
		return nil, canonerrors.E(op, canonerrors.Config, types.UniquePath(targetDir),
			fmt.Errorf("no upstream ref configured; set ref in %s or pass --ref", Path(targetDir)))
	}

	seen := make(map[string]bool)
	var cats []string
	for _, c := range s.Categories {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	sort.Strings(cats)
	s.Categories = cats

	return s, nil
}
