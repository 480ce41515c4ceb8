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

package sync

import (
	"context"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/config"
	"github.com/canondev/canon/internal/diff"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/plan"
	"k8s.io/klog/v2"
)

// Planner resolves the remote manifest and turns the current state of a
// target directory into an action plan.
type Planner struct {
	// Config is the resolved sync configuration.
	Config *config.Sync

	// Resolver lists the upstream files for a ref.
	Resolver manifest.Resolver
}

// BuildPlan loads the baseline, resolves the remote manifest, hashes the
// local files and classifies every path. It never writes anything.
func (p Planner) BuildPlan(ctx context.Context) (*plan.Plan, *baseline.Manifest, error) {
	const op errors.Op = "sync.BuildPlan"

	base, err := baseline.Load(p.Config.TargetDir)
	if err != nil {
		return nil, nil, errors.E(op, err)
	}

	entries, err := p.Resolver.Resolve(ctx, p.Config.Ref, p.Config.Categories)
	if err != nil {
		return nil, nil, errors.E(op, err)
	}
	remote := manifest.FromEntries(entries)

	// Only paths named by the baseline or the remote are scanned; files the
	// user keeps next to them are none of our business.
	scan := make(map[string]bool)
	for _, path := range base.Paths() {
		scan[path] = true
	}
	for path := range remote {
		scan[path] = true
	}
	paths := make([]string, 0, len(scan))
	for path := range scan {
		paths = append(paths, path)
	}

	local, err := diff.ScanLocal(p.Config.TargetDir, paths)
	if err != nil {
		return nil, nil, errors.E(op, err)
	}

	results := diff.Classify(local, base, remote)
	klog.V(2).Infof("classified %d paths for %s", len(results), p.Config.TargetDir)

	return plan.Build(results, plan.Options{
		Force:  p.Config.Force,
		DryRun: p.Config.DryRun,
	}), base, nil
}
