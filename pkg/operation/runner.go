// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"context"
	"iter"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/fbundle/pkg/bundle"
	"github.com/walteh/fbundle/pkg/config"
	"github.com/walteh/fbundle/pkg/pattern"
	"github.com/walteh/fbundle/pkg/selector"
	"github.com/walteh/fbundle/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// 🏃 Runner executes bundling runs
type Runner struct {
	logger *zerolog.Logger
	writer Writer
}

// 🏗️ NewRunner creates a new runner
func NewRunner(logger *zerolog.Logger, opts ...Option) *Runner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Runner{
		logger: logger,
		writer: WriterFunc(bundle.Write),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// 🏃 Run compiles the patterns, walks the source tree, selects and orders the
// matching files, then reads and writes them as one bundle.
// cfg is not modified. Fatal errors come back as *PhaseError.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()
	ctx = r.logger.WithContext(ctx)

	if cfg == nil {
		return nil, &PhaseError{Phase: PhaseConfig, Err: errors.New("config is required")}
	}

	// work on a copy so Validate can clean paths without touching the caller's value
	c := *cfg
	c.Patterns = slices.Clone(cfg.Patterns)
	if err := c.Validate(ctx); err != nil {
		// a missing or unreadable tree is a traversal failure, not a bad setting
		var serr *config.SourceDirError
		if errors.As(err, &serr) {
			return nil, &PhaseError{Phase: PhaseWalk, Err: err}
		}
		return nil, &PhaseError{Phase: PhaseConfig, Err: err}
	}

	// Compile patterns before touching the tree
	set, err := pattern.Compile(c.PatternSpecs(), c.PatternOptions())
	if err != nil {
		return nil, &PhaseError{Phase: PhasePatternCompile, Err: err}
	}
	r.logger.Debug().Str("patterns", set.String()).Msg("compiled patterns")

	walker, err := walk.New(c.SourceDir, walk.Options{
		FollowSymlinks: c.FollowSymlinks,
		SkipVCS:        c.SkipVCS,
		Pruner:         set,
	})
	if err != nil {
		return nil, &PhaseError{Phase: PhaseWalk, Err: err}
	}

	r.logger.Debug().Str("root", walker.Root()).Msg("walking source tree")

	outputPath := c.OutputPath()
	files := selector.Select(withoutFile(ctx, walker.Walk(ctx), outputPath), set)
	warnings := walker.Warnings()
	for _, w := range warnings {
		r.logger.Warn().Str("path", w.Path).Err(w.Err).Msg("skipped during walk")
	}
	if err := ctx.Err(); err != nil {
		return nil, &PhaseError{Phase: PhaseSelect, Err: err}
	}
	r.logger.Debug().Int("files", len(files)).Int("warnings", len(warnings)).Msg("selected files")

	res, err := r.writer.Write(ctx, files, outputPath, bundle.Options{
		Separator: c.Separator,
		Workers:   c.Workers,
	})
	if err != nil {
		var rerr *bundle.ReadError
		if errors.As(err, &rerr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &PhaseError{Phase: PhaseRead, Err: err}
		}
		return nil, &PhaseError{Phase: PhaseWrite, Err: err}
	}

	result := &Result{
		OutputPath:   res.Path,
		BundledCount: res.Files,
		Files:        files,
		Bytes:        res.Bytes,
		Warnings:     warnings,
		Elapsed:      time.Since(start),
	}

	r.logger.Info().
		Str("path", result.OutputPath).
		Int("files", result.BundledCount).
		Int64("bytes", result.Bytes).
		Dur("elapsed", result.Elapsed).
		Msg("bundle created")

	return result, nil
}

// withoutFile drops the previous bundle from the candidates when the output
// directory lies inside the source tree
func withoutFile(ctx context.Context, candidates iter.Seq[walk.Candidate], path string) iter.Seq[walk.Candidate] {
	abs, err := filepath.Abs(path)
	if err != nil {
		return candidates
	}
	return func(yield func(walk.Candidate) bool) {
		for c := range candidates {
			if c.Abs == abs {
				zerolog.Ctx(ctx).Debug().Str("file", c.Rel).Msg("skipping previous bundle")
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}
