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

package walk

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// vcsDirs are version control metadata directories skipped when Options.SkipVCS is set
var vcsDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
	".bzr": true,
}

// ErrSymlinkCycle is recorded when a followed symlink points back into its own ancestry
var ErrSymlinkCycle = errors.New("symlink cycle")

// 📄 Candidate is a regular file discovered under the walk root
type Candidate struct {
	Rel  string // Slash-separated path relative to the root
	Abs  string // Absolute path on disk
	Size int64  // Size in bytes at discovery time
}

// ⚠️ Warning is a non-fatal problem with a single entry
type Warning struct {
	Path string // Path relative to the root
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// ✂️ Pruner decides whether a directory can be skipped entirely
type Pruner interface {
	SkipDir(rel string) bool
}

// ⚙️ Options controls traversal
type Options struct {
	FollowSymlinks bool   // Follow symlinks to files and directories
	SkipVCS        bool   // Skip version control metadata directories by name
	Pruner         Pruner // Optional directory pruning
}

// 🚶 Walker enumerates regular files below a root directory
type Walker struct {
	root     string
	opts     Options
	warnings []Warning
}

// pending is a directory waiting on the work stack
type pending struct {
	rel   string
	abs   string
	chain []string // real paths from the root down to this directory, only kept when following symlinks
}

// 🏭 New creates a walker rooted at root, which must be an existing directory
func New(root string, opts Options) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Errorf("reading root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("root %s is not a directory", root)
	}

	return &Walker{root: abs, opts: opts}, nil
}

// Root returns the absolute walk root
func (w *Walker) Root() string {
	return w.root
}

// Warnings returns the warnings recorded by the most recent walk
func (w *Walker) Warnings() []Warning {
	return slices.Clone(w.warnings)
}

func (w *Walker) warn(ctx context.Context, rel string, err error) {
	zerolog.Ctx(ctx).Warn().Str("path", rel).Err(err).Msg("skipping entry")
	w.warnings = append(w.warnings, Warning{Path: rel, Err: err})
}

// 🔄 Walk returns a lazy sequence of regular files.
// Every call starts over from the root and clears previous warnings.
// Directories are processed from an explicit stack, so depth does not grow the call stack.
func (w *Walker) Walk(ctx context.Context) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		logger := zerolog.Ctx(ctx)
		w.warnings = nil

		start := pending{rel: "", abs: w.root}
		if w.opts.FollowSymlinks {
			if real, err := filepath.EvalSymlinks(w.root); err == nil {
				start.chain = []string{real}
			}
		}

		stack := []pending{start}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			// os.ReadDir returns the entries it managed to read alongside the error
			entries, err := os.ReadDir(dir.abs)
			if err != nil {
				w.warn(ctx, displayPath(dir.rel), err)
			}

			var subdirs []pending
			for _, entry := range entries {
				rel := path.Join(dir.rel, entry.Name())
				abs := filepath.Join(dir.abs, entry.Name())

				info, isDir, ok := w.resolve(ctx, entry, rel, abs)
				if !ok {
					continue
				}

				if isDir {
					if w.skipDir(ctx, entry.Name(), rel) {
						continue
					}
					next := pending{rel: rel, abs: abs}
					if w.opts.FollowSymlinks {
						real, err := filepath.EvalSymlinks(abs)
						if err != nil {
							w.warn(ctx, rel, err)
							continue
						}
						// only a link back into its own ancestry loops; other aliases are walked again
						if slices.Contains(dir.chain, real) {
							w.warn(ctx, rel, ErrSymlinkCycle)
							continue
						}
						next.chain = append(slices.Clip(dir.chain), real)
					}
					subdirs = append(subdirs, next)
					continue
				}

				if !info.Mode().IsRegular() {
					logger.Debug().Str("path", rel).Str("mode", info.Mode().String()).Msg("skipping non-regular file")
					continue
				}

				if !yield(Candidate{Rel: rel, Abs: abs, Size: info.Size()}) {
					return
				}
			}

			// push in reverse so the first child is walked next
			for i := len(subdirs) - 1; i >= 0; i-- {
				stack = append(stack, subdirs[i])
			}
		}
	}
}

// resolve returns the file info to act on for an entry, following symlinks when enabled
func (w *Walker) resolve(ctx context.Context, entry fs.DirEntry, rel, abs string) (fs.FileInfo, bool, bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		if !w.opts.FollowSymlinks {
			// not followed, but a broken link is still worth reporting
			if _, err := os.Stat(abs); err != nil {
				w.warn(ctx, rel, err)
				return nil, false, false
			}
			zerolog.Ctx(ctx).Debug().Str("path", rel).Msg("skipping symlink")
			return nil, false, false
		}
		info, err := os.Stat(abs)
		if err != nil {
			w.warn(ctx, rel, err)
			return nil, false, false
		}
		return info, info.IsDir(), true
	}

	info, err := entry.Info()
	if err != nil {
		w.warn(ctx, rel, err)
		return nil, false, false
	}
	return info, info.IsDir(), true
}

func (w *Walker) skipDir(ctx context.Context, name, rel string) bool {
	logger := zerolog.Ctx(ctx)
	if w.opts.SkipVCS && vcsDirs[name] {
		logger.Debug().Str("dir", rel).Msg("skipping vcs directory")
		return true
	}
	if w.opts.Pruner != nil && w.opts.Pruner.SkipDir(rel) {
		logger.Debug().Str("dir", rel).Msg("pruning directory")
		return true
	}
	return false
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
