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

package bundle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/walteh/fbundle/pkg/selector"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ⚙️ Options controls how a bundle is produced
type Options struct {
	Separator string // Written on its own line before every entry
	Workers   int    // Parallel readers; 0 means runtime.NumCPU()
}

// 📦 Result describes a written bundle
type Result struct {
	Path  string // Bundle location
	Files int    // Number of entries
	Bytes int64  // Bundle size
}

// 📄 Entry is one file's contribution to a bundle
type Entry struct {
	Path    string
	Content []byte
}

// ❌ ReadError reports a selected file that could not be read
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ❌ WriteError reports a bundle that could not be written
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// 🏃 Write reads every file in parallel and writes the bundle in the given order.
// Nothing is written unless every read succeeds, and the destination is replaced atomically.
func Write(ctx context.Context, files []selector.File, outputPath string, opts Options) (*Result, error) {
	entries, err := ReadAll(ctx, files, opts.Workers)
	if err != nil {
		return nil, err
	}

	n, err := writeAtomic(ctx, outputPath, func(w io.Writer) (int64, error) {
		return Encode(w, entries, opts.Separator)
	})
	if err != nil {
		return nil, &WriteError{Path: outputPath, Err: err}
	}

	zerolog.Ctx(ctx).Debug().Str("path", outputPath).Int("files", len(entries)).Int64("bytes", n).Msg("bundle written")

	return &Result{Path: outputPath, Files: len(entries), Bytes: n}, nil
}

// 📥 ReadAll loads every file with a bounded worker pool.
// Each worker fills its own slot, so the result keeps the input order.
// The first failure stops the remaining reads and is returned as a *ReadError.
func ReadAll(ctx context.Context, files []selector.File, workers int) ([]Entry, error) {
	logger := zerolog.Ctx(ctx)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger.Debug().Int("workers", workers).Int("files", len(files)).Msg("reading files")

	entries := make([]Entry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(file.Abs)
			if err != nil {
				return &ReadError{Path: file.Rel, Err: err}
			}
			logger.Debug().Str("file", file.Rel).Int("bytes", len(content)).Msg("read file")
			entries[i] = Entry{Path: file.Rel, Content: content}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// a slot left empty by cancellation must never reach the encoder
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("reading files: %w", err)
	}

	return entries, nil
}

// 📝 Encode writes entries in bundle format:
//
//	<separator>\n<path>\n<content>\n
//
// for each entry, in order.
func Encode(w io.Writer, entries []Entry, separator string) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64

	write := func(s string) error {
		n, err := bw.WriteString(s)
		total += int64(n)
		return err
	}

	for _, entry := range entries {
		if err := write(separator + "\n" + entry.Path + "\n"); err != nil {
			return total, errors.Errorf("writing header for %s: %w", entry.Path, err)
		}
		n, err := bw.Write(entry.Content)
		total += int64(n)
		if err != nil {
			return total, errors.Errorf("writing content for %s: %w", entry.Path, err)
		}
		if err := write("\n"); err != nil {
			return total, errors.Errorf("writing trailer for %s: %w", entry.Path, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return total, errors.Errorf("flushing bundle: %w", err)
	}
	return total, nil
}

// 💾 writeAtomic writes to a temp file next to path and renames it into place
func writeAtomic(ctx context.Context, path string, fill func(io.Writer) (int64, error)) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, errors.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath) // Clean up temp file
		}
	}()

	n, err := fill(tmp)
	if err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return 0, errors.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Errorf("closing temp file: %w", err)
	}

	// Rename temp file to target (atomic operation)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		committed = true
		return 0, errors.Errorf("renaming temp file: %w", err)
	}
	committed = true

	zerolog.Ctx(ctx).Debug().Str("temp", tmpPath).Str("path", path).Msg("renamed bundle into place")
	return n, nil
}
