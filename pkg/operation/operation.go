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
	"fmt"
	"time"

	"github.com/walteh/fbundle/pkg/bundle"
	"github.com/walteh/fbundle/pkg/selector"
	"github.com/walteh/fbundle/pkg/walk"
)

// 🧭 Phase names a stage of a bundling run
type Phase string

const (
	PhaseConfig         Phase = "config"
	PhasePatternCompile Phase = "pattern-compile"
	PhaseWalk           Phase = "walk"
	PhaseSelect         Phase = "select"
	PhaseRead           Phase = "read"
	PhaseWrite          Phase = "write"
)

// ❌ PhaseError is a fatal error tagged with the phase it happened in
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// 📊 Result summarizes a successful run
type Result struct {
	OutputPath   string          // Where the bundle was written
	BundledCount int             // Number of files in the bundle
	Files        []selector.File // Bundled files, in bundle order
	Bytes        int64           // Bundle size
	Warnings     []walk.Warning  // Paths skipped during traversal
	Elapsed      time.Duration
}

// ✍️ Writer produces the bundle file from the selected files
type Writer interface {
	Write(ctx context.Context, files []selector.File, outputPath string, opts bundle.Options) (*bundle.Result, error)
}

// WriterFunc adapts a function to the Writer interface
type WriterFunc func(ctx context.Context, files []selector.File, outputPath string, opts bundle.Options) (*bundle.Result, error)

func (f WriterFunc) Write(ctx context.Context, files []selector.File, outputPath string, opts bundle.Options) (*bundle.Result, error) {
	return f(ctx, files, outputPath, opts)
}

// 🔧 Option configures a Runner
type Option func(*Runner)

// WithWriter replaces the bundle writer
func WithWriter(w Writer) Option {
	return func(r *Runner) {
		r.writer = w
	}
}
