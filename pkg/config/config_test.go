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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/fbundle/pkg/pattern"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "file_bundle", cfg.BundleName)
	assert.Equal(t, ".", cfg.SourceDir)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, ".txt", cfg.DestExt)
	assert.Empty(t, cfg.Separator, "separator has no default")
	assert.Empty(t, cfg.Patterns, "patterns have no default")
	assert.Equal(t, filepath.Join(".", "file_bundle.txt"), cfg.OutputPath())
}

func TestValidate(t *testing.T) {
	src := t.TempDir()
	notDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0644))

	valid := func() *Config {
		cfg := Default()
		cfg.SourceDir = src
		cfg.OutputDir = filepath.Join(t.TempDir(), "not", "yet", "created")
		cfg.Separator = "---"
		cfg.Patterns = []string{"*.go"}
		return cfg
	}

	tests := []struct {
		name        string
		mutate      func(cfg *Config)
		errContains string
	}{
		{
			name:   "valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:   "empty_extension_allowed",
			mutate: func(cfg *Config) { cfg.DestExt = "" },
		},
		{
			name:        "missing_separator",
			mutate:      func(cfg *Config) { cfg.Separator = "" },
			errContains: "file separator is required",
		},
		{
			name:        "missing_patterns",
			mutate:      func(cfg *Config) { cfg.Patterns = nil },
			errContains: "at least one glob pattern is required",
		},
		{
			name:        "empty_bundle_name",
			mutate:      func(cfg *Config) { cfg.BundleName = "" },
			errContains: "bundle name is required",
		},
		{
			name:        "bundle_name_with_separator",
			mutate:      func(cfg *Config) { cfg.BundleName = "a/b" },
			errContains: "must not contain a path separator",
		},
		{
			name:        "negative_workers",
			mutate:      func(cfg *Config) { cfg.Workers = -1 },
			errContains: "workers must not be negative",
		},
		{
			name:        "missing_source_dir",
			mutate:      func(cfg *Config) { cfg.SourceDir = filepath.Join(src, "nope") },
			errContains: "source directory",
		},
		{
			name:        "source_dir_is_file",
			mutate:      func(cfg *Config) { cfg.SourceDir = notDir },
			errContains: "is not a directory",
		},
		{
			name:        "output_dir_is_file",
			mutate:      func(cfg *Config) { cfg.OutputDir = notDir },
			errContains: "output directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate(testContext(t))
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateSourceDirError(t *testing.T) {
	cfg := Default()
	cfg.SourceDir = filepath.Join(t.TempDir(), "missing")
	cfg.Separator = "---"
	cfg.Patterns = []string{"*"}

	err := cfg.Validate(testContext(t))
	require.Error(t, err)

	var serr *SourceDirError
	require.True(t, errors.As(err, &serr), "error should be a SourceDirError")
	assert.Equal(t, cfg.SourceDir, serr.Dir)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidateCleansPaths(t *testing.T) {
	src := t.TempDir()
	cfg := Default()
	cfg.SourceDir = src + string(filepath.Separator) + "."
	cfg.OutputDir = ""
	cfg.Separator = "---"
	cfg.Patterns = []string{"*"}

	require.NoError(t, cfg.Validate(testContext(t)))
	assert.Equal(t, filepath.Clean(src), cfg.SourceDir)
	assert.Equal(t, ".", cfg.OutputDir, "empty output dir falls back to the default")
}

func TestOutputPath(t *testing.T) {
	cfg := &Config{BundleName: "bundle", OutputDir: filepath.Join("out", "dir"), DestExt: ".md"}
	assert.Equal(t, filepath.Join("out", "dir", "bundle.md"), cfg.OutputPath())

	cfg.DestExt = ""
	assert.Equal(t, filepath.Join("out", "dir", "bundle"), cfg.OutputPath())
}

func TestPatternSpecs(t *testing.T) {
	cfg := &Config{Patterns: []string{"**/*.go", "!vendor/**", "*.md"}, CaseSensitive: true}

	specs := cfg.PatternSpecs()
	require.Len(t, specs, 3)
	assert.Equal(t, pattern.Spec{Raw: "**/*.go", Polarity: pattern.Include}, specs[0])
	assert.Equal(t, pattern.Spec{Raw: "vendor/**", Polarity: pattern.Exclude}, specs[1])
	assert.Equal(t, pattern.Spec{Raw: "*.md", Polarity: pattern.Include}, specs[2])

	assert.True(t, cfg.PatternOptions().CaseSensitive)
}

func TestUnescapeSeparator(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "---", want: "---"},
		{name: "escaped_newline", in: `---\n//`, want: "---\n//"},
		{name: "several", in: `a\nb\nc`, want: "a\nb\nc"},
		{name: "real_newline_untouched", in: "a\nb", want: "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnescapeSeparator(tt.in))
		})
	}
}
