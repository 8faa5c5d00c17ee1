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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/fbundle/pkg/pattern"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Defaults
const (
	DefaultBundleName = "file_bundle"
	DefaultSourceDir  = "."
	DefaultOutputDir  = "."
	DefaultDestExt    = ".txt"
)

// 📚 Config is everything one bundling run needs
type Config struct {
	BundleName     string   `json:"bundle_name,omitempty" yaml:"bundle_name,omitempty"`         // Output file name without extension
	SourceDir      string   `json:"src_dir,omitempty" yaml:"src_dir,omitempty"`                 // Directory searched for files
	OutputDir      string   `json:"out_dir,omitempty" yaml:"out_dir,omitempty"`                 // Directory the bundle is written to
	DestExt        string   `json:"dst_ext,omitempty" yaml:"dst_ext,omitempty"`                 // Bundle file extension, including the dot
	Separator      string   `json:"file_sep,omitempty" yaml:"file_sep,omitempty"`               // Line written before every file
	Patterns       []string `json:"src_globs,omitempty" yaml:"src_globs,omitempty"`             // Glob patterns, '!' prefix excludes
	Workers        int      `json:"workers,omitempty" yaml:"workers,omitempty"`                 // Parallel readers, 0 means one per CPU
	FollowSymlinks bool     `json:"follow_symlinks,omitempty" yaml:"follow_symlinks,omitempty"` // Follow symlinks while walking
	CaseSensitive  bool     `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`   // Match patterns case-sensitively
	SkipVCS        bool     `json:"skip_vcs,omitempty" yaml:"skip_vcs,omitempty"`               // Skip .git and friends while walking
}

// ❌ SourceDirError reports a source directory that is missing or unreadable
type SourceDirError struct {
	Dir string
	Err error
}

func (e *SourceDirError) Error() string {
	return fmt.Sprintf("source directory %s: %v", e.Dir, e.Err)
}

func (e *SourceDirError) Unwrap() error {
	return e.Err
}

// 🏭 Default returns a config carrying the default names and directories
func Default() *Config {
	return &Config{
		BundleName: DefaultBundleName,
		SourceDir:  DefaultSourceDir,
		OutputDir:  DefaultOutputDir,
		DestExt:    DefaultDestExt,
	}
}

// 🔍 Validate checks that the configuration can drive a run
func (cfg *Config) Validate(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Msg("validating config")

	// Check required fields
	if cfg.Separator == "" {
		return errors.Errorf("file separator is required")
	}
	if len(cfg.Patterns) == 0 {
		return errors.Errorf("at least one glob pattern is required")
	}
	if cfg.BundleName == "" {
		return errors.Errorf("bundle name is required")
	}
	if strings.ContainsAny(cfg.BundleName, `/\`) {
		return errors.Errorf("bundle name %q must not contain a path separator", cfg.BundleName)
	}
	if cfg.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}

	// Clean up paths
	if cfg.SourceDir == "" {
		cfg.SourceDir = DefaultSourceDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.SourceDir = filepath.Clean(cfg.SourceDir)
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)

	if err := checkReadableDir(cfg.SourceDir); err != nil {
		return &SourceDirError{Dir: cfg.SourceDir, Err: err}
	}

	// the output directory is created on demand, but must not be something else
	if info, err := os.Stat(cfg.OutputDir); err == nil && !info.IsDir() {
		return errors.Errorf("output directory %s is not a directory", cfg.OutputDir)
	} else if err != nil && !os.IsNotExist(err) {
		return errors.Errorf("output directory: %w", err)
	}

	return nil
}

func checkReadableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	return f.Close()
}

// OutputPath returns {out_dir}/{bundle_name}{dst_ext}
func (cfg *Config) OutputPath() string {
	return filepath.Join(cfg.OutputDir, cfg.BundleName+cfg.DestExt)
}

// PatternSpecs parses the configured patterns, preserving order
func (cfg *Config) PatternSpecs() []pattern.Spec {
	return pattern.ParseSpecs(cfg.Patterns)
}

// PatternOptions returns matcher options derived from the config
func (cfg *Config) PatternOptions() pattern.Options {
	return pattern.Options{CaseSensitive: cfg.CaseSensitive}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s [%s] -> %s", cfg.SourceDir, strings.Join(cfg.Patterns, " "), cfg.OutputPath())
}

// UnescapeSeparator turns the two-character sequence `\n` into a newline,
// so separators spanning lines can be given on a command line.
func UnescapeSeparator(sep string) string {
	return strings.ReplaceAll(sep, `\n`, "\n")
}
