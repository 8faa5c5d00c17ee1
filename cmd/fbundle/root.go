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

package main

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/fbundle/pkg/config"
	"github.com/walteh/fbundle/pkg/log"
	"github.com/walteh/fbundle/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// rootOpts holds the raw flag values
type rootOpts struct {
	configFile     string
	bundleName     string
	srcDir         string
	outDir         string
	dstExt         string
	fileSep        string
	srcGlobs       []string
	verbose        bool
	workers        int
	followSymlinks bool
	caseSensitive  bool
	skipVCS        bool
}

// 🚀 run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.New(stderr, zerolog.Nop()).Error(err.Error())
		return 1
	}
	return 0
}

// newRootCmd creates the fbundle command
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "fbundle",
		Short: "Bundle multiple files into a single output file",
		Long: `fbundle walks a source directory, keeps the files matching the given glob
patterns and concatenates them into one bundle. Every file is preceded by the
separator line and its path relative to the source directory.

Patterns starting with '!' exclude. Files are written in byte-wise path order,
so the same tree always produces the same bundle.`,
		Example: `  fbundle -f '---' -g '*.txt'
  fbundle -s ./src -f '//' -g '**/*.rs' -g '!**/*_test.rs'
  fbundle -n my_bundle -f '---FILE---' -g '**/*.md'
  fbundle -f '---' -g '**/*.{js,ts}' -g '!**/node_modules/**' -g '!**/dist/**'
  fbundle -c fbundle.yaml -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(stderr, opts.verbose)
			ctx := logger.WithContext(cmd.Context())

			presenter := log.New(stdout, logger)
			ctx = log.NewContext(ctx, presenter)

			cfg, err := buildConfig(ctx, cmd, opts)
			if err != nil {
				return err
			}

			return runBundle(ctx, &logger, cfg, opts.verbose)
		},
	}

	addRootFlags(cmd, opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// addRootFlags adds the bundling flags to the root command
func addRootFlags(cmd *cobra.Command, opts *rootOpts) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (.yaml, .yml, .hcl or .json)")
	flags.StringVarP(&opts.bundleName, "bundle-name", "n", config.DefaultBundleName, "name of the output bundle file")
	flags.StringVarP(&opts.srcDir, "src-dir", "s", config.DefaultSourceDir, "source directory to search for files")
	flags.StringVarP(&opts.outDir, "out-dir", "o", config.DefaultOutputDir, "output directory for the bundle file")
	flags.StringVarP(&opts.dstExt, "dst-ext", "e", config.DefaultDestExt, "file extension of the bundle file")
	flags.StringVarP(&opts.fileSep, "file-sep", "f", "", `separator written before every file, \n starts a new line`)
	// StringArray keeps commas inside brace patterns like {js,ts}
	flags.StringArrayVarP(&opts.srcGlobs, "src-globs", "g", nil, "glob pattern to match source files, '!' prefix excludes (repeatable)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "parallel file readers, 0 uses one per CPU")
	flags.BoolVar(&opts.followSymlinks, "follow-symlinks", false, "follow symbolic links while walking")
	flags.BoolVar(&opts.caseSensitive, "case-sensitive", false, "match glob patterns case-sensitively")
	flags.BoolVar(&opts.skipVCS, "skip-vcs", false, "do not descend into .git, .hg, .svn and .bzr directories")
}

// setupLogging configures zerolog based on flags
func setupLogging(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// 🔧 buildConfig starts from the defaults or the config file, then applies the flags
// that were set explicitly
func buildConfig(ctx context.Context, cmd *cobra.Command, opts *rootOpts) (*config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.LoadFile(ctx, opts.configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	override := func(name string, apply func()) {
		if opts.configFile == "" || flags.Changed(name) {
			apply()
		}
	}

	override("bundle-name", func() { cfg.BundleName = opts.bundleName })
	override("src-dir", func() { cfg.SourceDir = opts.srcDir })
	override("out-dir", func() { cfg.OutputDir = opts.outDir })
	override("dst-ext", func() { cfg.DestExt = opts.dstExt })
	override("file-sep", func() { cfg.Separator = opts.fileSep })
	override("src-globs", func() { cfg.Patterns = opts.srcGlobs })
	override("workers", func() { cfg.Workers = opts.workers })
	override("follow-symlinks", func() { cfg.FollowSymlinks = opts.followSymlinks })
	override("case-sensitive", func() { cfg.CaseSensitive = opts.caseSensitive })
	override("skip-vcs", func() { cfg.SkipVCS = opts.skipVCS })

	cfg.Separator = config.UnescapeSeparator(cfg.Separator)

	return cfg, nil
}

// 🏃 runBundle runs one bundling job and reports it on the console
func runBundle(ctx context.Context, logger *zerolog.Logger, cfg *config.Config, verbose bool) error {
	presenter := log.FromContext(ctx)

	if verbose {
		presenter.Header("bundling " + cfg.SourceDir)
		presenter.Infof("Glob patterns: [%s]", strings.Join(cfg.Patterns, ", "))
	}

	res, err := operation.NewRunner(logger).Run(ctx, cfg)
	if err != nil {
		return err
	}

	if verbose {
		for _, f := range res.Files {
			presenter.BundledFile(f.Rel, f.Size)
		}
	}
	presenter.Warnings(res.Warnings)

	presenter.Successf("Bundle created at: %s", res.OutputPath)
	presenter.Summary(res.OutputPath, res.BundledCount, res.Bytes, res.Elapsed)

	return nil
}
