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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL. Expressions may read the
// environment through the env object, e.g. src_dir = env.HOME.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environment(),
		},
	}

	// Define HCL schema, pointers tell unset attributes apart from zero values
	type hclConfig struct {
		BundleName     *string  `hcl:"bundle_name,optional"`
		SourceDir      *string  `hcl:"src_dir,optional"`
		OutputDir      *string  `hcl:"out_dir,optional"`
		DestExt        *string  `hcl:"dst_ext,optional"`
		Separator      *string  `hcl:"file_sep,optional"`
		Patterns       []string `hcl:"src_globs,optional"`
		Workers        *int     `hcl:"workers,optional"`
		FollowSymlinks *bool    `hcl:"follow_symlinks,optional"`
		CaseSensitive  *bool    `hcl:"case_sensitive,optional"`
		SkipVCS        *bool    `hcl:"skip_vcs,optional"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Overlay onto defaults
	cfg := Default()
	setIf(&cfg.BundleName, hclCfg.BundleName)
	setIf(&cfg.SourceDir, hclCfg.SourceDir)
	setIf(&cfg.OutputDir, hclCfg.OutputDir)
	setIf(&cfg.DestExt, hclCfg.DestExt)
	setIf(&cfg.Separator, hclCfg.Separator)
	setIf(&cfg.Workers, hclCfg.Workers)
	setIf(&cfg.FollowSymlinks, hclCfg.FollowSymlinks)
	setIf(&cfg.CaseSensitive, hclCfg.CaseSensitive)
	setIf(&cfg.SkipVCS, hclCfg.SkipVCS)
	if hclCfg.Patterns != nil {
		cfg.Patterns = hclCfg.Patterns
	}

	return cfg, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
