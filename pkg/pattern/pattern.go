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

package pattern

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// 🎭 Polarity marks a pattern as selecting or rejecting paths
type Polarity int

const (
	Include Polarity = iota
	Exclude
)

// String returns a string representation of Polarity
func (p Polarity) String() string {
	switch p {
	case Include:
		return "include"
	case Exclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// 📝 Spec is a single pattern as supplied by the user
type Spec struct {
	Raw      string   // Pattern text without the leading '!'
	Polarity Polarity // Include or Exclude
}

// String renders the spec back into its user-facing form
func (s Spec) String() string {
	if s.Polarity == Exclude {
		return "!" + s.Raw
	}
	return s.Raw
}

// 🔍 ParseSpec splits the '!' exclusion marker off a raw pattern string
func ParseSpec(raw string) Spec {
	if rest, ok := strings.CutPrefix(raw, "!"); ok {
		return Spec{Raw: rest, Polarity: Exclude}
	}
	return Spec{Raw: raw, Polarity: Include}
}

// ParseSpecs parses every raw pattern, preserving order
func ParseSpecs(raws []string) []Spec {
	specs := make([]Spec, 0, len(raws))
	for _, raw := range raws {
		specs = append(specs, ParseSpec(raw))
	}
	return specs
}

// ❌ PatternError reports a pattern that could not be compiled
type PatternError struct {
	Pattern string // Pattern as the user wrote it
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

// ⚙️ Options controls matcher construction
type Options struct {
	CaseSensitive bool // Match case exactly; the default folds case
}

// compiled is a validated, normalized pattern
type compiled struct {
	spec     Spec
	glob     string   // normalized glob handed to doublestar
	segments []string // glob split on '/', nil when segment-wise matching is unsafe
}

// 🎯 Set is a compiled collection of include and exclude patterns.
// A Set is immutable after Compile and safe for concurrent use.
type Set struct {
	specs    []Spec
	includes []compiled
	excludes []compiled
	fold     bool
}

// 🏭 Compile validates every spec and builds a Set.
// The first malformed pattern aborts construction with a *PatternError.
func Compile(specs []Spec, opts Options) (*Set, error) {
	set := &Set{
		specs: append([]Spec(nil), specs...),
		fold:  !opts.CaseSensitive,
	}

	for _, spec := range specs {
		c, err := compileSpec(spec, set.fold)
		if err != nil {
			return nil, err
		}
		if spec.Polarity == Exclude {
			set.excludes = append(set.excludes, c)
		} else {
			set.includes = append(set.includes, c)
		}
	}

	return set, nil
}

func compileSpec(spec Spec, fold bool) (compiled, error) {
	glob := normalizeGlob(spec.Raw)
	if glob == "" {
		return compiled{}, &PatternError{Pattern: spec.String(), Reason: "pattern is empty"}
	}
	if fold {
		glob = strings.ToLower(glob)
	}
	if !doublestar.ValidatePattern(glob) {
		return compiled{}, &PatternError{Pattern: spec.String(), Reason: doublestar.ErrBadPattern.Error()}
	}

	c := compiled{spec: spec, glob: glob}
	if !hasSlashInBraces(glob) {
		c.segments = strings.Split(glob, "/")
	}
	return c, nil
}

// normalizeGlob strips root anchors; every pattern is already relative to the source root
func normalizeGlob(raw string) string {
	glob := strings.TrimSpace(raw)
	for {
		switch {
		case strings.HasPrefix(glob, "./"):
			glob = glob[2:]
		case strings.HasPrefix(glob, "/"):
			glob = glob[1:]
		default:
			return glob
		}
	}
}

// hasSlashInBraces reports whether an alternation group spans path segments
func hasSlashInBraces(glob string) bool {
	depth := 0
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth > 0 {
				return true
			}
		}
	}
	return false
}

func (s *Set) normalizePath(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "./")
	if s.fold {
		rel = strings.ToLower(rel)
	}
	return rel
}

// ✅ Matches reports whether rel matches at least one include and no exclude.
// Exclusion wins regardless of pattern order.
func (s *Set) Matches(rel string) bool {
	path := s.normalizePath(rel)

	included := false
	for _, c := range s.includes {
		if doublestar.MatchUnvalidated(c.glob, path) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, c := range s.excludes {
		if doublestar.MatchUnvalidated(c.glob, path) {
			return false
		}
	}
	return true
}

// 🌲 CouldContain reports whether any include pattern can match a path below dir.
// A false answer is exact; true may be conservative.
func (s *Set) CouldContain(dir string) bool {
	dirSegments := strings.Split(s.normalizePath(dir), "/")
	for _, c := range s.includes {
		if c.couldContain(dirSegments) {
			return true
		}
	}
	return false
}

func (c compiled) couldContain(dirSegments []string) bool {
	if c.segments == nil {
		return true
	}
	for i, seg := range dirSegments {
		if i >= len(c.segments) {
			return false
		}
		p := c.segments[i]
		if p == "**" {
			return true
		}
		// the last pattern segment names the file itself
		if i == len(c.segments)-1 {
			return false
		}
		if !doublestar.MatchUnvalidated(p, seg) {
			return false
		}
	}
	return true
}

// 🚫 ExcludesTree reports whether every path below dir is excluded
func (s *Set) ExcludesTree(dir string) bool {
	path := s.normalizePath(dir)
	for _, c := range s.excludes {
		if c.glob == "**" {
			return true
		}
		prefix, ok := strings.CutSuffix(c.glob, "/**")
		if !ok {
			continue
		}
		if doublestar.MatchUnvalidated(prefix, path) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a walker may skip dir without losing a match
func (s *Set) SkipDir(dir string) bool {
	return !s.CouldContain(dir) || s.ExcludesTree(dir)
}

// Specs returns the specs in the order they were compiled
func (s *Set) Specs() []Spec {
	return append([]Spec(nil), s.specs...)
}

func (s *Set) String() string {
	parts := make([]string, 0, len(s.specs))
	for _, spec := range s.specs {
		parts = append(parts, spec.String())
	}
	return strings.Join(parts, " ")
}
