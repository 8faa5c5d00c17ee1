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

package selector

import (
	"iter"
	"slices"
	"strings"

	"github.com/walteh/fbundle/pkg/walk"
)

// 🔍 Matcher decides whether a relative path belongs in the bundle
type Matcher interface {
	Matches(rel string) bool
}

// 📄 File is a candidate confirmed for bundling
type File struct {
	Rel  string // Slash-separated path relative to the source root
	Abs  string // Absolute path on disk
	Size int64
}

// 🎯 Select keeps the candidates accepted by m, sorted byte-wise by relative path.
// The result does not depend on the order candidates arrive in.
func Select(candidates iter.Seq[walk.Candidate], m Matcher) []File {
	var files []File
	for c := range candidates {
		if m.Matches(c.Rel) {
			files = append(files, File{Rel: c.Rel, Abs: c.Abs, Size: c.Size})
		}
	}

	slices.SortStableFunc(files, func(a, b File) int {
		return strings.Compare(a.Rel, b.Rel)
	})
	return files
}
