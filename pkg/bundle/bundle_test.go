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

package bundle_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/fbundle/pkg/bundle"
	"github.com/walteh/fbundle/pkg/selector"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

// 🧪 sourceFiles writes files under a temp dir and returns them as selected files, in the given order
func sourceFiles(t *testing.T, pairs ...string) []selector.File {
	t.Helper()
	require.Zero(t, len(pairs)%2, "pairs must be path/content")

	root := t.TempDir()
	var files []selector.File
	for i := 0; i < len(pairs); i += 2 {
		rel, content := pairs[i], pairs[i+1]
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
		files = append(files, selector.File{Rel: rel, Abs: abs, Size: int64(len(content))})
	}
	return files
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		entries   []bundle.Entry
		separator string
		want      string
	}{
		{
			name: "two_markdown_files",
			entries: []bundle.Entry{
				{Path: "x.md", Content: []byte("# x")},
				{Path: "y.md", Content: []byte("# y\n")},
			},
			separator: "---",
			want:      "---\nx.md\n# x\n---\ny.md\n# y\n\n",
		},
		{
			name:      "no_entries",
			separator: "---",
			want:      "",
		},
		{
			name: "separator_kept_verbatim",
			entries: []bundle.Entry{
				{Path: "a", Content: []byte("1")},
			},
			separator: "  ==== FILE ====\t",
			want:      "  ==== FILE ====\t\na\n1\n",
		},
		{
			name: "multi_line_separator",
			entries: []bundle.Entry{
				{Path: "a", Content: []byte{}},
			},
			separator: "\n//",
			want:      "\n//\na\n\n",
		},
		{
			name: "raw_bytes_preserved",
			entries: []bundle.Entry{
				{Path: "bin", Content: []byte{0x00, 0xff, 0xfe, '\n'}},
			},
			separator: "#",
			want:      "#\nbin\n\x00\xff\xfe\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := bundle.Encode(&buf, tt.entries, tt.separator)
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
			assert.Equal(t, int64(len(tt.want)), n)
		})
	}
}

func TestWrite(t *testing.T) {
	ctx := testContext(t)
	files := sourceFiles(t, "x.md", "contents of x", "y.md", "contents of y")
	out := filepath.Join(t.TempDir(), "nested", "out", "bundle.txt")

	res, err := bundle.Write(ctx, files, out, bundle.Options{Separator: "---", Workers: 2})
	require.NoError(t, err)

	want := "---\nx.md\ncontents of x\n---\ny.md\ncontents of y\n"
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	assert.Equal(t, out, res.Path)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, int64(len(want)), res.Bytes)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(out), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files should not be left behind")
}

func TestWriteEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.txt")

	res, err := bundle.Write(testContext(t), nil, out, bundle.Options{Separator: "---"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Files)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteKeepsOrderUnderParallelReads(t *testing.T) {
	var pairs []string
	var want bytes.Buffer
	for i := 0; i < 64; i++ {
		rel := fmt.Sprintf("f%03d.txt", i)
		content := fmt.Sprintf("content %d", i)
		pairs = append(pairs, rel, content)
		fmt.Fprintf(&want, "SEP\n%s\n%s\n", rel, content)
	}
	files := sourceFiles(t, pairs...)
	dir := t.TempDir()

	for _, workers := range []int{1, 3, 16} {
		out := filepath.Join(dir, fmt.Sprintf("bundle-%d.txt", workers))
		_, err := bundle.Write(testContext(t), files, out, bundle.Options{Separator: "SEP", Workers: workers})
		require.NoError(t, err)

		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, want.String(), string(got), "workers=%d", workers)
	}
}

func TestWriteFailsFast(t *testing.T) {
	ctx := testContext(t)
	files := sourceFiles(t, "a.txt", "a", "c.txt", "c")
	files = append(files[:1], append([]selector.File{{Rel: "b.txt", Abs: filepath.Join(t.TempDir(), "gone.txt")}}, files[1:]...)...)

	dir := t.TempDir()
	out := filepath.Join(dir, "bundle.txt")
	require.NoError(t, os.WriteFile(out, []byte("previous bundle"), 0644))

	res, err := bundle.Write(ctx, files, out, bundle.Options{Separator: "---"})
	require.Error(t, err)
	assert.Nil(t, res)

	var rerr *bundle.ReadError
	require.True(t, errors.As(err, &rerr), "error should be a ReadError")
	assert.Equal(t, "b.txt", rerr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous bundle", string(got), "existing bundle must not be touched")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be created")
}

func TestWriteFailsFastWithoutCreatingOutput(t *testing.T) {
	files := []selector.File{{Rel: "missing.txt", Abs: filepath.Join(t.TempDir(), "missing.txt")}}
	out := filepath.Join(t.TempDir(), "out", "bundle.txt")

	_, err := bundle.Write(testContext(t), files, out, bundle.Options{Separator: "---"})
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "bundle should not exist")
}

func TestWriteCancelledContext(t *testing.T) {
	files := sourceFiles(t, "a.txt", "a", "b.txt", "b")
	out := filepath.Join(t.TempDir(), "bundle.txt")

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	res, err := bundle.Write(ctx, files, out, bundle.Options{Separator: "---"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no bundle should be written")
}

func TestReadAllCancelledContext(t *testing.T) {
	files := sourceFiles(t, "a.txt", "a")

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	entries, err := bundle.ReadAll(ctx, files, 4)
	require.Error(t, err)
	assert.Nil(t, entries)
}

func TestWriteUnwritableOutput(t *testing.T) {
	files := sourceFiles(t, "a.txt", "a")

	// a regular file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	out := filepath.Join(blocker, "bundle.txt")

	_, err := bundle.Write(testContext(t), files, out, bundle.Options{Separator: "---"})
	require.Error(t, err)

	var werr *bundle.WriteError
	require.True(t, errors.As(err, &werr), "error should be a WriteError")
	assert.Equal(t, out, werr.Path)
}

func TestWriteIsDeterministic(t *testing.T) {
	files := sourceFiles(t, "a/b.go", "package b", "a/c.go", "package c", "z.go", "package z")
	dir := t.TempDir()

	var outputs [][]byte
	for i := 0; i < 3; i++ {
		out := filepath.Join(dir, fmt.Sprintf("run%d.txt", i))
		_, err := bundle.Write(testContext(t), files, out, bundle.Options{Separator: "// ---"})
		require.NoError(t, err)
		got, err := os.ReadFile(out)
		require.NoError(t, err)
		outputs = append(outputs, got)
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
