package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcluded(t *testing.T) {
	testCases := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{"no patterns", "a/b.go", nil, false},
		{"substring", "blocks/fn/node_modules/x", []string{"node_modules"}, true},
		{"leading star", "blocks/fn/main_test.go", []string{"*_test.go"}, true},
		{"leading star miss", "blocks/fn/main.go", []string{"*_test.go"}, false},
		{"double star suffix", "blocks/fn/dist/bootstrap", []string{"**/bootstrap"}, true},
		{"double star prefix and suffix", "blocks/fn/cache/x.tmp", []string{"blocks/**/x.tmp"}, true},
		{"wrapped segment", "blocks/fn/dist/a.zip", []string{"blocks/**/dist/**/.zip"}, true},
		{"wrapped segment miss", "blocks/fn/distx/a.zip", []string{"blocks/**/dist/**/.zip"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Excluded(tc.path, tc.patterns))
		})
	}
}

func TestDisk_WriteReadExists(t *testing.T) {
	d := NewDisk(t.TempDir())

	require.NoError(t, d.WriteFile("a/b/c.txt", []byte("hello")))

	got, err := d.ReadFile("a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	ok, err := d.Exists("a/b/c.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Exists("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Remove("a"))
	ok, err = d.Exists("a/b/c.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisk_CopyWithExclude(t *testing.T) {
	base := t.TempDir()
	d := NewDisk(base)
	require.NoError(t, d.WriteFile("src/main.go", []byte("package main")))
	require.NoError(t, d.WriteFile("src/main_test.go", []byte("package main")))
	require.NoError(t, d.WriteFile("src/node_modules/x/index.js", []byte("x")))
	require.NoError(t, os.Symlink("main.go", filepath.Join(base, "src", "link.go")))

	require.NoError(t, d.Copy("src", "dst", CopyOptions{Exclude: []string{"*_test.go", "node_modules"}}))

	files, err := FindFilesByExtension(d, "dst", ".go")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "link.go"}, files)

	link, err := os.Readlink(filepath.Join(base, "dst", "link.go"))
	require.NoError(t, err)
	assert.Equal(t, "main.go", link)

	ok, err := d.Exists("dst/node_modules")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisk_Move(t *testing.T) {
	d := NewDisk(t.TempDir())
	require.NoError(t, d.WriteFile("a.txt", []byte("x")))

	require.NoError(t, d.Move("a.txt", "nested/b.txt"))

	got, err := d.ReadFile("nested/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestDisk_List(t *testing.T) {
	d := NewDisk(t.TempDir())
	require.NoError(t, d.WriteFile("a/one.txt", nil))
	require.NoError(t, d.WriteFile("b.txt", nil))

	t.Run("shallow", func(t *testing.T) {
		got, err := d.List(".", ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []FileInfo{
			{Path: "a", Name: "a", IsDir: true},
			{Path: "b.txt", Name: "b.txt"},
		}, got)
	})

	t.Run("recursive files only", func(t *testing.T) {
		got, err := d.List(".", ListOptions{Recursive: true, OnlyFiles: true})
		require.NoError(t, err)
		assert.Equal(t, []FileInfo{
			{Path: "a/one.txt", Name: "one.txt"},
			{Path: "b.txt", Name: "b.txt"},
		}, got)
	})

	t.Run("directories only", func(t *testing.T) {
		got, err := d.List(".", ListOptions{Recursive: true, OnlyDirectories: true})
		require.NoError(t, err)
		assert.Equal(t, []FileInfo{{Path: "a", Name: "a", IsDir: true}}, got)
	})
}

func TestDisk_CopyExcludesRelativeToSource(t *testing.T) {
	d := NewDisk(t.TempDir())
	// the project itself lives under directories named like excluded ones
	require.NoError(t, d.WriteFile("dist/samples/blocks/api/main.go", []byte("package main")))
	require.NoError(t, d.WriteFile("dist/samples/blocks/api/dist/bootstrap", []byte("bin")))
	require.NoError(t, d.WriteFile("dist/samples/blocks/api/samples/event.json", []byte("{}")))
	require.NoError(t, d.WriteFile("dist/samples/blocks/api/_lib/routing.json", []byte("{}")))

	exclude := []string{"**/dist/**", "**/samples/**", "**/_lib/**"}
	require.NoError(t, d.Copy("dist/samples/blocks/api", "out", CopyOptions{Exclude: exclude}))

	got, err := d.List("out", ListOptions{Recursive: true, OnlyFiles: true})
	require.NoError(t, err)
	assert.Equal(t, []FileInfo{{Path: "main.go", Name: "main.go"}}, got)
}
