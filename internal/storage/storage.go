// Package storage is the file system collaborator used by the generators:
// reads, writes, recursive copies with exclude patterns, moves and listings,
// all relative to a base directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store is the file system surface the generators depend on.
type Store interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Exists(path string) (bool, error)
	Remove(path string) error
	Copy(src, dst string, opts CopyOptions) error
	Move(src, dst string) error
	List(dir string, opts ListOptions) ([]FileInfo, error)
	Join(elem ...string) string
}

// CopyOptions controls Copy.
type CopyOptions struct {
	// Exclude skips any entry whose path matches one of the patterns. Paths
	// are matched relative to the copy source as `/rel/path`, so where the
	// source itself lives never matters.
	Exclude []string
}

// ListOptions controls List.
type ListOptions struct {
	Recursive       bool
	OnlyFiles       bool
	OnlyDirectories bool
}

// FileInfo describes one listed entry. Path is relative to the listed dir.
type FileInfo struct {
	Path  string
	Name  string
	IsDir bool
}

// Disk is a Store backed by the local file system. Relative paths are
// resolved against Base.
type Disk struct {
	Base string
}

// NewDisk returns a Disk rooted at base.
func NewDisk(base string) *Disk {
	return &Disk{Base: base}
}

var _ Store = (*Disk)(nil)

func (d *Disk) resolve(path string) string {
	if filepath.IsAbs(path) || d.Base == "" {
		return path
	}
	return filepath.Join(d.Base, path)
}

// Join joins path elements.
func (d *Disk) Join(elem ...string) string { return filepath.Join(elem...) }

func (d *Disk) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(d.resolve(path))
}

// WriteFile writes data, creating parent directories as needed.
func (d *Disk) WriteFile(path string, data []byte) error {
	p := d.resolve(path)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (d *Disk) Exists(path string) (bool, error) {
	_, err := os.Lstat(d.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file or a whole tree. Missing paths are not an error.
func (d *Disk) Remove(path string) error {
	return os.RemoveAll(d.resolve(path))
}

// Move renames src to dst, creating dst's parent.
func (d *Disk) Move(src, dst string) error {
	to := d.resolve(dst)
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(d.resolve(src), to)
}

// Copy copies a file or directory tree. Symlinks are recreated, not followed.
func (d *Disk) Copy(src, dst string, opts CopyOptions) error {
	from, to := d.resolve(src), d.resolve(dst)
	info, err := os.Lstat(from)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyEntry(from, to, info)
	}

	return filepath.WalkDir(from, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		if path != from && Excluded("/"+filepath.ToSlash(rel), opts.Exclude) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(to, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return copyEntry(path, target, info)
	})
}

func copyEntry(from, to string, info fs.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(from)
		if err != nil {
			return err
		}
		return os.Symlink(link, to)
	}

	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(to, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", from, err)
	}
	return out.Close()
}

// List returns the entries of dir in lexical order.
func (d *Disk) List(dir string, opts ListOptions) ([]FileInfo, error) {
	root := d.resolve(dir)
	var out []FileInfo
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		keep := !(opts.OnlyFiles && entry.IsDir()) && !(opts.OnlyDirectories && !entry.IsDir())
		if keep {
			out = append(out, FileInfo{Path: filepath.ToSlash(rel), Name: entry.Name(), IsDir: entry.IsDir()})
		}
		if entry.IsDir() && !opts.Recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindFilesByExtension lists the files under dir ending with extension.
func FindFilesByExtension(s Store, dir, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}
	entries, err := s.List(dir, ListOptions{Recursive: true, OnlyFiles: true})
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name, extension) {
			files = append(files, e.Path)
		}
	}
	return files, nil
}
