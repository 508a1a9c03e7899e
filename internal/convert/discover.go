package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover resolves argument paths to the sorted list of JavaScript
// files a run will touch, plus the number of files the ignore rules
// excluded. Directory arguments are walked recursively; file arguments
// are taken as given. Hidden directories and node_modules are never
// walked into.
//
// Ignore prefixes are matched against slash-separated paths relative to
// the walked directory (or the argument path itself for file
// arguments). A positive limit caps the list after sorting, so repeated
// runs over a large tree pick the same files.
func Discover(ctx context.Context, args []string, ignores []string, limit int) ([]string, int, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	ignored := 0
	add := func(path, rel string) {
		// a.js and ./a.js are the same file
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		seen[key] = true
		if matchesIgnore(rel, ignores) {
			ignored++
			return
		}
		files = append(files, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, 0, fmt.Errorf("resolving %s: %w", arg, err)
		}

		if !info.IsDir() {
			add(arg, filepath.ToSlash(filepath.Clean(arg)))
			continue
		}

		root := arg
		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				return err
			}

			if info.IsDir() {
				name := info.Name()
				if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
					return filepath.SkipDir
				}
				return nil
			}

			if !strings.HasSuffix(info.Name(), ".js") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			add(path, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, ignored, nil
}

func matchesIgnore(rel string, ignores []string) bool {
	for _, prefix := range ignores {
		if prefix != "" && strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

// replaceFile swaps in the new contents via a temp file and rename, so
// a crash mid-write never leaves a truncated source file. The original
// permission bits carry over.
func replaceFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".amdify-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
