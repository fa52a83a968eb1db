package workspace

import (
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ResolveSavePaths expands a SaveConfig's include/exclude globs against root
// into a sorted, deduplicated list of file paths, adapted from the teacher's
// Harvester.Harvest: resolve each declared path relative to a base
// directory, recurse into directories, then sort everything for
// deterministic ordering. Unlike the teacher's harvester this never reads
// file contents — save_buffers is a pre-action hint, not an artifact
// capture.
//
// Include and exclude patterns are independent filesystem walks, so each
// pattern resolves on its own goroutine via errgroup.
func ResolveSavePaths(root string, cfg SaveConfig) ([]string, error) {
	includedSets, err := globAll(root, cfg.Include, cfg.FollowSymlinks)
	if err != nil {
		return nil, err
	}
	excludedSets, err := globAll(root, cfg.Exclude, cfg.FollowSymlinks)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool)
	for _, set := range excludedSets {
		for _, m := range set {
			excluded[m] = true
		}
	}

	included := make(map[string]bool)
	for _, set := range includedSets {
		for _, m := range set {
			included[m] = true
		}
	}

	out := make([]string, 0, len(included))
	for path := range included {
		if !excluded[path] {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// globAll resolves every pattern concurrently, returning one match slice per
// pattern in input order. Every pattern runs to completion; if any failed,
// the first error is returned.
func globAll(root string, patterns []string, followSymlinks bool) ([][]string, error) {
	results := make([][]string, len(patterns))
	var g errgroup.Group
	for i, pattern := range patterns {
		i, pattern := i, pattern
		g.Go(func() error {
			matches, err := globRelative(root, pattern, followSymlinks)
			if err != nil {
				return err
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// globRelative resolves one glob pattern relative to root, expanding
// directory matches to every contained file.
func globRelative(root, pattern string, followSymlinks bool) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(root, pattern)
	}

	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if !followSymlinks {
				continue
			}
			info, err = os.Stat(m)
			if err != nil {
				continue
			}
		}
		if info.IsDir() {
			err := filepath.Walk(m, func(p string, fi os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !fi.IsDir() {
					out = append(out, p)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
