package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matperez/coderag/internal/store"
)

// ChangeSet is Phase A's output: three disjoint sets of relative paths.
type ChangeSet struct {
	Added   []string
	Changed []string
	Deleted []string
}

// Empty reports whether the change set requires no work at all.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Deleted) == 0
}

// detectChanges compares the filesystem to the store's persisted (mtime,
// content_hash) per path and classifies every path as added, changed, or
// deleted. When fastMtime is true, a file whose mtime and size are
// unchanged is assumed unchanged without reading its bytes. When hint is
// non-empty, only those paths are checked (the watcher's debounced event
// set) and only a hinted path that is known but no longer on disk is
// reported deleted, mirroring the teacher's ChangeDetector hint
// optimization; an empty hint triggers a full walk and full deletion
// detection.
func detectChanges(ctx context.Context, root string, ignore *IgnoreRules, maxSize int64, fastMtime bool, s *store.Store, hint []string) (ChangeSet, []string, error) {
	var result ChangeSet

	var diskPaths []string
	var err error
	if len(hint) > 0 {
		diskPaths = hint
	} else {
		diskPaths, err = walkEligibleFiles(root, ignore, maxSize)
		if err != nil {
			return result, nil, fmt.Errorf("engine: walk %s: %w", root, err)
		}
	}

	known, err := s.GetAllFiles(ctx)
	if err != nil {
		return result, nil, fmt.Errorf("engine: load known files: %w", err)
	}
	byPath := make(map[string]store.File, len(known))
	for _, f := range known {
		byPath[f.Path] = f
	}

	seen := make(map[string]bool, len(diskPaths))

	for _, rel := range diskPaths {
		select {
		case <-ctx.Done():
			return result, nil, ctx.Err()
		default:
		}

		seen[rel] = true
		abs := filepath.Join(root, rel)
		info, statErr := os.Stat(abs)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				if _, wasKnown := byPath[rel]; wasKnown {
					result.Deleted = append(result.Deleted, rel)
				}
			}
			continue
		}

		existing, wasKnown := byPath[rel]
		if !wasKnown {
			result.Added = append(result.Added, rel)
			continue
		}

		if fastMtime && existing.Size == info.Size() && existing.Mtime.Equal(info.ModTime().Truncate(time.Second)) {
			continue // unchanged, mtime fast path
		}

		hash, hashErr := hashFile(abs)
		if hashErr != nil {
			continue // io_error: skip file, do not abort the batch
		}
		if hash != existing.ContentHash {
			result.Changed = append(result.Changed, rel)
		}
	}

	if len(hint) == 0 {
		for _, f := range known {
			if !seen[f.Path] {
				result.Deleted = append(result.Deleted, f.Path)
			}
		}
	}

	return result, diskPaths, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
