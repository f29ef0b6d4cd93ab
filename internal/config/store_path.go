package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matperez/coderag/internal/git"
)

// ResolveStorePath returns the SQLite database path for rootDir, honoring
// an explicit cfg.Store.Path override. With no override, the path is
// derived from a hash of the repository's worktree root under the user's
// cache directory, so two different repos never collide, the same repo
// always resolves to the same file regardless of which subdirectory it
// was opened from, and BranchScoped folds the current git branch in too.
func ResolveStorePath(cfg *Config, rootDir string) (string, error) {
	return resolveStorePath(cfg, rootDir, git.NewOperations())
}

func resolveStorePath(cfg *Config, rootDir string, ops git.Operations) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, nil
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("config: resolve root: %w", err)
	}
	absRoot = ops.GetWorktreeRoot(absRoot)

	userCache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve cache dir: %w", err)
	}

	sum := sha256.Sum256([]byte(absRoot))
	dir := filepath.Join(userCache, "coderag", hex.EncodeToString(sum[:])[:16])

	if cfg.Store.BranchScoped {
		dir = filepath.Join(dir, "branches", ops.GetCurrentBranch(absRoot))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create data dir: %w", err)
	}

	return filepath.Join(dir, "index.db"), nil
}
