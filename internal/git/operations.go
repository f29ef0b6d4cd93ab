// Package git wraps the handful of git invocations the store path
// resolver needs to make branch-scoped data directories possible.
package git

import (
	"os/exec"
	"strings"
)

// Operations is the git surface config.ResolveStorePath depends on,
// narrowed so it can be faked in tests without touching a real repo.
type Operations interface {
	// GetCurrentBranch returns the checked-out branch name, or
	// "detached-<hash>" for a detached HEAD, or "unknown" if git is
	// unavailable or projectPath isn't a repository.
	GetCurrentBranch(projectPath string) string

	// GetWorktreeRoot returns the repository's top-level directory, or
	// projectPath unchanged if it isn't inside a git repository. Used to
	// make sure two subdirectories of the same worktree hash to the same
	// data directory.
	GetWorktreeRoot(projectPath string) string
}

type gitOps struct{}

// NewOperations returns the real git.Operations, shelling out to the git
// binary on PATH.
func NewOperations() Operations {
	return &gitOps{}
}

func (g *gitOps) GetCurrentBranch(projectPath string) string {
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = projectPath
	if output, err := cmd.Output(); err == nil {
		if name := strings.TrimSpace(string(output)); name != "" {
			return name
		}
	}

	cmd = exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	if hash := strings.TrimSpace(string(output)); hash != "" {
		return "detached-" + hash
	}
	return "unknown"
}

func (g *gitOps) GetWorktreeRoot(projectPath string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		return projectPath
	}
	return strings.TrimSpace(string(output))
}
