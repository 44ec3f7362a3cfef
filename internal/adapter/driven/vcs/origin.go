// Package vcs discovers the GitHub repository behind a project's origin remote
// by reading the git configuration directly.
package vcs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

const (
	githubHost    = "github.com"
	originSection = `remote "origin"`
)

// Compile-time interface satisfaction checks.
var (
	_ driven.RemoteLocator = (*OriginLocator)(nil)
	_ driven.RemoteLocator = Fixed{}
)

// OriginLocator reads <project>/.git/config and parses the origin URL.
type OriginLocator struct {
	projectDir string
}

// NewOriginLocator creates a locator for the project rooted at projectDir.
func NewOriginLocator(projectDir string) *OriginLocator {
	return &OriginLocator{projectDir: projectDir}
}

// Origin returns the repository the origin remote points at. A project
// without a git directory, without an origin, or whose origin is not hosted on
// github.com yields ErrNoGitHubRemote.
func (l *OriginLocator) Origin(context.Context) (model.Repository, error) {
	configPath, err := l.configPath()
	if err != nil {
		return model.Repository{}, err
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		Loose:                   true,
		SkipUnrecognizableLines: true,
	}, configPath)
	if err != nil {
		return model.Repository{}, fmt.Errorf("reading git config %s: %w", configPath, err)
	}

	section, err := cfg.GetSection(originSection)
	if err != nil {
		return model.Repository{}, fmt.Errorf("%w: %s has no origin", driven.ErrNoGitHubRemote, configPath)
	}

	raw := section.Key("url").String()
	if raw == "" {
		return model.Repository{}, fmt.Errorf("%w: origin has no url", driven.ErrNoGitHubRemote)
	}

	return ParseRemoteURL(raw)
}

// configPath resolves the git config file, following the gitdir pointer
// that worktrees and submodules leave in a .git file.
func (l *OriginLocator) configPath() (string, error) {
	dotGit := filepath.Join(l.projectDir, ".git")

	info, err := os.Stat(dotGit)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s is not a git repository", driven.ErrNoGitHubRemote, l.projectDir)
	}
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", dotGit, err)
	}

	gitDir := dotGit
	if !info.IsDir() {
		gitDir, err = readGitDirPointer(dotGit)
		if err != nil {
			return "", err
		}
	}

	// Linked worktrees keep the shared config under commondir.
	if data, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		common := strings.TrimSpace(string(data))
		if !filepath.IsAbs(common) {
			common = filepath.Join(gitDir, common)
		}
		gitDir = common
	}

	return filepath.Join(gitDir, "config"), nil
}

func readGitDirPointer(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%w: %s is not a gitdir pointer", driven.ErrNoGitHubRemote, path)
	}

	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, nil
}

// ParseRemoteURL extracts owner and name from a github.com remote URL in
// HTTPS, ssh:// or SCP-like (git@github.com:owner/name.git) form.
func ParseRemoteURL(raw string) (model.Repository, error) {
	raw = strings.TrimSpace(raw)

	host, path, err := splitRemote(raw)
	if err != nil {
		return model.Repository{}, err
	}

	if !strings.EqualFold(host, githubHost) && !strings.EqualFold(host, "www."+githubHost) {
		return model.Repository{}, fmt.Errorf("%w: %s is hosted on %s", driven.ErrNoGitHubRemote, raw, host)
	}

	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return model.Repository{}, fmt.Errorf("%w: cannot parse owner/name from %s", driven.ErrNoGitHubRemote, raw)
	}

	return model.Repository{Owner: parts[0], Name: parts[1]}, nil
}

func splitRemote(raw string) (host, path string, err error) {
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("%w: invalid remote url %q: %v", driven.ErrNoGitHubRemote, raw, err)
		}
		return u.Hostname(), u.Path, nil
	}

	// SCP-like syntax: [user@]host:path
	hostPart, path, ok := strings.Cut(raw, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: unrecognized remote url %q", driven.ErrNoGitHubRemote, raw)
	}
	if i := strings.LastIndex(hostPart, "@"); i >= 0 {
		hostPart = hostPart[i+1:]
	}
	return hostPart, path, nil
}

// Fixed is a RemoteLocator for an explicitly configured repository.
type Fixed model.Repository

// Origin returns the configured repository.
func (f Fixed) Origin(context.Context) (model.Repository, error) {
	repo := model.Repository(f)
	if err := repo.Validate(); err != nil {
		return model.Repository{}, fmt.Errorf("%w: %v", driven.ErrNoGitHubRemote, err)
	}
	return repo, nil
}
