package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// RCTokenKey is the rc file entry holding the token.
const RCTokenKey = "GITHUB_TOKEN"

// ErrRCFileNotFound is wrapped into ErrTokenNotFound when the rc file is
// missing, so callers can tell a missing file from a missing key.
var ErrRCFileNotFound = errors.New("rc file not found")

// Compile-time interface satisfaction check.
var _ driven.TokenSource = (*RCFile)(nil)

// RCFile reads KEY=VALUE pairs from a dotenv-style file such as
// ~/.gitnotifyrc. The file is re-read on every call so edits take effect
// without a restart.
type RCFile struct {
	path string
}

// NewRCFile creates a source reading path.
func NewRCFile(path string) *RCFile {
	return &RCFile{path: path}
}

// Path returns the file this source reads.
func (r *RCFile) Path() string {
	return r.path
}

// Token returns the GITHUB_TOKEN entry.
func (r *RCFile) Token(context.Context) (string, error) {
	values, err := godotenv.Read(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %w: %s", driven.ErrTokenNotFound, ErrRCFileNotFound, r.path)
	}
	if err != nil {
		return "", fmt.Errorf("parsing rc file %s: %w", r.path, err)
	}

	token := strings.TrimSpace(values[RCTokenKey])
	if token == "" {
		return "", fmt.Errorf("%w: %s has no %s entry", driven.ErrTokenNotFound, r.path, RCTokenKey)
	}
	return token, nil
}
