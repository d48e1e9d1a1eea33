package svgpng

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gofrs/flock"
)

const (
	workspacePattern = "svg_convert_*"
	profileDirName   = "browser_data"
	wrapperFileName  = "temp_conversion.html"
)

// errProfileLocked is returned when another session holds the profile.
var errProfileLocked = errors.New("browser profile is in use by another session")

// Workspace is the private temporary directory tree owned by one
// process: a browser profile directory and the HTML wrapper file.
//
// A Workspace exists from [NewWorkspace] until [Workspace.Close].
type Workspace struct {
	// Root is the workspace directory.
	Root string
	// ProfileDir holds the browser profile of the current session.
	ProfileDir string

	mu     sync.Mutex
	closed bool
}

// NewWorkspace creates a new workspace under parent. An empty parent
// uses the system temporary directory.
func NewWorkspace(parent string) (*Workspace, error) {
	root, err := os.MkdirTemp(parent, workspacePattern)
	if err != nil {
		return nil, fmt.Errorf("svgpng: creating workspace: %w", err)
	}
	return &Workspace{
		Root:       root,
		ProfileDir: filepath.Join(root, profileDirName),
	}, nil
}

// WrapperPath is the fixed location of the intermediate HTML document.
func (w *Workspace) WrapperPath() string {
	return filepath.Join(w.Root, wrapperFileName)
}

// WriteWrapper writes html to [Workspace.WrapperPath], replacing any
// previous content, and returns the absolute path.
func (w *Workspace) WriteWrapper(html string) (string, error) {
	if err := w.checkClosed(); err != nil {
		return "", err
	}
	path, err := filepath.Abs(w.WrapperPath())
	if err != nil {
		return "", fmt.Errorf("svgpng: resolving path: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		return "", fmt.Errorf("svgpng: writing wrapper: %w", err)
	}
	return path, nil
}

// RemoveWrapper deletes the wrapper file if it exists.
func (w *Workspace) RemoveWrapper() error {
	err := os.Remove(w.WrapperPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("svgpng: removing wrapper: %w", err)
	}
	return nil
}

// PrepareProfile recreates an empty profile directory and takes an
// advisory lock on it. The returned release func drops the lock.
func (w *Workspace) PrepareProfile() (release func() error, err error) {
	if err := w.checkClosed(); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(w.Root, profileDirName+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking profile: %w", err)
	}
	if !locked {
		return nil, errProfileLocked
	}

	// A leftover profile may survive on Windows, where removal is skipped.
	_ = os.RemoveAll(w.ProfileDir)
	if err := os.MkdirAll(w.ProfileDir, 0o700); err != nil {
		lock.Unlock() //nolint:errcheck
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return lock.Unlock, nil
}

// RemoveProfile deletes the profile directory. It is a no-op on
// Windows, where the browser may keep files open after exit.
func (w *Workspace) RemoveProfile() error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.RemoveAll(w.ProfileDir); err != nil {
		return fmt.Errorf("svgpng: removing profile: %w", err)
	}
	return nil
}

// Close recursively removes the workspace. Close is idempotent.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("svgpng: removing workspace: %w", err)
	}
	return nil
}

func (w *Workspace) checkClosed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}
