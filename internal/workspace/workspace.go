// Package workspace manages per-request artifact directories.
//
// Each fulfillment request gets a private directory the generator writes
// into, so concurrent requests can never observe each other's artifacts.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Workspace describes one request-scoped artifact directory.
type Workspace struct {
	RequestID string
	Dir       string
}

// CleanupReport summarizes a cleanup run.
type CleanupReport struct {
	DeletedDirs int
}

// Manager governs artifact workspace lifecycle.
type Manager struct {
	baseDir string
	now     func() time.Time
}

// NewManager creates a filesystem-backed workspace manager rooted at baseDir.
func NewManager(baseDir string) (*Manager, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("workspace base directory is empty")
	}

	return &Manager{
		baseDir: filepath.Clean(trimmed),
		now:     time.Now,
	}, nil
}

// Create initializes a workspace directory for requestID. The directory must
// not already exist; a collision means the request ID is not unique.
func (m *Manager) Create(ctx context.Context, requestID string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}

	path, err := m.path(requestID)
	if err != nil {
		return Workspace{}, err
	}

	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("create workspace base directory: %w", err)
	}

	if err := os.Mkdir(path, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("create workspace for request %q: %w", requestID, err)
	}

	return Workspace{RequestID: requestID, Dir: path}, nil
}

// Remove deletes a workspace and everything in it. Called after the artifact
// has been read (or the request failed) so nothing survives one request.
func (m *Manager) Remove(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := m.path(requestID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove workspace for request %q: %w", requestID, err)
	}
	return nil
}

// Cleanup removes workspace directories older than olderThan based on
// directory modification time. A backstop for workspaces orphaned by crashes.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Duration) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, err
	}
	if olderThan <= 0 {
		return CleanupReport{}, fmt.Errorf("olderThan must be positive")
	}

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return CleanupReport{}, nil
		}
		return CleanupReport{}, fmt.Errorf("read workspace base directory: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	report := CleanupReport{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.baseDir, entry.Name())); err != nil {
			return report, fmt.Errorf("remove stale workspace %q: %w", entry.Name(), err)
		}
		report.DeletedDirs++
	}
	return report, nil
}

// path validates the request ID and resolves its directory. IDs must not be
// able to escape the base directory.
func (m *Manager) path(requestID string) (string, error) {
	if requestID == "" {
		return "", fmt.Errorf("request ID is empty")
	}
	if strings.ContainsAny(requestID, `/\`) || requestID == "." || requestID == ".." {
		return "", fmt.Errorf("invalid request ID %q", requestID)
	}
	return filepath.Join(m.baseDir, requestID), nil
}
