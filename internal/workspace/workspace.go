// Package workspace manages isolated per-request directories. Every request
// gets one directory under a common root; all intermediate and output
// artifacts live there and the whole tree is removed when the request ends.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Manager struct {
	root string
}

// NewManager ensures the root directory exists and returns a manager for it.
func NewManager(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{root: abs}, nil
}

func (m *Manager) Root() string { return m.root }

// Create allocates the directory for one request. The caller owns it until
// Destroy is called.
func (m *Manager) Create(requestID string) (string, error) {
	if requestID == "" {
		return "", fmt.Errorf("empty request id")
	}
	dir := filepath.Join(m.root, requestID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", requestID, err)
	}
	return dir, nil
}

// Destroy removes a workspace tree. It is idempotent: destroying an already
// absent workspace is not an error. Paths outside the managed root are
// rejected.
func (m *Manager) Destroy(dir string) error {
	rel, err := filepath.Rel(m.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to destroy %s: outside workspace root", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("destroy workspace: %w", err)
	}
	return nil
}
