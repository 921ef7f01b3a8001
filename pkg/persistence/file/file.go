// Package file provides file-based persistence for planning sessions.
// Each session is stored as one JSON document, which keeps local
// development and single-node deployments dependency-free.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/planward/planward/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the
// file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence layer rooted at the given
// path. A file:// scheme prefix is tolerated and stripped.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence,
// there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}
