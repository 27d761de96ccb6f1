// Package assets stores and removes the binary attachments a course can
// carry. Two backends are provided: a local filesystem store and an SFTP
// store for deployments where assets live on a separate media host.
package assets

import (
	"context"
	"fmt"

	"github.com/ednovo/shelf-api/internal/config"
)

// AssetStore persists binary attachments under a per-course prefix.
type AssetStore interface {
	// Save writes data as fileName under the given prefix, creating the
	// prefix directory if it does not exist yet.
	Save(ctx context.Context, prefix, fileName string, data []byte) error

	// DeletePrefix removes the prefix directory and every file in it.
	// Removing a prefix that does not exist is not an error.
	DeletePrefix(ctx context.Context, prefix string) error
}

// New creates the asset store selected by the configuration.
func New(cfg config.AssetsConfig) (AssetStore, error) {
	switch cfg.Backend {
	case "filesystem":
		return NewFilesystemStore(cfg.Dir), nil
	case "sftp":
		return NewSFTPStore(cfg.SFTP)
	}
	return nil, fmt.Errorf("unknown asset backend %q", cfg.Backend)
}
