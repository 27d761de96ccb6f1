package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore writes assets under a base directory on the local disk.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates a FilesystemStore rooted at baseDir.
func NewFilesystemStore(baseDir string) *FilesystemStore {
	return &FilesystemStore{baseDir: baseDir}
}

var _ AssetStore = (*FilesystemStore)(nil)

// Save implements AssetStore.Save
func (s *FilesystemStore) Save(_ context.Context, prefix, fileName string, data []byte) error {
	if err := validateSegment(prefix); err != nil {
		return err
	}
	if err := validateSegment(fileName); err != nil {
		return err
	}

	dir := filepath.Join(s.baseDir, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, fileName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write asset %s: %w", target, err)
	}
	return nil
}

// DeletePrefix implements AssetStore.DeletePrefix
func (s *FilesystemStore) DeletePrefix(_ context.Context, prefix string) error {
	if err := validateSegment(prefix); err != nil {
		return err
	}

	dir := filepath.Join(s.baseDir, prefix)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove asset directory %s: %w", dir, err)
	}
	return nil
}

// validateSegment rejects path segments that could escape the base
// directory.
func validateSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("asset path segment cannot be empty")
	}
	if strings.Contains(segment, "..") || strings.ContainsAny(segment, `/\`) {
		return fmt.Errorf("asset path segment %q is not allowed", segment)
	}
	return nil
}
