package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ednovo/shelf-api/internal/config"
)

func TestFilesystemStoreSaveAndDelete(t *testing.T) {
	t.Parallel()

	store := NewFilesystemStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "course-1", "syllabus.pdf", []byte("pdf bytes")))
	require.NoError(t, store.Save(ctx, "course-1", "cover.png", []byte("png bytes")))

	data, err := os.ReadFile(filepath.Join(store.baseDir, "course-1", "syllabus.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	require.NoError(t, store.DeletePrefix(ctx, "course-1"))
	_, err = os.Stat(filepath.Join(store.baseDir, "course-1"))
	assert.True(t, os.IsNotExist(err))

	// Deleting an absent prefix is fine
	assert.NoError(t, store.DeletePrefix(ctx, "course-1"))
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := NewFilesystemStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "../outside", "f.txt", nil))
	assert.Error(t, store.Save(ctx, "course-1", "../../etc/passwd", nil))
	assert.Error(t, store.Save(ctx, "", "f.txt", nil))
	assert.Error(t, store.DeletePrefix(ctx, "a/b"))
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	fs, err := New(config.AssetsConfig{Backend: "filesystem", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FilesystemStore{}, fs)

	remote, err := New(config.AssetsConfig{
		Backend: "sftp",
		SFTP:    config.SFTPConfig{HostKey: testHostKey},
	})
	require.NoError(t, err)
	assert.IsType(t, &SFTPStore{}, remote)

	_, err = New(config.AssetsConfig{Backend: "s3"})
	assert.Error(t, err)
}
