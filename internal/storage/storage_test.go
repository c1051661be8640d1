package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
	var _ storage.Storage = (*storage.MemoryStorage)(nil)
}

func TestNewStorage(t *testing.T) {
	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "tape"}, zap.NewNop())
	assert.Error(t, err)
}

func TestInvoiceArchiveKey(t *testing.T) {
	assert.Equal(t, "org_a/invoices/INV-0007-20260101T120000.xlsx",
		storage.InvoiceArchiveKey("org_a", "INV-0007", "20260101T120000"))
	assert.Equal(t, "org___b/invoices/INV_7-x.xlsx", storage.InvoiceArchiveKey("org_../b", "INV/7", "x"))

	key := storage.InvoiceArchiveKey("../../etc", "passwd", "1")
	assert.NotContains(t, key, "..")
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "archive")
	ls, err := storage.NewLocalStorage(base)
	require.NoError(t, err)

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	ctx := context.Background()
	key := storage.InvoiceArchiveKey("org_a", "INV-0001", "1")
	path, err := ls.Put(ctx, key, "application/octet-stream", []byte("workbook"))
	require.NoError(t, err)
	assert.Equal(t, key, path)

	rc, err := ls.Get(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))

	require.NoError(t, ls.Delete(ctx, path))
	_, err = ls.Get(ctx, path)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, ls.Delete(ctx, path))
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = ls.Put(context.Background(), "../outside.xlsx", "", []byte("x"))
	assert.Error(t, err)
	_, err = ls.Get(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestMemoryStorage(t *testing.T) {
	m := storage.NewMemoryStorage()
	ctx := context.Background()

	buf := []byte("snapshot")
	path, err := m.Put(ctx, "org_a/invoices/a.xlsx", "", buf)
	require.NoError(t, err)
	buf[0] = 'X'

	rc, err := m.Get(ctx, path)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "snapshot", string(data))
	assert.Equal(t, []string{"org_a/invoices/a.xlsx"}, m.Keys())

	require.NoError(t, m.Delete(ctx, path))
	_, err = m.Get(ctx, path)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, m.Keys())
}
