package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "/uploads/")
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "evaluations/7/plano.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/evaluations/7/plano.pdf", obj.URL)
	require.Equal(t, int64(8), obj.Size)

	data, err := os.ReadFile(filepath.Join(root, "evaluations", "7", "plano.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(context.Background(), obj.Key))
	require.ErrorIs(t, store.Delete(context.Background(), obj.Key), ErrNotFound)
}

func TestLocalStoreConfinesKeysToRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(filepath.Join(root, "blobs"), "/uploads")
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "../../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "escape.txt", obj.Key)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "blobs", "escape.txt"))
	require.NoError(t, err)
}
