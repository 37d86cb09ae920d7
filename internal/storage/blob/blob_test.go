package blob

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

// pngHeader is enough for type detection.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func newStore(t *testing.T, max int64) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), max)
	require.NoError(t, err)
	return s
}

func TestPutStoresByContentHash(t *testing.T) {
	s := newStore(t, 1<<20)
	data := append(append([]byte{}, pngHeader...), []byte("pixels")...)

	obj, err := s.Put(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	sum := blake3.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:])+".png", obj.Key)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(len(data)), obj.Size)

	_, err = os.Stat(filepath.Join(s.dir, obj.Key[0:2], obj.Key[2:4], obj.Key))
	require.NoError(t, err)

	again, err := s.Put(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, obj.Key, again.Key)

	f, got, err := s.Open(obj.Key)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, data, body)
	assert.Equal(t, "image/png", got.ContentType)

	require.NoError(t, s.Delete(obj.Key))
	_, _, err = s.Open(obj.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutRejectsNonImages(t *testing.T) {
	s := newStore(t, 1<<20)

	_, err := s.Put(context.Background(), strings.NewReader("<html><body>hi</body></html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPutRejectsOversize(t *testing.T) {
	s := newStore(t, 8)

	_, err := s.Put(context.Background(), bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newStore(t, 1<<20)

	_, _, err := s.Open("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, s.Delete("nope.png"), ErrInvalidKey)
}
