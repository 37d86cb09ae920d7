// Package blob stores uploaded media on disk under content-derived keys.
package blob

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"
)

var (
	ErrTooLarge        = errors.New("blob: object too large")
	ErrUnsupportedType = errors.New("blob: unsupported media type")
	ErrInvalidKey      = errors.New("blob: invalid key")
	ErrNotFound        = errors.New("blob: not found")
)

// allowedTypes maps accepted media types to key extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var keyRe = regexp.MustCompile(`^[0-9a-f]{64}\.(jpg|png|gif|webp)$`)

type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"-"`
}

type FileStore struct {
	dir      string
	maxBytes int64
}

func NewFileStore(dir string, maxBytes int64) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob.NewFileStore:%w", err)
	}
	return &FileStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *FileStore) MaxBytes() int64 { return s.maxBytes }

// Put stores the content of r. Identical content always yields the same
// key, so uploading a file twice stores it once.
func (s *FileStore) Put(ctx context.Context, r io.Reader) (*Object, error) {
	const op = "blob.FileStore.Put"

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%s:%w", op, ErrTooLarge)
	}

	mt := mimetype.Detect(data)
	ext, ok := allowedTypes[mt.String()]
	if !ok {
		return nil, fmt.Errorf("%s:%w: %s", op, ErrUnsupportedType, mt.String())
	}

	sum := blake3.Sum256(data)
	key := hex.EncodeToString(sum[:]) + ext
	path := s.path(key)

	obj := &Object{Key: key, ContentType: contentTypes[ext], Size: int64(len(data))}

	if st, err := os.Stat(path); err == nil {
		obj.ModTime = st.ModTime()
		return obj, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	obj.ModTime = time.Now()

	return obj, nil
}

// Open returns the stored object; the caller closes the file.
func (s *FileStore) Open(key string) (*os.File, *Object, error) {
	const op = "blob.FileStore.Open"

	if !keyRe.MatchString(key) {
		return nil, nil, fmt.Errorf("%s:%w", op, ErrInvalidKey)
	}

	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s:%w", op, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	return f, &Object{
		Key:         key,
		ContentType: contentTypes[filepath.Ext(key)],
		Size:        st.Size(),
		ModTime:     st.ModTime(),
	}, nil
}

func (s *FileStore) Delete(key string) error {
	const op = "blob.FileStore.Delete"

	if !keyRe.MatchString(key) {
		return fmt.Errorf("%s:%w", op, ErrInvalidKey)
	}

	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s:%w", op, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ValidKey reports whether key has the shape Put produces.
func ValidKey(key string) bool {
	return keyRe.MatchString(key)
}

// path shards objects by the first two byte pairs of the key.
func (s *FileStore) path(key string) string {
	name := strings.ToLower(key)
	return filepath.Join(s.dir, name[0:2], name[2:4], name)
}
