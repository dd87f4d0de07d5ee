package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/filex"
)

// copyBufferSize is the chunk size used when spooling uploads to disk.
const copyBufferSize = 1 << 20

// FS stores blobs as flat files in a root directory created on first use.
// Writes go through a temporary file renamed into place, so a failed upload
// never leaves a corrupt object visible under its final name. FS supports no
// signed URLs and no multipart; those operations return ErrUnsupported and
// every transfer runs through the streaming path.
type FS struct {
	root string
}

// NewFS creates the root directory if missing and returns a filesystem
// backend rooted there.
func NewFS(root string) (*FS, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	return &FS{root: abs}, nil
}

// path maps an id to its file path, rejecting ids that could escape the
// root. Ids arrive from request URLs as well as from our own generator.
func (f *FS) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: invalid object id", common.ErrorValidation)
	}
	return filepath.Join(f.root, id), nil
}

func (f *FS) Ping(ctx context.Context) error {
	fi, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", f.root)
	}
	return nil
}

func (f *FS) Length(ctx context.Context, id string) (int64, error) {
	p, err := f.path(id)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("stat %s: %w", id, err)
	}
	return fi.Size(), nil
}

func (f *FS) GetStream(ctx context.Context, id string) (io.ReadCloser, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return file, nil
}

func (f *FS) Set(ctx context.Context, id string, r io.Reader) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.CopyBuffer(tmp, r, make([]byte, copyBufferSize)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", id, err)
	}

	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", id, err)
	}
	return nil
}

func (f *FS) Del(ctx context.Context, id string) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

func (f *FS) SignedDownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	return "", ErrUnsupported
}

func (f *FS) SignedUploadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	return "", ErrUnsupported
}

func (f *FS) CreateMultipartUpload(ctx context.Context, id string) (string, error) {
	return "", ErrUnsupported
}

func (f *FS) UploadPart(ctx context.Context, id, uploadID string, number int32, r io.Reader, size int64) (string, error) {
	return "", ErrUnsupported
}

func (f *FS) SignedPartURL(ctx context.Context, id, uploadID string, number int32, expiry time.Duration) (string, error) {
	return "", ErrUnsupported
}

func (f *FS) CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []CompletedPart) error {
	return ErrUnsupported
}

func (f *FS) AbortMultipartUpload(ctx context.Context, id, uploadID string) error {
	return ErrUnsupported
}
