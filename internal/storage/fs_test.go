package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/driftfile/internal/common"
)

func newFSBackend(t *testing.T) (*FS, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "uploads")
	fs, err := NewFS(root)
	require.NoError(t, err)
	return fs, root
}

func TestFS_SetGetRoundTrip(t *testing.T) {
	fs, _ := newFSBackend(t)
	ctx := context.Background()

	sizes := []int{0, 1, 1000, 100_000}
	for _, size := range sizes {
		payload := bytes.Repeat([]byte{0xAB}, size)
		id, err := common.MakeRandHexString(8)
		require.NoError(t, err)

		require.NoError(t, fs.Set(ctx, id, bytes.NewReader(payload)))

		rc, err := fs.GetStream(ctx, id)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		assert.Equal(t, payload, got, "size %d", size)

		n, err := fs.Length(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(size), n)
	}
}

func TestFS_GetStreamRestartsPerCall(t *testing.T) {
	fs, _ := newFSBackend(t)
	ctx := context.Background()

	require.NoError(t, fs.Set(ctx, "aabbccdd00112233", bytes.NewReader([]byte("same bytes"))))

	for i := 0; i < 2; i++ {
		rc, err := fs.GetStream(ctx, "aabbccdd00112233")
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "same bytes", string(got))
	}
}

func TestFS_SetFailingReaderLeavesNothingBehind(t *testing.T) {
	fs, root := newFSBackend(t)
	ctx := context.Background()

	srcErr := errors.New("stream died")
	src := io.MultiReader(bytes.NewReader(bytes.Repeat([]byte{1}, 10)), &erringReader{err: srcErr})

	err := fs.Set(ctx, "deadbeefdeadbeef", src)
	assert.ErrorIs(t, err, srcErr, "the reader's error must come back")

	_, err = fs.GetStream(ctx, "deadbeefdeadbeef")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial or temp files may remain")
}

func TestFS_DelIdempotent(t *testing.T) {
	fs, _ := newFSBackend(t)
	ctx := context.Background()

	require.NoError(t, fs.Set(ctx, "0123456789abcdef", bytes.NewReader([]byte("x"))))

	require.NoError(t, fs.Del(ctx, "0123456789abcdef"))
	require.NoError(t, fs.Del(ctx, "0123456789abcdef"), "second delete must not error")

	_, err := fs.Length(ctx, "0123456789abcdef")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFS_MissingObject(t *testing.T) {
	fs, _ := newFSBackend(t)
	ctx := context.Background()

	_, err := fs.Length(ctx, "feedfacefeedface")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = fs.GetStream(ctx, "feedfacefeedface")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFS_RejectsTraversalIds(t *testing.T) {
	fs, _ := newFSBackend(t)
	ctx := context.Background()

	bad := []string{"", "../evil", "a/b", `a\b`, "..", "x..y"}
	for _, id := range bad {
		err := fs.Set(ctx, id, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, common.ErrorValidation, "id %q", id)

		_, err = fs.GetStream(ctx, id)
		assert.ErrorIs(t, err, common.ErrorValidation, "id %q", id)
	}
}

func TestFS_UnsupportedCapabilities(t *testing.T) {
	fs, _ := newFSBackend(t)
	ctx := context.Background()

	_, err := fs.SignedDownloadURL(ctx, "id", 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = fs.SignedUploadURL(ctx, "id", 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = fs.CreateMultipartUpload(ctx, "id")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = fs.UploadPart(ctx, "id", "u", 1, bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = fs.SignedPartURL(ctx, "id", "u", 1, 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.ErrorIs(t, fs.CompleteMultipartUpload(ctx, "id", "u", nil), ErrUnsupported)
	assert.ErrorIs(t, fs.AbortMultipartUpload(ctx, "id", "u"), ErrUnsupported)
}

func TestFS_Ping(t *testing.T) {
	fs, root := newFSBackend(t)
	ctx := context.Background()

	require.NoError(t, fs.Ping(ctx))

	require.NoError(t, os.RemoveAll(root))
	assert.Error(t, fs.Ping(ctx))
}

type erringReader struct {
	err error
}

func (e *erringReader) Read([]byte) (int, error) {
	return 0, e.err
}
