package multipart

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/ece"
	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/storage"
)

// -------- test fakes --------

type uploadedPart struct {
	uploadID string
	number   int32
	body     []byte
}

type fakeBackend struct {
	storage.Backend

	createErr   error
	uploadErr   error
	completeErr error

	nextUploadID int
	uploads      []string
	parts        []uploadedPart
	completed    map[string][]storage.CompletedPart
	aborted      []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{completed: make(map[string][]storage.CompletedPart)}
}

func (f *fakeBackend) CreateMultipartUpload(ctx context.Context, id string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextUploadID++
	uploadID := fmt.Sprintf("upload-%d", f.nextUploadID)
	f.uploads = append(f.uploads, uploadID)
	return uploadID, nil
}

func (f *fakeBackend) UploadPart(ctx context.Context, id, uploadID string, number int32, r io.Reader, size int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(body)) != size {
		return "", fmt.Errorf("declared size %d, read %d", size, len(body))
	}
	f.parts = append(f.parts, uploadedPart{uploadID: uploadID, number: number, body: body})
	return fmt.Sprintf("etag-%d", number), nil
}

func (f *fakeBackend) SignedPartURL(ctx context.Context, id, uploadID string, number int32, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://store.example/%s/%s/%d", id, uploadID, number), nil
}

func (f *fakeBackend) CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []storage.CompletedPart) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed[uploadID] = parts
	return nil
}

func (f *fakeBackend) AbortMultipartUpload(ctx context.Context, id, uploadID string) error {
	f.aborted = append(f.aborted, uploadID)
	return nil
}

// -------- helpers --------

func newTestCoordinator(t *testing.T, backend storage.Backend) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(backend, ece.EncryptedRecordSize, time.Hour, logging.Nop())
	if err != nil {
		t.Fatalf("NewCoordinator error: %v", err)
	}
	return c
}

func randomBody(t *testing.T, n int) []byte {
	t.Helper()
	body := make([]byte, n)
	if _, err := rand.Read(body); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return body
}

// -------- tests --------

func TestNewCoordinator_PartSizeTooSmall(t *testing.T) {
	_, err := NewCoordinator(newFakeBackend(), ece.EncryptedRecordSize-1, time.Hour, logging.Nop())
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestUpload_SinglePart(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)

	body := randomBody(t, 1000)
	if err := c.Upload(context.Background(), "file1", bytes.NewReader(body)); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if len(backend.parts) != 1 || backend.parts[0].number != 1 {
		t.Fatalf("unexpected parts: %+v", backend.parts)
	}
	if !bytes.Equal(backend.parts[0].body, body) {
		t.Fatal("uploaded part does not match body")
	}
	completed := backend.completed["upload-1"]
	if len(completed) != 1 || completed[0].Tag != "etag-1" {
		t.Fatalf("unexpected completion: %+v", completed)
	}
	if len(backend.aborted) != 0 {
		t.Fatalf("unexpected aborts: %v", backend.aborted)
	}
}

func TestUpload_SplitsIntoWholeRecordParts(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)

	// one full encrypted record plus a short second one
	body := randomBody(t, ece.EncryptedRecordSize+100)
	if err := c.Upload(context.Background(), "file1", bytes.NewReader(body)); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if len(backend.parts) != 2 {
		t.Fatalf("want 2 parts, got %d", len(backend.parts))
	}
	if len(backend.parts[0].body) != ece.EncryptedRecordSize {
		t.Fatalf("first part is %d bytes, want %d", len(backend.parts[0].body), ece.EncryptedRecordSize)
	}
	if len(backend.parts[1].body) != 100 {
		t.Fatalf("last part is %d bytes, want 100", len(backend.parts[1].body))
	}
	var joined []byte
	for _, p := range backend.parts {
		joined = append(joined, p.body...)
	}
	if !bytes.Equal(joined, body) {
		t.Fatal("concatenated parts do not reproduce the body")
	}
	if len(backend.completed["upload-1"]) != 2 {
		t.Fatalf("unexpected completion: %+v", backend.completed)
	}
}

func TestUpload_EmptyBody(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)

	if err := c.Upload(context.Background(), "file1", bytes.NewReader(nil)); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if len(backend.parts) != 1 || len(backend.parts[0].body) != 0 {
		t.Fatalf("want a single empty part, got %+v", backend.parts)
	}
	if len(backend.completed["upload-1"]) != 1 {
		t.Fatal("upload was not completed")
	}
}

func TestUpload_PartErrorAborts(t *testing.T) {
	backend := newFakeBackend()
	backend.uploadErr = errBoom{}
	c := newTestCoordinator(t, backend)

	err := c.Upload(context.Background(), "file1", bytes.NewReader(randomBody(t, 10)))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("want part upload error, got %v", err)
	}
	if len(backend.aborted) != 1 {
		t.Fatalf("upload was not aborted: %v", backend.aborted)
	}
	if len(backend.completed) != 0 {
		t.Fatal("failed upload must not complete")
	}
}

func TestUpload_ReaderErrorAborts(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)

	r := io.MultiReader(bytes.NewReader(randomBody(t, 10)), failingReader{err: errBoom{}})
	err := c.Upload(context.Background(), "file1", r)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("want reader error, got %v", err)
	}
	if len(backend.aborted) != 1 {
		t.Fatalf("upload was not aborted: %v", backend.aborted)
	}
}

func TestUpload_CompleteErrorAborts(t *testing.T) {
	backend := newFakeBackend()
	backend.completeErr = errBoom{}
	c := newTestCoordinator(t, backend)

	err := c.Upload(context.Background(), "file1", bytes.NewReader(randomBody(t, 10)))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("want completion error, got %v", err)
	}
	if len(backend.aborted) != 1 {
		t.Fatalf("upload was not aborted: %v", backend.aborted)
	}
}

func TestUpload_CanceledContextAborts(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Upload(ctx, "file1", bytes.NewReader(randomBody(t, 10)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(backend.aborted) != 1 {
		t.Fatalf("upload was not aborted: %v", backend.aborted)
	}
}

func TestClientDriven_FullLifecycle(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)
	ctx := context.Background()

	size := int64(2*ece.EncryptedRecordSize + 100)
	sess, err := c.Create(ctx, "file1", size)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if sess.PartCount() != 3 {
		t.Fatalf("want 3 parts, got %d", sess.PartCount())
	}
	if got, ok := c.Session("file1"); !ok || got != sess {
		t.Fatal("session not registered")
	}

	url, err := c.PartURL(ctx, sess, 2)
	if err != nil {
		t.Fatalf("PartURL error: %v", err)
	}
	if !strings.Contains(url, sess.UploadID) {
		t.Fatalf("unexpected url: %q", url)
	}
	if _, err := c.PartURL(ctx, sess, 4); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("part beyond count should be rejected, got %v", err)
	}

	if err := c.Finish(ctx, sess); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("incomplete session must not finish, got %v", err)
	}

	for _, n := range []int32{2, 3, 1} {
		if err := c.Ack(sess, n, fmt.Sprintf("t%d", n)); err != nil {
			t.Fatalf("Ack(%d) error: %v", n, err)
		}
	}

	if err := c.Finish(ctx, sess); err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	completed := backend.completed[sess.UploadID]
	if len(completed) != 3 || completed[0].Tag != "t1" || completed[2].Tag != "t3" {
		t.Fatalf("unexpected completion: %+v", completed)
	}
	if _, ok := c.Session("file1"); ok {
		t.Fatal("finished session still registered")
	}
}

func TestCreate_DuplicateSession(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)
	ctx := context.Background()

	if _, err := c.Create(ctx, "file1", 100); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	_, err := c.Create(ctx, "file1", 100)
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
	// the second backend upload must not leak
	if len(backend.aborted) != 1 || backend.aborted[0] != "upload-2" {
		t.Fatalf("second upload not aborted: %v", backend.aborted)
	}
}

func TestAbort_InvalidatesSession(t *testing.T) {
	backend := newFakeBackend()
	c := newTestCoordinator(t, backend)
	ctx := context.Background()

	sess, err := c.Create(ctx, "file1", 100)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	c.Abort(ctx, sess)

	if !sess.Failed() {
		t.Fatal("aborted session should be failed")
	}
	if _, ok := c.Session("file1"); ok {
		t.Fatal("aborted session still registered")
	}
	if len(backend.aborted) != 1 {
		t.Fatalf("backend upload not aborted: %v", backend.aborted)
	}
	if err := c.Ack(sess, 1, "t"); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("aborted session must reject acks, got %v", err)
	}
}

func TestExpired_ListsOverdueSessions(t *testing.T) {
	backend := newFakeBackend()
	c, err := NewCoordinator(backend, ece.EncryptedRecordSize, time.Minute, logging.Nop())
	if err != nil {
		t.Fatalf("NewCoordinator error: %v", err)
	}
	ctx := context.Background()

	sess, err := c.Create(ctx, "file1", 100)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if got := c.Expired(time.Now()); len(got) != 0 {
		t.Fatalf("fresh session reported expired: %+v", got)
	}
	overdue := c.Expired(time.Now().Add(2 * time.Minute))
	if len(overdue) != 1 || overdue[0] != sess {
		t.Fatalf("unexpected expired sessions: %+v", overdue)
	}
}

func TestPartURL_ExpiredSession(t *testing.T) {
	backend := newFakeBackend()
	c, err := NewCoordinator(backend, ece.EncryptedRecordSize, -time.Minute, logging.Nop())
	if err != nil {
		t.Fatalf("NewCoordinator error: %v", err)
	}
	ctx := context.Background()

	sess, err := c.Create(ctx, "file1", 100)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := c.PartURL(ctx, sess, 1); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expired session must reject part urls, got %v", err)
	}
}

// -------- error helpers --------

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
