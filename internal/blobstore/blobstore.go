// Package blobstore implements the content-addressed blob layer: bytes in,
// keyed by their SHA-256 hash, idempotent put, streaming get.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"modelibr/internal/apperr"
)

// ObjectStore is the subset of objectstore.Client the blob layer drives.
// Declared here, satisfied implicitly by *objectstore.Client, so this
// package's tests can substitute an in-memory store.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)
	Move(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
}

// Store is the content-addressed blob store.
type Store struct {
	objects ObjectStore
	root    string
}

// New constructs a Store backed by the given object store client.
func New(objects ObjectStore) *Store {
	return NewWithRoot(objects, "")
}

// NewWithRoot constructs a Store whose keys live under the given prefix
// (BLOB_STORE_ROOT), letting one bucket host several deployments.
func NewWithRoot(objects ObjectStore, root string) *Store {
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return &Store{objects: objects, root: root}
}

func (s *Store) blobKey(hash string) string {
	return fmt.Sprintf("%sblobs/%s/%s/%s", s.root, hash[0:2], hash[2:4], hash)
}

func (s *Store) stagingKey(id string) string {
	return fmt.Sprintf("%sstaging/%s", s.root, id)
}

// Put streams data into the store, computing its SHA-256 hash. If a blob
// already exists under that hash the write is skipped and wasNew is false;
// callers MUST treat wasNew=false as informational, not an error.
func (s *Store) Put(ctx context.Context, data []byte, contentType string) (hash string, bytesWritten int64, wasNew bool, err error) {
	sum := sha256.Sum256(data)
	hash = hex.EncodeToString(sum[:])
	key := s.blobKey(hash)

	exists, err := s.objects.Exists(ctx, key)
	if err != nil {
		return "", 0, false, apperr.Wrap(apperr.CodeStorageIO, "checking existing blob", err)
	}
	if exists {
		return hash, int64(len(data)), false, nil
	}

	staged := s.stagingKey(uuid.NewString())
	if err := s.objects.Put(ctx, staged, data, contentType); err != nil {
		return "", 0, false, apperr.Wrap(apperr.CodeStorageIO, "staging blob upload", err)
	}

	stagedData, err := s.objects.Get(ctx, staged)
	if err != nil {
		return "", 0, false, apperr.Wrap(apperr.CodeStorageIO, "reading staged blob back", err)
	}
	restagedSum := sha256.Sum256(stagedData)
	if hex.EncodeToString(restagedSum[:]) != hash {
		_ = s.objects.Delete(ctx, staged)
		return "", 0, false, apperr.New(apperr.CodeIntegrity, "staged blob hash mismatch, retry upload")
	}

	if err := s.objects.Move(ctx, staged, key); err != nil {
		return "", 0, false, apperr.Wrap(apperr.CodeStorageIO, "publishing blob", err)
	}

	return hash, int64(len(data)), true, nil
}

// Get opens a readable stream for the blob with the given hash.
func (s *Store) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	exists, err := s.objects.Exists(ctx, s.blobKey(hash))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "checking blob existence", err)
	}
	if !exists {
		return nil, apperr.New(apperr.CodeNotFound, "blob not found")
	}
	rc, err := s.objects.GetStream(ctx, s.blobKey(hash))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "opening blob", err)
	}
	return rc, nil
}

// Exists reports whether a blob with the given hash is stored.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	exists, err := s.objects.Exists(ctx, s.blobKey(hash))
	if err != nil {
		return false, apperr.Wrap(apperr.CodeStorageIO, "checking blob existence", err)
	}
	return exists, nil
}

// ComputeHash hashes data without storing it, used by callers that need the
// content hash before deciding whether to call Put (e.g. dedup lookups).
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReadAllHashing reads r fully and returns both its bytes and SHA-256 hash in
// one pass, avoiding a second buffer copy for large uploads.
func ReadAllHashing(r io.Reader) (data []byte, hash string, err error) {
	var buf bytes.Buffer
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(&buf, h), r); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), hex.EncodeToString(h.Sum(nil)), nil
}
