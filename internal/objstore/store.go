// Package objstore is the thin policy layer over the raw object storage API:
// extension validation, collision-free object naming and the bucket/folder
// conventions of the storefront (avatars, payment proofs, product images).
package objstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ObjectGateway is the slice of the storage API used by this store.
type ObjectGateway interface {
	UploadObject(ctx context.Context, bucket, objectPath, contentType string, content io.Reader) (string, error)
	RemoveObjects(ctx context.Context, bucket string, paths []string) error
	PublicURL(storagePath string) string
}

// Store uploads into a single bucket with per-purpose folders.
type Store struct {
	objects ObjectGateway
	bucket  string
	log     *slog.Logger
}

// New constructs a Store over the named bucket.
func New(objects ObjectGateway, bucket string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{objects: objects, bucket: bucket, log: log}
}

// Upload validates the filename extension against allowedExts, stores the
// content under folder with a random object name and returns the storage
// path. The original filename only contributes its extension; object names
// are random to avoid collisions and name leaks.
func (s *Store) Upload(ctx context.Context, folder, filename, contentType string, content io.Reader, allowedExts []string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return "", fmt.Errorf("upload: filename %q has no extension", filename)
	}

	if len(allowedExts) > 0 && !contains(allowedExts, ext) {
		return "", fmt.Errorf("upload: extension %q not allowed, want one of %s", ext, strings.Join(allowedExts, ", "))
	}

	if contentType == "" {
		contentType = mime.TypeByExtension("." + ext)
	}

	objectPath := fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), ext)
	storagePath, err := s.objects.UploadObject(ctx, s.bucket, objectPath, contentType, content)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}

	s.log.InfoContext(ctx, "object uploaded", slog.String("path", storagePath))
	return storagePath, nil
}

// Delete removes one object by the storage path returned from Upload. Paths
// from other buckets are rejected.
func (s *Store) Delete(ctx context.Context, storagePath string) error {
	relative, ok := strings.CutPrefix(storagePath, s.bucket+"/")
	if !ok {
		return fmt.Errorf("delete: path %q is not in bucket %q", storagePath, s.bucket)
	}

	if err := s.objects.RemoveObjects(ctx, s.bucket, []string{relative}); err != nil {
		return fmt.Errorf("delete %s: %w", storagePath, err)
	}

	return nil
}

// URL returns the public download URL for a stored object.
func (s *Store) URL(storagePath string) string {
	return s.objects.PublicURL(storagePath)
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}

	return false
}
