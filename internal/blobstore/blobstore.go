// Package blobstore stores the uploaded PDF and image files. Only the admin
// upload handlers and the file-serving route touch it, the core never sees
// file bytes.
package blobstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blobstore: file not found")

// ProgressFunc receives upload progress. total is -1 when unknown.
type ProgressFunc func(written, total int64)

type Store interface {
	// Upload writes the blob under path and returns a URL it can be
	// fetched from.
	Upload(ctx context.Context, path string, r io.Reader, size int64, progress ProgressFunc) (string, error)
	// Open streams the blob back.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
