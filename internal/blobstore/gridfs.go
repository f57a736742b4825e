package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const uploadChunk = 255 * 1024

// GridFSStore keeps blobs in a MongoDB GridFS bucket. Files are addressed
// by their logical path (e.g. "pdfs/<id>.pdf") and served back through the
// app's /files route, so the returned URL is baseURL + escaped path.
type GridFSStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewGridFSStore(db *mongo.Database, baseURL string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket, baseURL: baseURL}, nil
}

// Connect dials MongoDB and returns the database the bucket lives in.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("blobstore: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("blobstore: ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

func (s *GridFSStore) Upload(ctx context.Context, path string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	// replace any previous file under the same path
	if err := s.Delete(ctx, path); err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	us, err := s.bucket.OpenUploadStream(path)
	if err != nil {
		return "", fmt.Errorf("blobstore: open upload %s: %w", path, err)
	}

	var written int64
	buf := make([]byte, uploadChunk)
	for {
		if err := ctx.Err(); err != nil {
			us.Abort()
			return "", err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := us.Write(buf[:n]); werr != nil {
				us.Abort()
				return "", fmt.Errorf("blobstore: write %s: %w", path, werr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, size)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			us.Abort()
			return "", fmt.Errorf("blobstore: read upload body: %w", rerr)
		}
	}

	if err := us.Close(); err != nil {
		return "", fmt.Errorf("blobstore: close upload %s: %w", path, err)
	}
	return s.URL(path), nil
}

func (s *GridFSStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	ds, err := s.bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: open %s: %w", path, err)
	}
	return ds, nil
}

func (s *GridFSStore) Delete(ctx context.Context, path string) error {
	cursor, err := s.bucket.Find(bson.M{"filename": path})
	if err != nil {
		return fmt.Errorf("blobstore: find %s: %w", path, err)
	}
	defer cursor.Close(ctx)

	found := false
	for cursor.Next(ctx) {
		var file struct {
			ID any `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("blobstore: decode file doc: %w", err)
		}
		if err := s.bucket.Delete(file.ID); err != nil {
			return fmt.Errorf("blobstore: delete %s: %w", path, err)
		}
		found = true
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// URL builds the public URL a stored path is served from.
func (s *GridFSStore) URL(path string) string {
	return s.baseURL + "/files/" + url.PathEscape(path)
}
