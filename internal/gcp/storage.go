package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/parallaxdata/transcript-ingester/internal/store"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSStore implements store.ObjectStore on top of a Cloud Storage
// bucket. Tags are carried as object metadata; listings page through
// the bucket lazily via the storage iterator.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCSStore creates a store backed by the named bucket, using
// application-default credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name must be provided to create a storage adapter")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

func (s *GCSStore) Bucket() string {
	return s.name
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Head(ctx context.Context, key string) (store.ObjectInfo, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return store.ObjectInfo{}, classify("head", key, err)
	}
	return store.ObjectInfo{
		Key:         attrs.Name,
		SizeBytes:   attrs.Size,
		ContentType: attrs.ContentType,
	}, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (store.Object, error) {
	reader, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return store.Object{}, classify("get", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return store.Object{}, classify("get", key, err)
	}
	return store.Object{
		ObjectInfo: store.ObjectInfo{
			Key:         key,
			SizeBytes:   int64(len(data)),
			ContentType: reader.Attrs.ContentType,
		},
		Data: data,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string, tags map[string]string) error {
	writer := s.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	if len(tags) > 0 {
		writer.Metadata = tags
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return classify("put", key, err)
	}
	if err := writer.Close(); err != nil {
		return classify("put", key, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) store.ObjectIterator {
	return &gcsIterator{
		prefix: prefix,
		it:     s.bucket.Objects(ctx, &storage.Query{Prefix: prefix}),
	}
}

func (s *GCSStore) Tags(ctx context.Context, key string) (map[string]string, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return nil, classify("tags", key, err)
	}
	return attrs.Metadata, nil
}

type gcsIterator struct {
	prefix string
	it     *storage.ObjectIterator
}

func (g *gcsIterator) Next() (store.ObjectInfo, error) {
	attrs, err := g.it.Next()
	if err == iterator.Done {
		return store.ObjectInfo{}, iterator.Done
	}
	if err != nil {
		return store.ObjectInfo{}, classify("list", g.prefix, err)
	}
	return store.ObjectInfo{
		Key:         attrs.Name,
		SizeBytes:   attrs.Size,
		ContentType: attrs.ContentType,
	}, nil
}

// classify maps a Cloud Storage error onto the closed store.ErrorKind
// set. A missing bucket is deliberately KindOther rather than
// KindNotFound: KindNotFound means "this object does not exist", which
// callers treat as a normal condition, while a missing bucket is a
// connectivity or setup failure that must abort the run.
func classify(op, key string, err error) error {
	kind := store.KindOther
	var gerr *googleapi.Error
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		kind = store.KindNotFound
	case errors.As(err, &gerr):
		switch {
		case gerr.Code == http.StatusNotFound:
			kind = store.KindNotFound
		case gerr.Code == http.StatusForbidden || gerr.Code == http.StatusUnauthorized:
			kind = store.KindAccessDenied
		case gerr.Code == http.StatusBadRequest:
			// Metadata and tag validation rejections surface as 400.
			kind = store.KindAccessDenied
		case gerr.Code == http.StatusTooManyRequests || gerr.Code == http.StatusRequestTimeout || gerr.Code >= 500:
			kind = store.KindTransient
		}
	}
	return &store.Error{Kind: kind, Op: op, Key: key, Err: err}
}
