// Package store defines the object-store collaborator the ingestion
// pipeline runs against: key-based get/put/head/list/tag operations over
// a hierarchical namespace. Implementations classify provider failures
// into the closed ErrorKind set so callers never branch on
// provider-specific error strings.
package store

import "context"

// ObjectInfo is the metadata of one stored object.
type ObjectInfo struct {
	Key         string
	SizeBytes   int64
	ContentType string
}

// Object is an object's metadata together with its content.
type Object struct {
	ObjectInfo
	Data []byte
}

// ObjectIterator is a lazy, paginated listing of objects under a prefix.
// Next returns iterator.Done from google.golang.org/api/iterator once
// the listing is exhausted.
type ObjectIterator interface {
	Next() (ObjectInfo, error)
}

// ObjectStore is the set of operations the pipeline needs from a data
// lake. All errors carry an ErrorKind classification (see KindOf).
type ObjectStore interface {
	// Bucket returns the identifier of the underlying store, used in
	// manifests and logs.
	Bucket() string

	Head(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string) (Object, error)

	// Put writes data under key. tags may be nil; implementations that
	// cannot attach tags report the failure as KindAccessDenied and the
	// caller decides whether to retry untagged.
	Put(ctx context.Context, key string, data []byte, contentType string, tags map[string]string) error

	List(ctx context.Context, prefix string) ObjectIterator
	Tags(ctx context.Context, key string) (map[string]string, error)
}
