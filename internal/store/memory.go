package store

import (
	"context"
	"sort"
	"sync"

	"google.golang.org/api/iterator"
)

// MemoryStore is an in-memory ObjectStore used by package tests across
// the repository. Listings are served in lexical key order in pages of
// PageSize entries, so pagination handling gets exercised without a real
// bucket. The fault-injection hooks return classified errors in place of
// the real operation when set.
type MemoryStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]memObject

	// PageSize bounds how many keys one listing page returns. Zero
	// means a single page.
	PageSize int

	// PutCalls counts every Put attempt, including rejected ones.
	PutCalls int

	// Fault injection. A non-nil return replaces the real operation.
	HeadErr func(key string) error
	GetErr  func(key string) error
	PutErr  func(key string, tagged bool) error
	ListErr error
}

type memObject struct {
	data        []byte
	contentType string
	tags        map[string]string
}

// NewMemoryStore returns an empty MemoryStore identified by bucket.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]memObject),
	}
}

func (s *MemoryStore) Bucket() string {
	return s.bucket
}

// Seed stores an object directly, bypassing hooks and counters.
func (s *MemoryStore) Seed(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{data: append([]byte(nil), data...), contentType: contentType}
}

// Data returns the stored bytes for key and whether the key exists.
func (s *MemoryStore) Data(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

func (s *MemoryStore) Head(ctx context.Context, key string) (ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HeadErr != nil {
		if err := s.HeadErr(key); err != nil {
			return ObjectInfo{}, err
		}
	}
	obj, ok := s.objects[key]
	if !ok {
		return ObjectInfo{}, &Error{Kind: KindNotFound, Op: "head", Key: key}
	}
	return s.infoLocked(key, obj), nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		if err := s.GetErr(key); err != nil {
			return Object{}, err
		}
	}
	obj, ok := s.objects[key]
	if !ok {
		return Object{}, &Error{Kind: KindNotFound, Op: "get", Key: key}
	}
	return Object{
		ObjectInfo: s.infoLocked(key, obj),
		Data:       append([]byte(nil), obj.data...),
	}, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutCalls++
	if s.PutErr != nil {
		if err := s.PutErr(key, len(tags) > 0); err != nil {
			return err
		}
	}
	stored := memObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
	}
	if len(tags) > 0 {
		stored.tags = make(map[string]string, len(tags))
		for k, v := range tags {
			stored.tags[k] = v
		}
	}
	s.objects[key] = stored
	return nil
}

func (s *MemoryStore) Tags(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: "tags", Key: key}
	}
	out := make(map[string]string, len(obj.tags))
	for k, v := range obj.tags {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ObjectIterator {
	return &memoryIterator{store: s, prefix: prefix}
}

func (s *MemoryStore) infoLocked(key string, obj memObject) ObjectInfo {
	return ObjectInfo{
		Key:         key,
		SizeBytes:   int64(len(obj.data)),
		ContentType: obj.contentType,
	}
}

// memoryIterator pages through a lexically sorted snapshot of the keys
// under prefix, fetching one page at a time under the store lock.
type memoryIterator struct {
	store  *MemoryStore
	prefix string

	page    []ObjectInfo
	after   string
	drained bool
	failed  error
}

func (it *memoryIterator) Next() (ObjectInfo, error) {
	if it.failed != nil {
		return ObjectInfo{}, it.failed
	}
	if len(it.page) == 0 {
		if it.drained {
			return ObjectInfo{}, iterator.Done
		}
		if err := it.fetchPage(); err != nil {
			it.failed = err
			return ObjectInfo{}, err
		}
		if len(it.page) == 0 {
			return ObjectInfo{}, iterator.Done
		}
	}
	info := it.page[0]
	it.page = it.page[1:]
	return info, nil
}

func (it *memoryIterator) fetchPage() error {
	it.store.mu.Lock()
	defer it.store.mu.Unlock()
	if it.store.ListErr != nil {
		return it.store.ListErr
	}

	var keys []string
	for key := range it.store.objects {
		if len(key) >= len(it.prefix) && key[:len(it.prefix)] == it.prefix && key > it.after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	size := it.store.PageSize
	if size <= 0 || size > len(keys) {
		size = len(keys)
	}
	if size < len(keys) {
		keys = keys[:size]
	} else {
		it.drained = true
	}
	for _, key := range keys {
		it.page = append(it.page, it.store.infoLocked(key, it.store.objects[key]))
		it.after = key
	}
	if len(keys) == 0 {
		it.drained = true
	}
	return nil
}
