package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// TestStore is an in-memory Store for tests.
type TestStore struct {
	mu      sync.Mutex
	objects map[string]*testObject
}

type testObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewTestStore returns a TestStore seeded with the provided objects keyed by name.
func NewTestStore(objects map[string][]byte) *TestStore {
	ts := &TestStore{objects: make(map[string]*testObject)}
	for name, data := range objects {
		ts.objects[ts.IDFromName(name)] = &testObject{data: data, modified: time.Now()}
	}
	return ts
}

func (ts *TestStore) IDFromName(name string) string {
	return "test://storage/" + name
}

func (ts *TestStore) Put(name string, data []byte, contentType string, meta map[string]string) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	id := ts.IDFromName(name)
	ts.objects[id] = &testObject{data: append([]byte(nil), data...), contentType: contentType, modified: time.Now()}
	return id, nil
}

func (ts *TestStore) PutReader(name string, r io.ReadSeeker, size int64, contentType string, meta map[string]string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return ts.Put(name, data, contentType, meta)
}

func (ts *TestStore) Get(id string) ([]byte, http.Header, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	o, ok := ts.objects[id]
	if !ok {
		return nil, nil, ErrNoObject
	}
	h := http.Header{}
	if o.contentType != "" {
		h.Set("Content-Type", o.contentType)
	}
	h.Set("Content-Length", strconv.Itoa(len(o.data)))
	return o.data, h, nil
}

func (ts *TestStore) GetReader(id string) (io.ReadCloser, http.Header, error) {
	data, h, err := ts.Get(id)
	if err != nil {
		return nil, nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), h, nil
}

func (ts *TestStore) Head(id string) (*ObjectInfo, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	o, ok := ts.objects[id]
	if !ok {
		return nil, ErrNoObject
	}
	return &ObjectInfo{Size: int64(len(o.data)), ContentType: o.contentType, LastModified: o.modified}, nil
}

func (ts *TestStore) Delete(id string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.objects, id)
	return nil
}

func (ts *TestStore) ExpiringURL(id string, expiration time.Duration) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.objects[id]; !ok {
		return "", ErrNoObject
	}
	return fmt.Sprintf("%s?expires=%d", id, int64(expiration/time.Second)), nil
}

func (ts *TestStore) ExpiringPutURL(name, contentType string, expiration time.Duration) (string, string, error) {
	id := ts.IDFromName(name)
	return fmt.Sprintf("%s?put&expires=%d", id, int64(expiration/time.Second)), id, nil
}

var _ Store = (*TestStore)(nil)
