package storage

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStore is a Store backed by the local filesystem. Useful for dev.
type LocalStore struct {
	path string
}

// NewLocalStore returns a Store rooted at the provided directory.
func NewLocalStore(path string) (*LocalStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: path required for local store")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{path: path}, nil
}

func (ls *LocalStore) IDFromName(name string) string {
	return "file://" + filepath.Join(ls.path, name)
}

func (ls *LocalStore) Put(name string, data []byte, contentType string, meta map[string]string) (string, error) {
	fp := filepath.Join(ls.path, name)
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fp, data, 0644); err != nil {
		return "", err
	}
	return ls.IDFromName(name), nil
}

func (ls *LocalStore) PutReader(name string, r io.ReadSeeker, size int64, contentType string, meta map[string]string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return ls.Put(name, data, contentType, meta)
}

func (ls *LocalStore) Get(id string) ([]byte, http.Header, error) {
	data, err := os.ReadFile(strings.TrimPrefix(id, "file://"))
	if os.IsNotExist(err) {
		return nil, nil, ErrNoObject
	} else if err != nil {
		return nil, nil, err
	}
	h := http.Header{}
	h.Set("Content-Length", strconv.Itoa(len(data)))
	return data, h, nil
}

func (ls *LocalStore) GetReader(id string) (io.ReadCloser, http.Header, error) {
	f, err := os.Open(strings.TrimPrefix(id, "file://"))
	if os.IsNotExist(err) {
		return nil, nil, ErrNoObject
	} else if err != nil {
		return nil, nil, err
	}
	return f, http.Header{}, nil
}

func (ls *LocalStore) Head(id string) (*ObjectInfo, error) {
	st, err := os.Stat(strings.TrimPrefix(id, "file://"))
	if os.IsNotExist(err) {
		return nil, ErrNoObject
	} else if err != nil {
		return nil, err
	}
	return &ObjectInfo{Size: st.Size(), LastModified: st.ModTime()}, nil
}

func (ls *LocalStore) Delete(id string) error {
	return os.Remove(strings.TrimPrefix(id, "file://"))
}

func (ls *LocalStore) ExpiringURL(id string, expiration time.Duration) (string, error) {
	// No signing for local files. The raw path works for dev.
	return id, nil
}

func (ls *LocalStore) ExpiringPutURL(name, contentType string, expiration time.Duration) (string, string, error) {
	id := ls.IDFromName(name)
	return id, id, nil
}

var _ Store = (*LocalStore)(nil)
