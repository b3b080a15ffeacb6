// Package mediastore implements a disk backed store for uploaded media
// files. Files are kept under a generated name and served back over HTTP at
// a stable public URL.
package mediastore

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store struct {
	dir     string
	urlRoot string
}

// NewStore creates a store rooted at dir. The urlRoot is the absolute URL
// prefix at which ServeHTTP is mounted.
func NewStore(dir, urlRoot string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create media directory: %w", err)
	}
	return &Store{dir: dir, urlRoot: strings.TrimSuffix(urlRoot, "/")}, nil
}

// Put stores the contents of r and returns the public URL it will be served
// at. The extension of the original filename is kept so the MIME type
// survives.
func (store *Store) Put(r io.Reader, filename string) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(filename)))
	file, err := os.CreateTemp(store.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	if err := os.Rename(file.Name(), filepath.Join(store.dir, name)); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return store.urlRoot + "/" + name, nil
}

// Remove deletes the file behind a public URL. Unknown URLs are a no-op.
func (store *Store) Remove(publicURL string) error {
	name, ok := store.nameFromURL(publicURL)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(store.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (store *Store) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	name := path.Base(req.URL.Path)
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		http.NotFound(res, req)
		return
	}
	file, err := os.Open(filepath.Join(store.dir, name))
	if err != nil {
		http.NotFound(res, req)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		http.NotFound(res, req)
		return
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		res.Header().Set("Content-Type", t)
	}
	http.ServeContent(res, req, name, info.ModTime(), file)
}

func (store *Store) nameFromURL(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, store.urlRoot+"/") {
		return "", false
	}
	name := path.Base(strings.TrimPrefix(publicURL, store.urlRoot+"/"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}
