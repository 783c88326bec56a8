// Package localfs is a directory-backed storage backend.
package localfs

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// Backend stores each CID's content in its own file under root:
//
//	<root>/<shard>/<cid>
//
// The shard is the first two data characters of the CID string. Writes
// go to a temporary file that is renamed into place, so a reader sees
// either the previous content or the new content, never a torn write.
// This implementation never uses the network.
type Backend struct {
	root string
}

var (
	_ storage.Getter  = (*Backend)(nil)
	_ storage.Putter  = (*Backend)(nil)
	_ storage.Deleter = (*Backend)(nil)
)

// New constructs a backend rooted at root. The directory will be
// created if needed.
func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Backend{root: root}, nil
}

// Root returns the backend's directory.
func (b *Backend) Root() string { return b.root }

func (b *Backend) Get(ctx context.Context, id cid.CID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, storage.ErrInvalidCID
	}
	data, err := os.ReadFile(b.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put writes data for id, replacing any previous content. Mutable
// schemes rely on the replacement; for immutable CIDs the content is
// identical anyway.
func (b *Backend) Put(ctx context.Context, id cid.CID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id.IsZero() {
		return storage.ErrInvalidCID
	}

	path := b.pathFor(id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *Backend) Delete(ctx context.Context, id cid.CID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	err := os.Remove(b.pathFor(id))
	if err != nil && os.IsNotExist(err) {
		return storage.ErrNotFound
	}
	return err
}

// Has reports whether a file exists for id without reading it.
func (b *Backend) Has(id cid.CID) bool {
	if id.IsZero() {
		return false
	}
	_, err := os.Stat(b.pathFor(id))
	return err == nil
}

func (b *Backend) pathFor(id cid.CID) string {
	s := id.String()
	name := url.PathEscape(s)
	data := s[strings.LastIndexByte(s, '1')+1:]
	if len(data) < 2 {
		return filepath.Join(b.root, name)
	}
	return filepath.Join(b.root, data[:2], name)
}
