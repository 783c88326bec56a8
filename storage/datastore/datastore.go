// Package datastore adapts any go-datastore implementation into a
// storage backend.
package datastore

import (
	"context"
	"errors"
	"net/url"

	ds "github.com/ipfs/go-datastore"
	dsns "github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// DefaultNamespace prefixes every key written by a Backend.
const DefaultNamespace = "astrobase"

// Backend stores content under /<namespace>/<cid> in the wrapped
// datastore. CID strings are path-escaped so prefixes containing '/'
// stay a single key component.
type Backend struct {
	store ds.Datastore
}

var (
	_ storage.Getter  = (*Backend)(nil)
	_ storage.Putter  = (*Backend)(nil)
	_ storage.Deleter = (*Backend)(nil)
)

// New wraps store. An empty namespace uses DefaultNamespace.
func New(store ds.Datastore, namespace string) *Backend {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Backend{store: dsns.Wrap(store, ds.NewKey(namespace))}
}

func key(id cid.CID) ds.Key {
	return ds.KeyWithNamespaces([]string{url.PathEscape(id.String())})
}

func (b *Backend) Get(ctx context.Context, id cid.CID) ([]byte, error) {
	if id.IsZero() {
		return nil, storage.ErrInvalidCID
	}
	data, err := b.store.Get(ctx, key(id))
	if errors.Is(err, ds.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

func (b *Backend) Put(ctx context.Context, id cid.CID, data []byte) error {
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	return b.store.Put(ctx, key(id), append([]byte(nil), data...))
}

// Delete returns ErrNotFound for absent keys, which go-datastore itself
// deletes without complaint.
func (b *Backend) Delete(ctx context.Context, id cid.CID) error {
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	k := key(id)
	ok, err := b.store.Has(ctx, k)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return b.store.Delete(ctx, k)
}

// Has checks existence without fetching the value.
func (b *Backend) Has(ctx context.Context, id cid.CID) (bool, error) {
	if id.IsZero() {
		return false, storage.ErrInvalidCID
	}
	return b.store.Has(ctx, key(id))
}

// Keys lists the stored CIDs. Keys that do not parse as CIDs are
// skipped.
func (b *Backend) Keys(ctx context.Context) ([]cid.CID, error) {
	res, err := b.store.Query(ctx, dsq.Query{KeysOnly: true, Orders: []dsq.Order{dsq.OrderByKey{}}})
	if err != nil {
		return nil, err
	}
	defer res.Close()

	entries, err := res.Rest()
	if err != nil {
		return nil, err
	}

	var out []cid.CID
	for _, e := range entries {
		s, err := url.PathUnescape(ds.RawKey(e.Key).BaseNamespace())
		if err != nil {
			continue
		}
		c, err := cid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
