// Package memory is an in-process map backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// Backend stores copies of every value it is given.
type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ storage.Getter  = (*Backend)(nil)
	_ storage.Putter  = (*Backend)(nil)
	_ storage.Deleter = (*Backend)(nil)
)

func New() *Backend {
	return &Backend{data: map[string][]byte{}}
}

func (b *Backend) Get(ctx context.Context, id cid.CID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, storage.ErrInvalidCID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[id.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *Backend) Put(ctx context.Context, id cid.CID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	b.mu.Lock()
	b.data[id.String()] = append([]byte(nil), data...)
	b.mu.Unlock()
	return nil
}

func (b *Backend) Delete(ctx context.Context, id cid.CID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id.IsZero() {
		return storage.ErrInvalidCID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[id.String()]; !ok {
		return storage.ErrNotFound
	}
	delete(b.data, id.String())
	return nil
}

// Len returns the number of stored entries.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Keys returns the stored CIDs in string order.
func (b *Backend) Keys() []cid.CID {
	b.mu.RLock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	sort.Strings(keys)
	out := make([]cid.CID, 0, len(keys))
	for _, k := range keys {
		if c, err := cid.Parse(k); err == nil {
			out = append(out, c)
		}
	}
	return out
}
