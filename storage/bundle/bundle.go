// Package bundle moves content between instances as a tar archive.
//
// A bundle holds one regular file per block, named
// blocks/<path-escaped CID>, plus an optional index.json listing the
// blocks and any labels. Export output depends only on the set of CIDs
// and their content: entries are sorted and headers carry no host
// metadata. The index is informational; Import ignores it and validates
// every block through the store it writes to.
package bundle

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// FormatVersion is written to index.json.
const FormatVersion = 2

const (
	blocksDir = "blocks/"
	indexName = "index.json"
)

// Store is what Export reads from and Import writes to.
// *instance.Instance implements it.
type Store interface {
	Get(ctx context.Context, id cid.CID) (storage.Result, bool, error)
	Put(ctx context.Context, id cid.CID, data []byte, opts ...storage.PutOption) error
}

type ExportOptions struct {
	// Labels names CIDs in index.json. The labelled CIDs need not be
	// part of the bundle.
	Labels map[string]cid.CID

	IncludeIndex bool
}

// Export reads each id through store and writes the bundle to w.
// Duplicate ids are written once. Content that no backend holds fails
// the export with an error wrapping storage.ErrNotFound.
func Export(ctx context.Context, w io.Writer, store Store, ids []cid.CID, opts ExportOptions) error {
	if store == nil {
		return errors.New("bundle: nil store")
	}
	sorted, err := sortedUnique(ids)
	if err != nil {
		return err
	}
	var labels []indexLabel
	if opts.IncludeIndex {
		if labels, err = sortedLabels(opts.Labels); err != nil {
			return err
		}
	}

	aw := archiveWriter{tw: tar.NewWriter(w)}
	idx := index{Version: FormatVersion, Labels: labels}
	for _, id := range sorted {
		res, ok, err := store.Get(ctx, id)
		if err != nil {
			return aw.abort(err)
		}
		if !ok {
			return aw.abort(fmt.Errorf("bundle: %s: %w", id, storage.ErrNotFound))
		}
		if err := aw.add(blocksDir+url.PathEscape(id.String()), res.Data); err != nil {
			return aw.abort(err)
		}
		idx.Blocks = append(idx.Blocks, indexBlock{CID: id.String(), Size: len(res.Data)})
	}
	if opts.IncludeIndex {
		b, err := json.Marshal(idx)
		if err != nil {
			return aw.abort(err)
		}
		if err := aw.add(indexName, append(b, '\n')); err != nil {
			return aw.abort(err)
		}
	}
	return aw.tw.Close()
}

func sortedUnique(ids []cid.CID) ([]cid.CID, error) {
	out := make([]cid.CID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			return nil, storage.ErrInvalidCID
		}
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b cid.CID) int { return strings.Compare(a.String(), b.String()) })
	return slices.CompactFunc(out, cid.CID.Equal), nil
}

func sortedLabels(labels map[string]cid.CID) ([]indexLabel, error) {
	out := make([]indexLabel, 0, len(labels))
	for name, id := range labels {
		if name == "" {
			return nil, errors.New("bundle: empty label name")
		}
		if id.IsZero() {
			return nil, fmt.Errorf("bundle: label %q: %w", name, storage.ErrInvalidCID)
		}
		out = append(out, indexLabel{Name: name, CID: id.String()})
	}
	slices.SortFunc(out, func(a, b indexLabel) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

type ImportOptions struct {
	// IgnoreUnknown skips entries outside blocks/ and non-regular
	// entries instead of failing.
	IgnoreUnknown bool
}

// Import writes every block in the bundle read from r to store and
// returns their CIDs in archive order. Each block is validated by
// store.Put; the first failure stops the import and the blocks before
// it stay written.
func Import(ctx context.Context, r io.Reader, store Store, opts ImportOptions) ([]cid.CID, error) {
	if store == nil {
		return nil, errors.New("bundle: nil store")
	}
	tr := tar.NewReader(r)
	seen := make(map[cid.CID]bool)
	var imported []cid.CID
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name, ok := entryName(h.Name)
		if !ok {
			return imported, fmt.Errorf("bundle: invalid entry path %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg || name == indexName || !strings.HasPrefix(name, blocksDir) {
			if h.Typeflag != tar.TypeReg && !opts.IgnoreUnknown {
				return imported, fmt.Errorf("bundle: unexpected entry type %q for %s", h.Typeflag, name)
			}
			if name != indexName && !opts.IgnoreUnknown {
				return imported, fmt.Errorf("bundle: unknown entry %s", name)
			}
			continue
		}

		id, err := blockCID(strings.TrimPrefix(name, blocksDir))
		if err != nil {
			return imported, err
		}
		if seen[id] {
			return imported, fmt.Errorf("bundle: duplicate block %s", id)
		}
		seen[id] = true

		data, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if err := store.Put(ctx, id, data); err != nil {
			return imported, fmt.Errorf("bundle: %s: %w", id, err)
		}
		imported = append(imported, id)
	}
}

func blockCID(escaped string) (cid.CID, error) {
	s, err := url.PathUnescape(escaped)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %q", storage.ErrInvalidCID, escaped)
	}
	id, err := cid.Parse(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", storage.ErrInvalidCID, err)
	}
	return id, nil
}

// entryName normalizes a tar entry name and rejects empty, absolute
// and parent-relative paths.
func entryName(name string) (string, bool) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(name, "./")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}
	return path.Clean(name), true
}

type index struct {
	Version int          `json:"version"`
	Blocks  []indexBlock `json:"blocks"`
	Labels  []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

var epoch = time.Unix(0, 0).UTC()

type archiveWriter struct {
	tw *tar.Writer
}

func (a archiveWriter) add(name string, data []byte) error {
	err := a.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  epoch,
	})
	if err != nil {
		return err
	}
	_, err = a.tw.Write(data)
	return err
}

func (a archiveWriter) abort(err error) error {
	_ = a.tw.Close()
	return err
}
