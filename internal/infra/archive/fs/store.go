// Package fs implements a filesystem-backed archive store. Each object is
// one file under the root: a JSON header line carrying the metadata,
// followed by the raw payload.
package fs

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stablecore/internal/infra/archive/core"
)

// Store implements core.Store on the local filesystem. Writes go through a
// temp file and a rename, so readers never observe a half-written object.
type Store struct {
	root string
}

// New returns a filesystem-backed archive rooted at path, creating it if
// needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./archivedata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Driver returns the archive driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// header is the metadata line written before the payload.
type header struct {
	ContentType string    `json:"content_type,omitempty"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h header) info(key string) core.Info {
	return core.Info{Key: key, Size: h.Size, ContentType: h.ContentType, ETag: h.ETag, LastModified: h.CreatedAt}
}

func (s *Store) objectPath(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(key, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put stores a new object. The payload is buffered to compute size and
// checksum before the header is written.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return core.Info{}, err
	}
	if _, err := os.Stat(path); err == nil {
		return core.Info{}, fmt.Errorf("archive object %s already exists", key)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(payload)
	hdr := header{
		ContentType: opts.ContentType,
		ETag:        hex.EncodeToString(sum[:]),
		Size:        int64(len(payload)),
		CreatedAt:   time.Now().UTC(),
	}
	line, err := json.Marshal(hdr)
	if err != nil {
		return core.Info{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(line, '\n')); err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return core.Info{}, err
	}
	return hdr.info(key), nil
}

// Get returns object metadata and a reader positioned at the payload.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return core.Info{}, nil, err
	}
	br := bufio.NewReader(file)
	hdr, err := readHeader(br)
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, fmt.Errorf("read %s: %w", key, err)
	}
	return hdr.info(key), payloadReader{Reader: br, closer: file}, nil
}

// List walks the root and reads only the header line of each object.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		hdr, err := readHeader(bufio.NewReader(file))
		_ = file.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		infos = append(infos, hdr.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func readHeader(br *bufio.Reader) (header, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		return header{}, err
	}
	var hdr header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return header{}, err
	}
	return hdr, nil
}

// payloadReader keeps the buffered position while closing the backing file.
type payloadReader struct {
	io.Reader
	closer io.Closer
}

func (r payloadReader) Close() error { return r.closer.Close() }
