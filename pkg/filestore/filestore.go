package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/igolaizola/rapbattle/pkg/filestore/local"
	"github.com/igolaizola/rapbattle/pkg/filestore/s3"
	"github.com/igolaizola/rapbattle/pkg/filestore/tgstore"
	"github.com/igolaizola/rapbattle/pkg/storage"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
}

// Store archives pipeline artifacts under the id of the run that produced
// them.
type Store struct {
	fs fs
}

// Archive uploads each file as <id>/<base name>. Empty paths are skipped.
func (s *Store) Archive(ctx context.Context, id string, paths ...string) ([]string, error) {
	var names []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		name := Name(id, p)
		if err := s.fs.Upload(ctx, p, name); err != nil {
			return names, fmt.Errorf("filestore: couldn't archive %s: %w", p, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// Restore downloads an archived file of a run to a local path.
func (s *Store) Restore(ctx context.Context, id, base, dst string) error {
	if err := s.fs.Download(ctx, dst, Name(id, base)); err != nil {
		return fmt.Errorf("filestore: couldn't restore %s: %w", base, err)
	}
	return nil
}

// New creates a file store. An empty type returns nil, meaning archiving is
// disabled.
func New(typ, conn, proxy string, debug bool, store *storage.Store) (*Store, error) {
	var fs fs
	switch typ {
	case "":
		return nil, nil
	case "telegram":
		if store == nil {
			return nil, errors.New("filestore: telegram requires a database to keep file references")
		}
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid telegram connection string %q", conn)
		}
		token := split[0]
		chat, err := strconv.ParseInt(split[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filestore: invalid telegram chat id %q: %w", split[1], err)
		}
		candidate, err := tgstore.New(token, chat, proxy, debug, store)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "s3":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		key := auth[0]
		secret := auth[1]
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		bucket := loc[0]
		region := loc[1]
		candidate, err := s3.New(key, secret, region, bucket, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		if conn == "" {
			return nil, errors.New("filestore: missing local folder")
		}
		fs = local.New(conn, debug)
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

// Name returns the archive name of a file produced by a run.
func Name(id, p string) string {
	return path.Join(id, filepath.Base(p))
}
