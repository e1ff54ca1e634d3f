package interchange

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"envsync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Remote is the object storage mirror of a Store.
type Remote struct {
	Client storage.Client
	Bucket string
	Prefix string
	Region string
}

// Store addresses interchange files by table name.
type Store struct {
	folder     string
	compressed bool
	nulls      map[string]struct{}
	remote     *Remote
	log        *zap.Logger
}

// NewStore creates a store over cfg.Folder. remote may be nil.
func NewStore(cfg Config, remote *Remote, log *zap.Logger) (*Store, error) {
	switch cfg.Compression {
	case "", "none", "zstd":
	default:
		return nil, fmt.Errorf("unsupported interchange compression %q", cfg.Compression)
	}

	nulls := make(map[string]struct{}, len(cfg.NullTokens))
	for _, tok := range cfg.NullTokens {
		if tok != "" {
			nulls[tok] = struct{}{}
		}
	}

	return &Store{
		folder:     cfg.Folder,
		compressed: cfg.Compression == "zstd",
		nulls:      nulls,
		remote:     remote,
		log:        log,
	}, nil
}

// FileName returns the file name used for table.
func (s *Store) FileName(table string) string {
	if s.compressed {
		return table + ".csv.zst"
	}
	return table + ".csv"
}

// Path returns the local path of the file for table.
func (s *Store) Path(table string) string {
	return filepath.Join(s.folder, s.FileName(table))
}

// Create opens the file for table for writing, replacing any previous one.
// The folder is created when missing.
func (s *Store) Create(table string) (*Writer, error) {
	if err := os.MkdirAll(s.folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", s.folder, err)
	}
	f, err := os.Create(s.Path(table))
	if err != nil {
		return nil, fmt.Errorf("failed to create interchange file for %s: %w", table, err)
	}
	w, err := newWriter(f, s.compressed)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Open opens the file for table. When the local file is missing and a remote
// is configured it is fetched first. A file found nowhere yields an error
// matching fs.ErrNotExist.
func (s *Store) Open(ctx context.Context, table string) (*Reader, error) {
	p := s.Path(table)
	if _, err := os.Stat(p); err != nil {
		if !os.IsNotExist(err) || s.remote == nil {
			return nil, fmt.Errorf("interchange file for %s: %w", table, err)
		}
		if err := s.Fetch(ctx, table); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("interchange file for %s: %w", table, err)
	}
	return newReader(f, s.compressed, s.nulls)
}

// Publish uploads the local file for table to the remote.
// It is a no-op without a remote.
func (s *Store) Publish(ctx context.Context, table string) error {
	if s.remote == nil {
		return nil
	}

	f, err := os.Open(s.Path(table))
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", table, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if err := storage.EnsureBucket(ctx, s.remote.Client, s.remote.Bucket, s.remote.Region); err != nil {
		return err
	}

	object := s.objectName(table)
	_, err = s.remote.Client.PutObject(ctx, s.remote.Bucket, object, f, info.Size(), minio.PutObjectOptions{
		ContentType: s.contentType(),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", object, err)
	}

	s.log.Debug("Interchange file published", zap.String("table", table), zap.String("object", object), zap.Int64("bytes", info.Size()))
	return nil
}

// Fetch downloads the remote file for table into the local folder.
func (s *Store) Fetch(ctx context.Context, table string) error {
	if s.remote == nil {
		return fmt.Errorf("interchange file for %s: %w", table, fs.ErrNotExist)
	}

	object := s.objectName(table)
	obj, err := s.remote.Client.GetObject(ctx, s.remote.Bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return s.fetchErr(table, object, err)
	}
	defer obj.Close()

	if err := os.MkdirAll(s.folder, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", s.folder, err)
	}

	tmp, err := os.CreateTemp(s.folder, s.FileName(table)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	// Minio reports a missing object on the first read.
	if _, err := io.Copy(tmp, obj); err != nil {
		_ = tmp.Close()
		return s.fetchErr(table, object, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path(table)); err != nil {
		return err
	}

	s.log.Debug("Interchange file fetched", zap.String("table", table), zap.String("object", object))
	return nil
}

func (s *Store) fetchErr(table, object string, err error) error {
	if storage.IsNotFound(err) {
		return fmt.Errorf("interchange file for %s: %w", table, fs.ErrNotExist)
	}
	return fmt.Errorf("failed to download %s: %w", object, err)
}

func (s *Store) objectName(table string) string {
	return path.Join(s.remote.Prefix, s.FileName(table))
}

func (s *Store) contentType() string {
	if s.compressed {
		return "application/zstd"
	}
	return "text/csv"
}
