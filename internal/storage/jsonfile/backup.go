package jsonfile

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/order"
	"github.com/xenking/shopledger/internal/domain/product"
)

// Snapshot is the full state written by a backup.
type Snapshot struct {
	Products []product.Product
	Clients  []client.Client
	Orders   []order.Order
}

// WriteBackup writes snap as a gzip-compressed JSON document into dir and
// returns the file path. Field names match the data files so a backup can be
// unpacked by hand.
func (s *Store) WriteBackup(ctx context.Context, dir string, snap Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backups dir")
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("produits", func(e *jx.Encoder) { encodeProducts(e, snap.Products) })
		e.Field("clients", func(e *jx.Encoder) { encodeClients(e, snap.Clients) })
		e.Field("commandes", func(e *jx.Encoder) { encodeOrders(e, snap.Orders) })
	})

	path := filepath.Join(dir, "snapshot-"+s.now().Format("20060102-150405")+".json.gz")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create backup")
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	if _, err := gz.Write(e.Bytes()); err != nil {
		return "", errors.Wrap(err, "compress backup")
	}
	if err := gz.Close(); err != nil {
		return "", errors.Wrap(err, "flush backup")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close backup")
	}

	s.lg.Info("Backup written",
		zap.String("path", path),
		zap.Int("products", len(snap.Products)),
		zap.Int("clients", len(snap.Clients)),
		zap.Int("orders", len(snap.Orders)),
	)
	return path, nil
}

// ReadBackup decodes a snapshot written by WriteBackup. Unlike the data
// files, a malformed backup is an error.
func (s *Store) ReadBackup(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open backup")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "decompress backup")
	}

	skip := func(err error) {
		s.lg.Warn("Skipping invalid record in backup", zap.String("path", path), zap.Error(err))
	}
	var snap Snapshot
	if err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "produits":
			snap.Products, err = decodeProducts(d, skip)
		case "clients":
			snap.Clients, err = decodeClients(d, skip)
		case "commandes":
			snap.Orders, err = decodeOrders(d, skip)
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode backup")
	}
	return &snap, nil
}

// BackupDir writes snapshots into a fixed directory.
type BackupDir struct {
	store *Store
	dir   string
}

// BackupDir returns a writer of snapshots into dir.
func (s *Store) BackupDir(dir string) *BackupDir {
	return &BackupDir{store: s, dir: dir}
}

// WriteBackup writes snap into the directory.
func (b *BackupDir) WriteBackup(ctx context.Context, snap Snapshot) (string, error) {
	return b.store.WriteBackup(ctx, b.dir, snap)
}
