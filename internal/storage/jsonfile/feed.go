package jsonfile

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/shopledger/internal/domain/product"
)

// ReadProductFeed reads products in the produits.json format from path.
// Files ending in ".gz" are decompressed. Records failing validation are
// passed to skip; a feed that is not valid JSON is an error. The reference
// may be empty in a feed.
func ReadProductFeed(ctx context.Context, path string, skip func(error)) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	products, err := decodeProducts(jx.Decode(r, 64*1024), skip)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return products, nil
}
