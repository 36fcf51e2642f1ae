// Command catalog-import merges product feeds (JSON arrays in the produits.json
// format, optionally gzip-compressed) into the stored catalog.
//
//	catalog-import [-data-dir data] [-driver json|postgres] [-database-url URL] feed.json [feed2.json.gz ...]
package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/shopledger/internal/app"
	"github.com/xenking/shopledger/internal/catalogimport"
	"github.com/xenking/shopledger/internal/domain/product"
	"github.com/xenking/shopledger/internal/storage/jsonfile"
	"github.com/xenking/shopledger/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		driver      string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing produits.json")
	flag.StringVar(&driver, "driver", appkg.DriverJSON, "storage backend: json or postgres")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	feeds := flag.Args()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		return run(ctx, lg, dataDir, driver, databaseURL, feeds)
	})
}

func run(ctx context.Context, lg *zap.Logger, dataDir, driver, databaseURL string, feeds []string) error {
	var repo product.Repository
	switch driver {
	case appkg.DriverJSON:
		repo = jsonfile.New(dataDir, lg.Named("jsonfile")).Products()
	case appkg.DriverPostgres:
		if databaseURL == "" {
			return errors.New("database URL is required: set -database-url or DATABASE_URL")
		}
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		repo = postgres.NewProductRepository(pool)
	default:
		return errors.Errorf("unknown storage driver %q", driver)
	}

	res, err := catalogimport.New(repo, lg).Import(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "import")
	}
	for _, ref := range res.Conflicts {
		lg.Warn("Reference present in several feeds, not imported", zap.String("reference", ref))
	}
	return nil
}
