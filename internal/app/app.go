// Package app wires configuration, storage, startup checks, the shop, and the
// console together.
package app

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/shopledger/internal/console"
	"github.com/xenking/shopledger/internal/receipt"
	"github.com/xenking/shopledger/internal/shop"
	"github.com/xenking/shopledger/internal/storage/jsonfile"
	"github.com/xenking/shopledger/internal/storage/postgres"
	"github.com/xenking/shopledger/pkg/health"
)

// saveTimeout bounds the final save, which runs even after ctx is cancelled.
const saveTimeout = 30 * time.Second

// Telemetry provides the meter and tracer providers.
type Telemetry interface {
	MeterProvider() metric.MeterProvider
	TracerProvider() trace.TracerProvider
}

// Run loads the data, runs the menu on in/out until the user quits, and
// saves on the way out when configured to. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config, in io.Reader, out io.Writer) error {
	lg.Info("Initializing",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("data_dir", cfg.DataDir),
	)

	files := jsonfile.New(cfg.DataDir, lg.Named("jsonfile"))
	storage := shop.Storage{
		Products: files.Products(),
		Clients:  files.Clients(),
		Orders:   files.Orders(),
	}

	checks := health.New(cfg.Startup.RetryPause)
	checks.Add("receipts_dir", cfg.Startup.CheckTimeout, 1, health.WritableDirCheck(cfg.ReceiptsDir))
	checks.Add("backups_dir", cfg.Startup.CheckTimeout, 1, health.WritableDirCheck(cfg.BackupsDir))

	switch cfg.Storage.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		checks.Add("postgres", cfg.Startup.CheckTimeout, cfg.Startup.CheckAttempts, health.PingCheck(pool))
		if err := checks.Run(ctx).Err(); err != nil {
			return err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		storage = shop.Storage{
			Products: postgres.NewProductRepository(pool),
			Clients:  postgres.NewClientRepository(pool),
			Orders:   postgres.NewOrderRepository(pool),
		}
	default:
		checks.Add("data_dir", cfg.Startup.CheckTimeout, 1, health.WritableDirCheck(cfg.DataDir))
		if err := checks.Run(ctx).Err(); err != nil {
			return err
		}
	}

	s, err := shop.New(shop.Options{
		Storage:  storage,
		Receipts: receipt.NewDirSink(cfg.ReceiptsDir, cfg.Currency),
		Backups:  files.BackupDir(cfg.BackupsDir),
		Logger:   lg.Named("shop"),
		Meter:    m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create shop")
	}
	if err := s.Load(ctx); err != nil {
		return errors.Wrap(err, "load data")
	}

	c := console.New(s, in, out, console.Options{
		Currency: cfg.Currency,
		Logger:   lg.Named("console"),
		Tracer:   m.TracerProvider(),
	})
	runErr := c.Run(ctx)

	if cfg.SaveOnExit {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := s.Save(saveCtx); err != nil {
			if runErr != nil {
				lg.Error("Save on exit failed", zap.Error(err))
				return runErr
			}
			return errors.Wrap(err, "save on exit")
		}
	}
	return runErr
}
