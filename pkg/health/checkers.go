package health

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
)

// Pinger is implemented by connection pools.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// WritableDirCheck returns a CheckFunc that reports unhealthy when dir cannot
// be created or a file cannot be written into it. The probe file is removed.
func WritableDirCheck(dir string) CheckFunc {
	return func(_ context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return errors.Wrapf(err, "write %s", dir)
		}
		name := f.Name()
		_ = f.Close()
		if err := os.Remove(name); err != nil {
			return errors.Wrapf(err, "remove %s", filepath.Base(name))
		}
		return nil
	}
}
