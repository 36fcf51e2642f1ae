package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOPLEDGER_ prefix), a .env file, flags, or YAML
// config files.
type Config struct {
	DataDir     string `default:"data" env:"DATA_DIR" flag:"data-dir" usage:"Directory holding produits.json, clients.json and commandes.json"`
	ReceiptsDir string `env:"RECEIPTS_DIR" flag:"receipts-dir" usage:"Receipt output directory (default <data-dir>/recus)"`
	BackupsDir  string `env:"BACKUPS_DIR" flag:"backups-dir" usage:"Snapshot backup directory (default <data-dir>/backups)"`
	Currency    string `default:"MAD" env:"CURRENCY" flag:"currency" usage:"Currency label printed after amounts"`
	SaveOnExit  bool   `default:"true" env:"SAVE_ON_EXIT" flag:"save-on-exit" usage:"Save all data when leaving the menu"`
	Storage     StorageConfig
	Startup     StartupConfig
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver      string `default:"json" env:"DRIVER" usage:"Storage backend: json or postgres"`
	DatabaseURL string `env:"DATABASE_URL" usage:"PostgreSQL connection URL (also read from DATABASE_URL)"`
}

// StartupConfig controls the checks run before the menu opens.
type StartupConfig struct {
	CheckTimeout  time.Duration `default:"5s" env:"CHECK_TIMEOUT" usage:"Timeout of one startup check attempt"`
	CheckAttempts int           `default:"3" env:"CHECK_ATTEMPTS" usage:"Attempts per startup check"`
	RetryPause    time.Duration `default:"1s" env:"RETRY_PAUSE" usage:"Pause between attempts of a failing check"`
}

// LoadConfig loads .env, then configuration from environment variables, YAML
// config files, and command-line flags.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOPLEDGER",
		Args:      args,
		Files:     []string{"shopledger.yaml", "/etc/shopledger/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults derives directories from DataDir and maps the conventional
// DATABASE_URL variable.
func (c *Config) applyDefaults() {
	if c.ReceiptsDir == "" {
		c.ReceiptsDir = filepath.Join(c.DataDir, "recus")
	}
	if c.BackupsDir == "" {
		c.BackupsDir = filepath.Join(c.DataDir, "backups")
	}
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverJSON:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres driver: set SHOPLEDGER_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.DataDir == "" {
		return errors.New("data dir must not be empty")
	}
	return nil
}
