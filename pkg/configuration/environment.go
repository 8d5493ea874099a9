package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/pkg/logging"
	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

const Production = "production"

var ErrInvalidConfig = serrors.NewError("CONFIG_INVALID", "invalid configuration", "")

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files found in the working directory. When none exist there,
// the nearest directory holding go.mod is tried instead.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root := moduleRoot(); root != "" {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"bookkeeper"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"bookkeeper-importer"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type ImportOptions struct {
	DriverEnabled   bool          `env:"IMPORTS_DRIVER_ENABLED" envDefault:"true"`
	PollInterval    time.Duration `env:"IMPORTS_POLL_INTERVAL" envDefault:"5s"`
	Timeout         time.Duration `env:"IMPORTS_TIMEOUT" envDefault:"10m"`
	WatchdogTimeout time.Duration `env:"IMPORTS_WATCHDOG_TIMEOUT" envDefault:"15m"`
	SingleActive    bool          `env:"IMPORTS_SINGLE_ACTIVE" envDefault:"false"`

	// advisory or redis
	LockBackend string        `env:"IMPORTS_LOCK_BACKEND" envDefault:"advisory"`
	LockTTL     time.Duration `env:"IMPORTS_LOCK_TTL" envDefault:"1m"`

	AutoCleanEnabled  bool          `env:"IMPORTS_AUTO_CLEAN_ENABLED" envDefault:"true"`
	AutoCleanInterval time.Duration `env:"IMPORTS_AUTO_CLEAN_INTERVAL" envDefault:"1h"`
	Retention         time.Duration `env:"IMPORTS_RETENTION" envDefault:"720h"`

	ErrorMaxBytes int `env:"IMPORTS_ERROR_MAX_BYTES" envDefault:"8192"`
}

func (o *ImportOptions) Validate() error {
	if o.PollInterval <= 0 {
		return fmt.Errorf("%w: IMPORTS_POLL_INTERVAL must be positive", ErrInvalidConfig)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: IMPORTS_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if o.WatchdogTimeout < o.Timeout {
		return fmt.Errorf("%w: IMPORTS_WATCHDOG_TIMEOUT (%s) must not be shorter than IMPORTS_TIMEOUT (%s)",
			ErrInvalidConfig, o.WatchdogTimeout, o.Timeout)
	}
	switch o.LockBackend {
	case "advisory", "redis":
	default:
		return fmt.Errorf("%w: IMPORTS_LOCK_BACKEND must be 'advisory' or 'redis', got %q", ErrInvalidConfig, o.LockBackend)
	}
	return nil
}

type FileStoreOptions struct {
	// local or gcs
	Backend string `env:"FILESTORE_BACKEND" envDefault:"local"`
	Dir     string `env:"FILESTORE_DIR" envDefault:"uploads/imports"`
	Bucket  string `env:"FILESTORE_GCS_BUCKET"`
	Prefix  string `env:"FILESTORE_GCS_PREFIX" envDefault:"imports/"`
}

func (o *FileStoreOptions) Validate() error {
	switch o.Backend {
	case "local":
		if strings.TrimSpace(o.Dir) == "" {
			return fmt.Errorf("%w: FILESTORE_DIR is required for the local backend", ErrInvalidConfig)
		}
	case "gcs":
		if strings.TrimSpace(o.Bucket) == "" {
			return fmt.Errorf("%w: FILESTORE_GCS_BUCKET is required for the gcs backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: FILESTORE_BACKEND must be 'local' or 'gcs', got %q", ErrInvalidConfig, o.Backend)
	}
	return nil
}

type OutboxOptions struct {
	RelayEnabled         bool          `env:"OUTBOX_RELAY_ENABLED" envDefault:"true"`
	RelayTable           string        `env:"OUTBOX_RELAY_TABLE" envDefault:"public.imports_outbox"`
	RelayPollInterval    time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"1s"`
	RelayBatchSize       int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"100"`
	RelayLockTTL         time.Duration `env:"OUTBOX_RELAY_LOCK_TTL" envDefault:"60s"`
	RelayMaxAttempts     int           `env:"OUTBOX_RELAY_MAX_ATTEMPTS" envDefault:"25"`
	RelayDispatchTimeout time.Duration `env:"OUTBOX_RELAY_DISPATCH_TIMEOUT" envDefault:"30s"`

	LastErrorMaxBytes int `env:"OUTBOX_LAST_ERROR_MAX_BYTES" envDefault:"2048"`

	CleanerEnabled   bool          `env:"OUTBOX_CLEANER_ENABLED" envDefault:"true"`
	CleanerInterval  time.Duration `env:"OUTBOX_CLEANER_INTERVAL" envDefault:"1m"`
	CleanerRetention time.Duration `env:"OUTBOX_CLEANER_RETENTION" envDefault:"168h"`
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Imports       ImportOptions
	FileStore     FileStoreOptions
	Outbox        OutboxOptions

	RedisURL         string `env:"REDIS_URL" envDefault:"localhost:6379"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/importer.log"`
	// MigrationsDir overrides the migrations embedded in the binary.
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := c.parse(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

// parse reads the environment into c and validates it. It does not touch env files or the logger.
func (c *Configuration) parse() error {
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Imports.Validate(); err != nil {
		return fmt.Errorf("imports configuration error: %w", err)
	}
	if err := c.FileStore.Validate(); err != nil {
		return fmt.Errorf("file store configuration error: %w", err)
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
