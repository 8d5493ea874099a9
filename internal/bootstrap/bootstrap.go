// Package bootstrap assembles the application shared by the importer daemon and importctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/modules"
	"github.com/iota-uz/bookkeeper/modules/imports"
	"github.com/iota-uz/bookkeeper/pkg/application"
	"github.com/iota-uz/bookkeeper/pkg/configuration"
	"github.com/iota-uz/bookkeeper/pkg/eventbus"
	"github.com/iota-uz/bookkeeper/pkg/filestore"
)

type Options struct {
	// Jobs registers the background jobs of every module.
	Jobs bool
	// ConnectTimeout bounds the initial database connection.
	ConnectTimeout time.Duration
}

type Runtime struct {
	App   application.Application
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Files filestore.Store

	closers []io.Closer
}

// New connects to the configured backends and registers the built-in modules.
func New(ctx context.Context, conf *configuration.Configuration, opts Options) (*Runtime, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	logger := conf.Logger()
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt := &Runtime{Pool: pool}

	files, err := newFileStore(ctx, conf)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Files = files
	if c, ok := files.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}

	if conf.Imports.LockBackend == "redis" {
		rt.Redis = redis.NewClient(&redis.Options{Addr: conf.RedisURL})
		if err := rt.Redis.Ping(connectCtx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.closers = append(rt.closers, rt.Redis)
	}

	rt.App = application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(rt.App, modules.BuiltInModules(&imports.ModuleOptions{
		Files: files,
		Redis: rt.Redis,
		Jobs:  opts.Jobs,
	})...); err != nil {
		rt.Close()
		return nil, fmt.Errorf("load modules: %w", err)
	}
	return rt, nil
}

func newFileStore(ctx context.Context, conf *configuration.Configuration) (filestore.Store, error) {
	switch conf.FileStore.Backend {
	case "gcs":
		return filestore.NewGCSStore(ctx, conf.FileStore.Bucket, conf.FileStore.Prefix)
	case "local":
		return filestore.NewLocalStore(conf.FileStore.Dir)
	default:
		return nil, fmt.Errorf("unknown file store backend %q", conf.FileStore.Backend)
	}
}

func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
	return errors.Join(errs...)
}
