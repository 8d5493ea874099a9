package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/pkg/logging"
)

// ImportRunner is the part of the import service the driver ticks.
type ImportRunner interface {
	DoRequiredImports(ctx context.Context) error
}

// Cleaner is the part of the import service the auto-cleaner ticks.
type Cleaner interface {
	AutoCleanAll(ctx context.Context) (int, error)
}

type Options struct {
	Interval time.Duration
	// Locker is optional. Without it every instance ticks; the persisted single-flight
	// still keeps one import importing at a time.
	Locker Locker
	Logger *logrus.Entry
}

func (o *Options) setDefaults(interval time.Duration) {
	if o.Interval <= 0 {
		o.Interval = interval
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}

// Driver runs DoRequiredImports on every tick.
type Driver struct {
	runner ImportRunner
	opts   Options
}

func NewDriver(runner ImportRunner, opts Options) *Driver {
	opts.setDefaults(5 * time.Second)
	return &Driver{runner: runner, opts: opts}
}

func (d *Driver) Name() string { return "imports-driver" }

func (d *Driver) Run(ctx context.Context) error {
	return loop(ctx, d.opts, func(ctx context.Context) error {
		return d.runner.DoRequiredImports(ctx)
	})
}

// AutoCleaner runs the retention sweep on every tick.
type AutoCleaner struct {
	cleaner Cleaner
	opts    Options
}

func NewAutoCleaner(cleaner Cleaner, opts Options) *AutoCleaner {
	opts.setDefaults(time.Hour)
	return &AutoCleaner{cleaner: cleaner, opts: opts}
}

func (c *AutoCleaner) Name() string { return "imports-auto-cleaner" }

func (c *AutoCleaner) Run(ctx context.Context) error {
	return loop(ctx, c.opts, func(ctx context.Context) error {
		n, err := c.cleaner.AutoCleanAll(ctx)
		if n > 0 {
			c.opts.Logger.WithField("imports", n).Info("imports auto-cleaned")
		}
		return err
	})
}

func loop(ctx context.Context, opts Options, tick func(ctx context.Context) error) error {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := runTick(ctx, opts, tick); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			opts.Logger.WithError(err).Warn("tick failed")
		}
	}
}

func runTick(ctx context.Context, opts Options, tick func(ctx context.Context) error) error {
	if opts.Locker != nil {
		release, ok, err := opts.Locker.TryLock(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		defer release()
	}
	return tick(ctx)
}
