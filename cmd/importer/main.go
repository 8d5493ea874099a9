package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/bookkeeper/internal/bootstrap"
	"github.com/iota-uz/bookkeeper/pkg/application"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/configuration"
	"github.com/iota-uz/bookkeeper/pkg/logging"
	"github.com/iota-uz/bookkeeper/pkg/metrics"
	"github.com/iota-uz/bookkeeper/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, conf, bootstrap.Options{Jobs: true})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.WithError(err).Warn("shutdown: close runtime")
		}
	}()

	rt.App.RegisterControllers(metrics.NewHealthController(rt.Pool))
	if conf.Prometheus.Enabled {
		rt.App.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	if err := run(ctx, rt.App, conf, logger); err != nil {
		logger.WithError(err).Error("importer stopped")
		os.Exit(1)
	}
	logger.Info("importer stopped")
}

func run(ctx context.Context, app application.Application, conf *configuration.Configuration, logger *logrus.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	jobCtx := composables.WithPool(ctx, app.DB())
	for _, job := range app.Jobs() {
		job := job
		jobLog := logger.WithField("job", job.Name())
		g.Go(func() error {
			jobLog.Info("job started")
			err := job.Run(composables.WithLogger(jobCtx, jobLog))
			if err != nil && !errors.Is(err, context.Canceled) {
				jobLog.WithError(err).Error("job stopped")
				return err
			}
			return nil
		})
	}

	srv := server.NewHTTPServer(app, server.RequestLogger(logger))
	g.Go(func() error {
		return srv.Start(ctx, conf.SocketAddress)
	})
	return g.Wait()
}
