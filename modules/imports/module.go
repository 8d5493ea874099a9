package imports

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	filterservices "github.com/iota-uz/bookkeeper/modules/filters/services"
	"github.com/iota-uz/bookkeeper/modules/imports/infrastructure/persistence"
	"github.com/iota-uz/bookkeeper/modules/imports/services"
	"github.com/iota-uz/bookkeeper/modules/imports/worker"
	ledgerpersistence "github.com/iota-uz/bookkeeper/modules/ledger/infrastructure/persistence"
	ledgerservices "github.com/iota-uz/bookkeeper/modules/ledger/services"
	"github.com/iota-uz/bookkeeper/pkg/application"
	"github.com/iota-uz/bookkeeper/pkg/configuration"
	"github.com/iota-uz/bookkeeper/pkg/eventbus"
	"github.com/iota-uz/bookkeeper/pkg/filestore"
	"github.com/iota-uz/bookkeeper/pkg/outbox"
	eventbusdispatcher "github.com/iota-uz/bookkeeper/pkg/outbox/dispatchers/eventbus"
)

const (
	driverLockName  = "imports:driver"
	cleanerLockName = "imports:auto-clean"
)

type ModuleOptions struct {
	Files filestore.Store
	// Redis is required only when IMPORTS_LOCK_BACKEND=redis.
	Redis *redis.Client
	// Jobs disables background job registration when false, e.g. for one-shot CLI commands.
	Jobs bool
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	if m.options == nil || m.options.Files == nil {
		return errors.New("imports: file store is required")
	}
	conf := configuration.Use()
	log := app.Logger().WithField("module", "imports")

	importRepo := persistence.NewImportRepository()
	itemRepo := persistence.NewItemRepository()
	mappingRepo := persistence.NewMappingRepository()
	entityRepo := ledgerpersistence.NewEntityRepository()
	transactionRepo := ledgerpersistence.NewTransactionRepository()

	filterService := app.Service(filterservices.FilterService{}).(*filterservices.FilterService)
	linkService := app.Service(ledgerservices.ImportLinkService{}).(*ledgerservices.ImportLinkService)

	table, err := outbox.ParseIdentifier(conf.Outbox.RelayTable)
	if err != nil {
		return fmt.Errorf("imports: outbox table: %w", err)
	}
	publisher, err := outbox.NewPublisher(table)
	if err != nil {
		return fmt.Errorf("imports: outbox publisher: %w", err)
	}

	resolver := services.NewLinkedEntityResolver(entityRepo)
	importService := services.NewImportService(services.ImportServiceDeps{
		Imports:   importRepo,
		Items:     itemRepo,
		Entities:  entityRepo,
		Files:     m.options.Files,
		Handlers:  services.NewHandlerFactory(entityRepo, transactionRepo, mappingRepo, resolver),
		Resolver:  services.NewUniqueIDResolver(itemRepo),
		Processor: services.NewItemProcessor(itemRepo, conf.Imports.ErrorMaxBytes, log.WithField("component", "processor")),
		Workflow:  services.NewFilterWorkflow(importRepo, filterService, log.WithField("component", "filters")),
		Links:     linkService,
		Events:    services.NewOutboxSink(publisher),
		Logger:    log,
	}, services.Options{
		Timeout:         conf.Imports.Timeout,
		WatchdogTimeout: conf.Imports.WatchdogTimeout,
		Retention:       conf.Imports.Retention,
		ErrorMaxBytes:   conf.Imports.ErrorMaxBytes,
	})

	app.RegisterServices(
		importService,
		services.NewMappingService(mappingRepo),
	)

	if !m.options.Jobs {
		return nil
	}
	return m.registerJobs(app, conf, importService)
}

func (m *Module) registerJobs(app application.Application, conf *configuration.Configuration, svc *services.ImportService) error {
	log := app.Logger().WithField("module", "imports")

	if conf.Imports.DriverEnabled {
		locker, err := m.locker(app, conf, driverLockName)
		if err != nil {
			return err
		}
		app.RegisterJobs(worker.NewDriver(svc, worker.Options{
			Interval: conf.Imports.PollInterval,
			Locker:   locker,
			Logger:   log.WithField("job", "driver"),
		}))
	}
	if conf.Imports.AutoCleanEnabled {
		locker, err := m.locker(app, conf, cleanerLockName)
		if err != nil {
			return err
		}
		app.RegisterJobs(worker.NewAutoCleaner(svc, worker.Options{
			Interval: conf.Imports.AutoCleanInterval,
			Locker:   locker,
			Logger:   log.WithField("job", "auto-clean"),
		}))
	}
	return registerOutboxJobs(app, conf)
}

func (m *Module) locker(app application.Application, conf *configuration.Configuration, name string) (worker.Locker, error) {
	if !conf.Imports.SingleActive {
		return nil, nil
	}
	switch conf.Imports.LockBackend {
	case "redis":
		if m.options.Redis == nil {
			return nil, errors.New("imports: redis lock backend selected but no redis client configured")
		}
		return worker.NewRedisLocker(m.options.Redis, name, conf.Imports.LockTTL), nil
	default:
		return worker.NewAdvisoryLocker(app.DB(), name), nil
	}
}

func registerOutboxJobs(app application.Application, conf *configuration.Configuration) error {
	outboxLog := app.Logger().WithField("component", "outbox")
	table, err := outbox.ParseIdentifier(conf.Outbox.RelayTable)
	if err != nil {
		return err
	}
	tableLog := outboxLog.WithField("table", outbox.TableLabel(table))

	if conf.Outbox.RelayEnabled {
		bus, ok := app.EventPublisher().(eventbus.EventBusWithError)
		if !ok {
			outboxLog.Warn("outbox: eventbus does not support PublishE; relay not started")
		} else {
			relay, err := outbox.NewRelay(app.DB(), table, eventbusdispatcher.New(bus), outbox.RelayOptions{
				PollInterval:    conf.Outbox.RelayPollInterval,
				BatchSize:       conf.Outbox.RelayBatchSize,
				LockTTL:         conf.Outbox.RelayLockTTL,
				MaxAttempts:     conf.Outbox.RelayMaxAttempts,
				SingleActive:    conf.Imports.SingleActive,
				LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
				DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
				Logger:          tableLog,
			})
			if err != nil {
				return fmt.Errorf("outbox: relay: %w", err)
			}
			app.RegisterJobs(relay)
		}
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(app.DB(), table, outbox.CleanerOptions{
			Interval:  conf.Outbox.CleanerInterval,
			Retention: conf.Outbox.CleanerRetention,
			Logger:    tableLog,
		})
		if err != nil {
			return fmt.Errorf("outbox: cleaner: %w", err)
		}
		app.RegisterJobs(cleaner)
	}
	return nil
}

func (m *Module) Name() string {
	return "imports"
}
