package ledger

import (
	"github.com/iota-uz/bookkeeper/modules/ledger/handlers"
	"github.com/iota-uz/bookkeeper/modules/ledger/infrastructure/persistence"
	"github.com/iota-uz/bookkeeper/modules/ledger/services"
	"github.com/iota-uz/bookkeeper/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	entityRepo := persistence.NewEntityRepository()
	transactionRepo := persistence.NewTransactionRepository()
	refresher := services.NewViewRefresher()

	app.RegisterServices(
		services.NewImportLinkService(entityRepo, transactionRepo),
		refresher,
	)

	if bus := app.EventPublisher(); bus != nil {
		handlers.RegisterImportEventsHandler(bus, app.DB(), refresher, app.Logger())
	}
	return nil
}

func (m *Module) Name() string {
	return "ledger"
}
