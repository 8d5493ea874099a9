package filters

import (
	"github.com/iota-uz/bookkeeper/modules/filters/infrastructure/persistence"
	"github.com/iota-uz/bookkeeper/modules/filters/services"
	"github.com/iota-uz/bookkeeper/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewFilterService(persistence.NewReusableFilterRepository()),
	)
	return nil
}

func (m *Module) Name() string {
	return "filters"
}
