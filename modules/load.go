package modules

import (
	"github.com/iota-uz/bookkeeper/modules/filters"
	"github.com/iota-uz/bookkeeper/modules/imports"
	"github.com/iota-uz/bookkeeper/modules/ledger"
	"github.com/iota-uz/bookkeeper/pkg/application"
)

// BuiltInModules returns the modules in registration order. imports looks up the
// ledger and filters services, so they come first.
func BuiltInModules(importOpts *imports.ModuleOptions) []application.Module {
	return []application.Module{
		ledger.NewModule(),
		filters.NewModule(),
		imports.NewModule(importOpts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
