package application

import (
	"context"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/pkg/eventbus"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Register(app Application) error
	Name() string
}

// BackgroundJob is a long-running loop started by the worker binary.
type BackgroundJob interface {
	Name() string
	Run(ctx context.Context) error
}

type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Controllers() []Controller
	RegisterControllers(controllers ...Controller)
	RegisterServices(services ...any)
	Service(service any) any
	Services() map[reflect.Type]any
	RegisterJobs(jobs ...BackgroundJob)
	Jobs() []BackgroundJob
}
