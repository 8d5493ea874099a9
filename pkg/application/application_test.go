package application

import (
	"context"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type sampleService struct{ name string }

type sampleController struct{ key string }

func (c *sampleController) Register(r *mux.Router) {}
func (c *sampleController) Key() string            { return c.key }

type sampleJob struct{}

func (sampleJob) Name() string                  { return "sample" }
func (sampleJob) Run(ctx context.Context) error { return nil }

func TestApplication_ServiceRegistry(t *testing.T) {
	app := New(&ApplicationOptions{})
	svc := &sampleService{name: "imports"}
	app.RegisterServices(svc)

	got := app.Service(sampleService{}).(*sampleService)
	require.Same(t, svc, got)
	require.Len(t, app.Services(), 1)
	require.Panics(t, func() { app.Service(struct{}{}) })
}

func TestApplication_ControllersAndJobs(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterControllers(&sampleController{key: "/b"}, &sampleController{key: "/a"}, &sampleController{key: "/a"})
	require.Len(t, app.Controllers(), 2)
	require.Equal(t, "/a", app.Controllers()[0].Key())

	app.RegisterJobs(sampleJob{})
	require.Len(t, app.Jobs(), 1)
}
