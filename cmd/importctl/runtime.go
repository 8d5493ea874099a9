package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/bookkeeper/internal/bootstrap"
	filterservices "github.com/iota-uz/bookkeeper/modules/filters/services"
	"github.com/iota-uz/bookkeeper/modules/imports/services"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/configuration"
)

type env struct {
	rt       *bootstrap.Runtime
	imports  *services.ImportService
	mappings *services.MappingService
	filters  *filterservices.FilterService
}

// withEnv boots the application without background jobs and runs fn with a
// pool-bound context.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	conf := configuration.Use()
	defer conf.Unload()

	rt, err := bootstrap.New(cmd.Context(), conf, bootstrap.Options{})
	if err != nil {
		return withCode(exitDB, err)
	}
	defer rt.Close()

	e := &env{
		rt:       rt,
		imports:  rt.App.Service(services.ImportService{}).(*services.ImportService),
		mappings: rt.App.Service(services.MappingService{}).(*services.MappingService),
		filters:  rt.App.Service(filterservices.FilterService{}).(*filterservices.FilterService),
	}
	ctx := composables.WithPool(cmd.Context(), rt.Pool)
	ctx = composables.WithLogger(ctx, rt.App.Logger().WithField("cli", cmd.CommandPath()))
	return classify(fn(ctx, e))
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("invalid id %q: %w", arg, err))
	}
	return id, nil
}

// idCommand builds a command taking a single import id.
func idCommand(use, short string, run func(ctx context.Context, e *env, id uuid.UUID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <import-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				return run(ctx, e, id)
			})
		},
	}
}
