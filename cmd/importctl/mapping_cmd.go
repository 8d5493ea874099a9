package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/bookkeeper/modules/imports/services"
)

func newMappingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage import mappings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <file.toml|file.yaml|file.json>",
		Short: "Create an import mapping from a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("read %s: %w", args[0], err))
			}
			dto, err := services.DecodeMappingFile(args[0], data)
			if err != nil {
				return withCode(exitValidation, err)
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				m, err := e.mappings.Create(ctx, dto)
				if err != nil {
					return err
				}
				return writeJSONLine(cmd.OutOrStdout(), toMappingView(m))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List import mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				list, err := e.mappings.List(ctx)
				if err != nil {
					return err
				}
				for _, m := range list {
					if err := writeJSONLine(cmd.OutOrStdout(), toMappingView(m)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})
	return cmd
}
