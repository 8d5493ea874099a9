package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
)

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("read %s: %w", path, err))
	}
	return data, nil
}

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Manage reusable filters applied after imports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reusable filters in application order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				list, err := e.filters.List(ctx, &reusablefilter.FindParams{})
				if err != nil {
					return err
				}
				for _, f := range list {
					if err := writeJSONLine(cmd.OutOrStdout(), toFilterView(f)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <file.json|->",
		Short: "Create a reusable filter from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var dto reusablefilter.DTO
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&dto); err != nil {
				return withCode(exitValidation, fmt.Errorf("decode filter: %w", err))
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				f, err := e.filters.Create(ctx, &dto)
				if err != nil {
					return err
				}
				return writeJSONLine(cmd.OutOrStdout(), toFilterView(f))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "patch <filter-id> <merge-patch.json|->",
		Short: "Apply a JSON merge patch to a reusable filter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				f, err := e.filters.Patch(ctx, id, patch)
				if err != nil {
					return err
				}
				return writeJSONLine(cmd.OutOrStdout(), toFilterView(f))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <filter-id>",
		Short: "Delete a reusable filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				return e.filters.Delete(ctx, id)
			})
		},
	})
	return cmd
}
