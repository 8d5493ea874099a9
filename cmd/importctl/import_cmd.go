package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/services"
)

type registerFlags struct {
	typ               string
	source            string
	mapping           string
	autoProcess       bool
	autoClean         bool
	checkImportedOnly bool
}

func newRegisterCmd() *cobra.Command {
	var flags registerFlags
	cmd := &cobra.Command{
		Use:   "register <file>",
		Short: "Store a file as a new import and process it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("read %s: %w", args[0], err))
			}
			dto := &services.RegisterDTO{
				Filename:          filepath.Base(args[0]),
				Content:           content,
				Source:            flags.source,
				Type:              flags.typ,
				AutoProcess:       flags.autoProcess,
				AutoClean:         flags.autoClean,
				CheckImportedOnly: flags.checkImportedOnly,
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if flags.mapping != "" {
					id, err := resolveMapping(ctx, e, flags.mapping)
					if err != nil {
						return err
					}
					dto.MappingID = &id
				}
				imp, err := e.imports.Register(ctx, dto)
				if err != nil {
					return err
				}
				return printImport(ctx, cmd, e, imp)
			})
		},
	}
	cmd.Flags().StringVar(&flags.typ, "type", string(importjob.TypeTransaction), "import type")
	cmd.Flags().StringVar(&flags.source, "source", "", "csv, json or xlsx; detected from the file when empty")
	cmd.Flags().StringVar(&flags.mapping, "mapping", "", "import mapping id or title (mappedImport only)")
	cmd.Flags().BoolVar(&flags.autoProcess, "auto-process", false, "trigger the import as soon as it is processed")
	cmd.Flags().BoolVar(&flags.autoClean, "auto-clean", false, "forget the import once the retention window passes")
	cmd.Flags().BoolVar(&flags.checkImportedOnly, "check-imported-only", false, "dedup only against items already imported")
	return cmd
}

func resolveMapping(ctx context.Context, e *env, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		m, err := e.mappings.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return m.ID(), nil
	}
	m, err := e.mappings.GetByTitle(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return m.ID(), nil
}

func printImport(ctx context.Context, cmd *cobra.Command, e *env, imp importjob.Import) error {
	counts, err := e.imports.ItemCounts(ctx, imp.ID())
	if err != nil {
		return err
	}
	return writeJSONLine(cmd.OutOrStdout(), toImportView(imp, counts))
}

func newStatusCmd() *cobra.Command {
	var statuses []string
	var limit int
	cmd := &cobra.Command{
		Use:   "status [import-id]",
		Short: "Show one import or list imports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uuid.UUID
			if len(args) == 1 {
				parsed, err := parseID(args[0])
				if err != nil {
					return err
				}
				id = parsed
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if id != uuid.Nil {
					imp, err := e.imports.Get(ctx, id)
					if err != nil {
						return err
					}
					return printImport(ctx, cmd, e, imp)
				}
				params := &importjob.FindParams{Limit: limit}
				for _, s := range statuses {
					params.Statuses = append(params.Statuses, importjob.Status(s))
				}
				list, err := e.imports.List(ctx, params)
				if err != nil {
					return err
				}
				for _, imp := range list {
					if err := printImport(ctx, cmd, e, imp); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum imports to list")
	return cmd
}

func newTriggerCmd() *cobra.Command {
	return idCommand("trigger", "Queue a processed import for importing", func(ctx context.Context, e *env, id uuid.UUID) error {
		return e.imports.Trigger(ctx, id)
	})
}

func newReprocessCmd() *cobra.Command {
	return idCommand("reprocess", "Drop the items of an import and process its file again", func(ctx context.Context, e *env, id uuid.UUID) error {
		return e.imports.Reprocess(ctx, id)
	})
}

func newResumeFiltersCmd() *cobra.Command {
	return idCommand("resume-filters", "Resume the filter workflow of an import that timed out", func(ctx context.Context, e *env, id uuid.UUID) error {
		return e.imports.ResumeFilters(ctx, id)
	})
}

func newDeleteCmd() *cobra.Command {
	return idCommand("delete", "Delete an import no ledger rows reference", func(ctx context.Context, e *env, id uuid.UUID) error {
		return e.imports.Delete(ctx, id)
	})
}

func newForgetCmd() *cobra.Command {
	return idCommand("forget", "Detach ledger rows and delete an import with its file", func(ctx context.Context, e *env, id uuid.UUID) error {
		return e.imports.ForgetImport(ctx, id)
	})
}

func newCleanCmd() *cobra.Command {
	var full bool
	cmd := idCommand("clean", "Drop the items that were not imported", func(ctx context.Context, e *env, id uuid.UUID) error {
		return e.imports.Clean(ctx, id, services.CleanOptions{Full: full})
	})
	cmd.Flags().BoolVar(&full, "full", false, "forget the import entirely")
	return cmd
}

func newRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single driver tick: process, promote, watchdog and import the next queued import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				return e.imports.DoRequiredImports(ctx)
			})
		},
	}
}

func newAutoCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-clean",
		Short: "Forget auto-clean imports older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				n, err := e.imports.AutoCleanAll(ctx)
				if werr := writeJSONLine(cmd.OutOrStdout(), map[string]int{"cleaned": n}); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}
