package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "importctl",
		Short:         "Operate bookkeeper imports: register files, drive the lifecycle, clean up",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTriggerCmd())
	cmd.AddCommand(newReprocessCmd())
	cmd.AddCommand(newResumeFiltersCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newForgetCmd())
	cmd.AddCommand(newRunOnceCmd())
	cmd.AddCommand(newAutoCleanCmd())
	cmd.AddCommand(newMappingCmd())
	cmd.AddCommand(newFilterCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
