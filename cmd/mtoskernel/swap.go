package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/import1bones/MTOS/kernel"
	"github.com/import1bones/MTOS/kernel/registry"
)

func newSwapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "swap <role> <variant>",
		Short: "Boot the registry with defaults, then switch one role to a named variant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, variant := args[0], args[1]
			sink := kernel.SinkFunc(func(line string) { fmt.Fprintln(os.Stdout, line) })

			r := registry.New()
			region := [2]kernel.Address{kernel.Address(cfg.PageSize), kernel.Address(cfg.PageSize * 1024)}
			if err := r.InstallDefaults(region[0], region[1]); err != nil {
				return fmt.Errorf("install defaults: %w", err)
			}

			sink.PrintLine("before swap:")
			r.Print(sink)

			if err := r.Switch(role, variant, region); err != nil {
				return fmt.Errorf("switch %s to %s: %w", role, variant, err)
			}

			sink.PrintLine("after swap:")
			r.Print(sink)
			return nil
		},
	}
}
