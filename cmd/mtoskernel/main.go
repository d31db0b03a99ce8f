// Command mtoskernel is a hosted demo harness for the MTOS kernel core: it
// runs the scenarios named in spec section 8 directly against the
// allocator, scheduler and transport types, and can boot a
// registry.Registry with its default variants and swap one component by
// role and variant name.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/import1bones/MTOS/kernel/config"
	"github.com/import1bones/MTOS/kernel/klog"
)

var cfg = config.Default()
var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mtoskernel",
		Short: "Demo harness for the MTOS kernel core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if verbose {
				klog.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.Uint32Var(&cfg.PageSize, "page-size", cfg.PageSize, "physical page size in bytes")
	flags.Uint32Var(&cfg.TimeQuantum, "time-quantum", cfg.TimeQuantum, "round-robin fixed quantum (validated only; demo and swap use their own quanta)")
	flags.Uint8Var(&cfg.MaxPriority, "max-priority", cfg.MaxPriority, "highest priority level (validated only; the priority scheduler uses a fixed 31)")
	flags.Uint32Var(&cfg.AgingInterval, "aging-interval", cfg.AgingInterval, "ticks between aging passes (validated only; the priority scheduler uses a fixed 100)")
	flags.IntVar(&cfg.MaxChannels, "max-channels", cfg.MaxChannels, "message-queue channel table size")
	flags.IntVar(&cfg.MaxQueueDepth, "max-queue-depth", cfg.MaxQueueDepth, "per-channel message capacity")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newDemoCmd())
	root.AddCommand(newSwapCmd())
	return root
}
