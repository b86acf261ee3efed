// Command hashcons exercises and maintains hash-consed score storage.
//
//	hashcons bench   [--docs N] [--http :8080] [--out FILE]
//	hashcons inspect FILE
//	hashcons compact [--config hashcons.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/IvanBrykalov/hashcons/config"
)

// app is what every subcommand shares once the root has loaded the config.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "hashcons",
		Short:         "Hash-consed music notation values: benchmark, inspect and compact",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")

	root.AddCommand(newBenchCmd(a), newInspectCmd(a), newCompactCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashcons:", err)
		os.Exit(1)
	}
}
