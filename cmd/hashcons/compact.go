package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanBrykalov/hashcons/consolidate"
	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/workspace"
)

func newCompactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Load every stored document, run one consolidation cycle and save them back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			be, err := a.cfg.OpenStore(a.logger)
			if err != nil {
				return err
			}
			defer be.Close()

			opt, err := a.cfg.RegistryOptions(a.logger)
			if err != nil {
				return err
			}
			reg := intern.NewRegistry(opt)
			defer reg.Close()

			ws := workspace.New(workspace.Options{Registry: reg, Backend: be, Logger: a.logger})
			n, err := ws.LoadAll(ctx)
			if err != nil {
				return err
			}
			dopt := a.cfg.DaemonOptions(a.logger)
			dopt.Disabled = false
			rep, err := consolidate.New(reg, ws, dopt).RunCycle(ctx)
			if err != nil {
				return err
			}
			if err := ws.SaveAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compacted %d documents: replaced=%d conflicts=%d failed=%d\n",
				n, rep.Replaced, rep.Conflicts, rep.Failed)
			return nil
		},
	}
}
