package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IvanBrykalov/hashcons/codec"
	"github.com/IvanBrykalov/hashcons/intern"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Decode a serialized document and print what it shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			opt, err := a.cfg.RegistryOptions(a.logger)
			if err != nil {
				return err
			}
			reg := intern.NewRegistry(opt)
			defer reg.Close()

			doc, st, err := codec.DeserializeStats(data, reg)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "document %s %q\n", doc.ID, doc.Title)
			fmt.Fprintf(out, "staves=%d elements=%d\n", len(doc.Staves), doc.Len())
			fmt.Fprintf(out, "bytes=%d entries=%d tokens=%d inline=%d\n", st.Bytes, st.Entries, st.Tokens, st.Inline)
			printRegistryStats(out, reg)
			return nil
		},
	}
}
