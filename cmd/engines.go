package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEnginesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List OCR engines and whether they can be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			service := buildService(cfg)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENGINE\tMODEL\tREADY\tDEFAULT")
			for _, name := range service.Names() {
				model := service.DefaultModel(name)
				if model == "" {
					model = "-"
				}
				def := ""
				if name == cfg.OCR.Provider {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", name, model, engineReady(cfg, name), def)
			}
			return w.Flush()
		},
	}
}
