package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func resumesCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "resumes",
		Short: "List resumes and whether they are indexed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.app(ctx, BuildOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			files, err := app.Directory.List()
			if err != nil {
				return err
			}
			sources, err := app.Store.Sources(ctx)
			if err != nil {
				return err
			}

			indexed := make(map[string]bool, len(sources))
			for _, s := range sources {
				indexed[s] = true
			}

			if len(files) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No resumes in %s\n", app.Directory.Root())
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tINDEXED")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Name, f.Size, f.ModTime.Format("2006-01-02 15:04"), yesNo(indexed[f.Name]))
			}
			return tw.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
