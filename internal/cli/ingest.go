package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumatch/internal/config"
)

func ingestCmd(rt *runtime) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Index resumes into the vector store",
		Long: "Without arguments, indexes every PDF below the resume directory. With --reset the " +
			"collection is dropped first. Given files, re-indexes just those files.",
		Annotations: map[string]string{"env": "RESUME_DIR,STORE_BACKEND,EMBEDDING_MODEL"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset && len(args) > 0 {
				return fmt.Errorf("--reset cannot be combined with explicit files")
			}

			ctx := cmd.Context()
			app, err := rt.app(ctx, BuildOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()

			if len(args) > 0 {
				failed := 0
				for _, path := range args {
					report := app.Ingestion.IngestFile(ctx, path)
					switch {
					case report.Success && report.Fallback:
						fmt.Fprintf(out, "%s: %d chunks (kept whole)\n", report.Source, report.Chunks)
					case report.Success:
						fmt.Fprintf(out, "%s: %d chunks\n", report.Source, report.Chunks)
					default:
						failed++
						fmt.Fprintf(out, "%s: failed\n", report.Source)
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed to ingest", failed, len(args))
				}
				return nil
			}

			if app.Config.StoreBackend == config.BackendMemory {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: the memory store is discarded when this command exits")
			}

			report, err := app.Ingestion.Run(ctx, reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Ingested %d files: %d documents, %d chunks (%d kept whole)\n",
				report.Files, report.Documents, report.Chunks, report.Fallbacks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Drop the collection before indexing")

	return cmd
}
