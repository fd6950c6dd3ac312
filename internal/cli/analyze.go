package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

func analyzeCmd(rt *runtime) *cobra.Command {
	var (
		jdFile     string
		resume     string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:         "analyze",
		Short:       "Score a resume against a job description",
		Long:        "Expands the job description into search queries, retrieves passages of the resume and asks the model for a fit report.",
		Annotations: map[string]string{"env": "LLM_PROVIDER,LLM_MODEL,QUERY_COUNT,RETRIEVAL_K"},
		RunE: func(cmd *cobra.Command, args []string) error {
			jd, err := readJobDescription(jdFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := rt.app(ctx, BuildOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			analysis, err := app.Controller.ProcessApplication(ctx, jd, resume)
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}
			printAnalysis(cmd.OutOrStdout(), analysis)
			return nil
		},
	}

	cmd.Flags().StringVar(&jdFile, "jd-file", "", "File holding the job description, or - for stdin")
	cmd.Flags().StringVar(&resume, "resume", "", "Resume filename to analyze")
	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("jd-file")
	_ = cmd.MarkFlagRequired("resume")

	return cmd
}

func readJobDescription(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}
	return string(data), nil
}

func printAnalysis(w io.Writer, a *domain.MatchAnalysis) {
	fmt.Fprintf(w, "Candidate: %s\n", a.CandidateName)
	fmt.Fprintf(w, "Match score: %.0f/100\n\n", a.MatchScore)
	fmt.Fprintf(w, "%s\n", a.Summary)

	printList(w, "Key matches", a.KeyMatches)
	printList(w, "Missing skills", a.MissingSkills)

	if len(a.InterviewQuestions) > 0 {
		fmt.Fprintf(w, "\nInterview questions:\n")
		for i, q := range a.InterviewQuestions {
			fmt.Fprintf(w, "  %d. %s\n     %s\n", i+1, q.Question, q.Rationale)
		}
	}

	printList(w, "Sources", a.SourceCitations)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(item))
	}
}
