package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/ingest"
)

func analyzeCmd() *cobra.Command {
	var (
		requirementsPath string
		designPath       string
		threshold        float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare a requirements document against a design document",
		Long: `Parses both documents into statements (JSON arrays, YAML, or plain
text), runs the coverage analysis, and prints the result as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			requirements, err := readStatements(requirementsPath)
			if err != nil {
				return err
			}
			design, err := readStatements(designPath)
			if err != nil {
				return err
			}

			result, err := analysis.Analyze(analysis.Request{
				Requirements: requirements,
				Design:       design,
				Threshold:    threshold,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&requirementsPath, "requirements", "r", "", "requirements document path")
	cmd.Flags().StringVarP(&designPath, "design", "d", "", "design document path")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "similarity threshold in (0,1] (default 0.3)")
	_ = cmd.MarkFlagRequired("requirements")
	_ = cmd.MarkFlagRequired("design")

	return cmd
}

func readStatements(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	items := ingest.Statements(content)
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: no statements found", path)
	}
	return items, nil
}
