package main

import (
	"os"

	"github.com/jingkaihe/prskill/pkg/presenter"
	"github.com/jingkaihe/prskill/pkg/report"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <pr|review>",
	Short: "Print the JSON schema of a result file",
	Long: `Print the JSON schema of the result file accepted by "pr render" or "review render",
so an assistant can produce a conforming document.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		out, err := schemaFor(args[0])
		if err != nil {
			presenter.Error(err, "Failed to generate schema")
			os.Exit(1)
		}
		presenter.Document(out)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func schemaFor(kindArg string) (string, error) {
	kind, err := report.ParseKind(kindArg)
	if err != nil {
		return "", err
	}
	out, err := report.Schema(kind)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
