package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfinreg/corep-assistant/internal/export"
)

var (
	queryTemplate string
	queryXLSXPath string
)

var queryCmd = &cobra.Command{
	Use:   "query [scenario text]",
	Short: "Run one scenario through the pipeline and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		question := strings.Join(args, " ")
		result, err := env.Pipeline.ProcessQuery(ctx, question, queryTemplate, nil)
		if err != nil {
			return err
		}

		if queryXLSXPath != "" {
			if err := export.WriteXLSX(result, queryXLSXPath); err != nil {
				return err
			}
			zap.L().Info("wrote workbook", zap.String("path", queryXLSXPath))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryTemplate, "template", "CA1", "target template ID")
	queryCmd.Flags().StringVar(&queryXLSXPath, "xlsx", "", "also write the result to an XLSX workbook")
	rootCmd.AddCommand(queryCmd)
}
