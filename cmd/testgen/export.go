package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportResultsCmd = &cobra.Command{
	Use:   "export-results",
	Short: "Write all student results to an xlsx workbook",
	RunE:  runExportResults,
}

func init() {
	exportResultsCmd.Flags().String("out", "student_results.xlsx", "output file")
}

func runExportResults(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")

	ctx := cmd.Context()
	svc, conn, err := openServices(cmd, cfg)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	data, err := svc.Reports.ExportResultsExcel(ctx)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), out)
	return nil
}
