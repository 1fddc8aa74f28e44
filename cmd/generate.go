package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

var (
	generateType     string
	generateLocation string
	generateCount    int
	generateFormat   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a lead report for a business type and location",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format := pipeline.ReportFormat(generateFormat)
		if format != pipeline.FormatCSV && format != pipeline.FormatXLSX {
			return eris.Errorf("unsupported format: %s", generateFormat)
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p, _, err := buildPipeline(st, format)
		if err != nil {
			return err
		}

		outcome, runErr := p.GenerateLeads(ctx, generateType, generateLocation, generateCount)
		switch outcome.Kind {
		case model.OutcomeSuccess:
			fmt.Printf("Generated %d leads: %s (%d bytes)\n",
				outcome.LeadCount, outcome.Report.Filename, outcome.Report.SizeBytes)
			return nil
		case model.OutcomeNoLeads:
			fmt.Println("No leads found.")
			return nil
		default:
			zap.L().Error("generate failed", zap.Error(runErr))
			return eris.Wrap(runErr, outcome.Message)
		}
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateType, "type", "", "business type to search for (e.g. \"plumbers\")")
	generateCmd.Flags().StringVar(&generateLocation, "location", "", "target location (suburb, city, or region)")
	generateCmd.Flags().IntVar(&generateCount, "count", 0, "maximum number of leads (default from config)")
	generateCmd.Flags().StringVar(&generateFormat, "format", "csv", "report format: csv or xlsx")
	_ = generateCmd.MarkFlagRequired("type")
	_ = generateCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(generateCmd)
}
