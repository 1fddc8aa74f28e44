package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect generated lead reports",
}

var reportsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent report's metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		meta, err := st.LatestReportMeta(ctx)
		if err != nil {
			return err
		}
		if meta == nil {
			fmt.Println("No reports yet.")
			return nil
		}
		fmt.Printf("%s\t%d bytes\t%s\n", meta.Filename, meta.SizeBytes, meta.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	reportsCmd.AddCommand(reportsLatestCmd)
	rootCmd.AddCommand(reportsCmd)
}
