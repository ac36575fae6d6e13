package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/propdata-cli/internal/export"
	"github.com/sells-group/propdata-cli/internal/store"
)

var (
	exportCity    string
	exportState   string
	exportLimit   int
	exportOut     string
	exportFormats []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved property records to files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListProperties(ctx, store.Filter{
			City:  exportCity,
			State: exportState,
			Limit: exportLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list saved properties")
		}
		if len(records) == 0 {
			zap.L().Info("no saved records match the filter")
			return nil
		}

		paths, err := export.Write(cfg.Export.Dir, exportOut, exportFormats, records, cfg.Export.IncludeRaw)
		if err != nil {
			return err
		}
		for format, path := range paths {
			zap.L().Info("export written", zap.String("format", format), zap.String("path", path))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCity, "city", "", "filter by city")
	exportCmd.Flags().StringVar(&exportState, "state", "", "filter by state")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max records to export (0 = all)")
	exportCmd.Flags().StringVar(&exportOut, "out", "properties", "output filename prefix")
	exportCmd.Flags().StringSliceVar(&exportFormats, "format", []string{"csv"}, "output formats (json, csv, xlsx)")
	rootCmd.AddCommand(exportCmd)
}
