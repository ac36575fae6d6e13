package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/propdata-cli/internal/export"
	"github.com/sells-group/propdata-cli/internal/model"
)

var (
	lookupRaw    bool
	lookupSave   bool
	lookupOut    string
	lookupFormat string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Look up a single property by street address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := initService()
		if err != nil {
			return err
		}

		record, err := svc.Lookup(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "lookup")
		}
		if record == nil {
			zap.L().Info("no property found", zap.String("address", args[0]))
			return nil
		}

		if lookupSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := st.SaveProperties(ctx, []model.PropertyRecord{*record}); err != nil {
				return eris.Wrap(err, "save property")
			}
		}

		if lookupOut != "" {
			_, err := export.Write(cfg.Export.Dir, lookupOut, []string{lookupFormat}, []model.PropertyRecord{*record}, lookupRaw)
			return err
		}

		out := *record
		if !lookupRaw {
			out.Raw = nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupRaw, "raw", false, "include the raw upstream payload")
	lookupCmd.Flags().BoolVar(&lookupSave, "save", false, "save the record to the configured store")
	lookupCmd.Flags().StringVar(&lookupOut, "out", "", "write to a file with this name prefix instead of stdout")
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "json", "output format when --out is set (json, csv, xlsx)")
	rootCmd.AddCommand(lookupCmd)
}
