package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/propdata-cli/pkg/propstream"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search address suggestions matching a partial address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}

		suggestions, err := svc.Search(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "search")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	},
}

var (
	findCity   string
	findState  string
	findZip    string
	findCounty string
	findAPN    string
	findLimit  int
	findSave   bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search full property records by criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := initService()
		if err != nil {
			return err
		}

		records, err := svc.SearchProperties(ctx, propstream.SearchCriteria{
			City:    findCity,
			State:   findState,
			ZipCode: findZip,
			County:  findCounty,
			APN:     findAPN,
			Limit:   findLimit,
		})
		if err != nil {
			return eris.Wrap(err, "find properties")
		}

		if findSave && len(records) > 0 {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := st.SaveProperties(ctx, records); err != nil {
				return eris.Wrap(err, "save properties")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	findCmd.Flags().StringVar(&findCity, "city", "", "city name")
	findCmd.Flags().StringVar(&findState, "state", "", "two-letter state code")
	findCmd.Flags().StringVar(&findZip, "zip", "", "zip code")
	findCmd.Flags().StringVar(&findCounty, "county", "", "county name")
	findCmd.Flags().StringVar(&findAPN, "apn", "", "assessor parcel number")
	findCmd.Flags().IntVar(&findLimit, "limit", 50, "max records to return")
	findCmd.Flags().BoolVar(&findSave, "save", false, "save results to the configured store")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(findCmd)
}
