package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session and daily request usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(svc.UsageStats())
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the auth token against the upstream API",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}

		if !svc.TestConnection(cmd.Context()) {
			return eris.New("connection test failed: check auth token")
		}
		zap.L().Info("connection test succeeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(testCmd)
}
