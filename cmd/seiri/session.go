package main

import (
	"encoding/json"
	"fmt"

	"github.com/harunnryd/seiri/internal/daemon/components"
	"github.com/harunnryd/seiri/internal/formatter"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect synchronized sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions known to a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := fetchAPI(cfg.Server.Port, "/sessions")
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			fmt.Println(string(raw))
			return nil
		}

		var list components.SessionList
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("decode session list: %w", err)
		}

		out, err := formatter.NewTableFormatter().FormatSessions(list.Sessions)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionListCmd.Flags().Bool("json", false, "print raw JSON instead of a table")
}
