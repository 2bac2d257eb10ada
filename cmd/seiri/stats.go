package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harunnryd/seiri/internal/daemon/components"
	"github.com/harunnryd/seiri/internal/formatter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline statistics from a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := fetchAPI(cfg.Server.Port, "/stats")
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			fmt.Println(string(raw))
			return nil
		}

		var stats components.StatsResponse
		if err := json.Unmarshal(raw, &stats); err != nil {
			return fmt.Errorf("decode stats response: %w", err)
		}

		out, err := formatter.NewTableFormatter().FormatStats(&stats)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func fetchAPI(port int, path string) ([]byte, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, path)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "print raw JSON instead of a table")
}
