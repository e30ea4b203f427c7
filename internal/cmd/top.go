package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gigbase/stagehand/internal/config"
	"github.com/gigbase/stagehand/internal/tui"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live dashboard for a running instance",
	Long: `Top renders a live terminal dashboard over a running stagehand
instance: queue depth, in-flight work against the ceiling, utilization,
and the capacity controller's recent decisions.`,
	RunE: runTop,
}

var topAddr string // Diagnostics server address

func init() {
	topCmd.Flags().StringVar(&topAddr, "addr", "", "diagnostics server address (default from config)")
	rootCmd.AddCommand(topCmd)
}

func runTop(cmd *cobra.Command, args []string) error {
	addr := topAddr
	if addr == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		addr = cfg.Server.Addr
	}
	return tui.Run(addr)
}
