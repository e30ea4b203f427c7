package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gigbase/stagehand/internal/config"
	"github.com/gigbase/stagehand/internal/queue"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue and scaling state of a running instance",
	Long: `Fetch current queue statistics and scaling state from a running
stagehand instance over its diagnostics API.

Shows:
- Buffered and in-flight work
- Concurrency ceiling and utilization
- Overflow totals
- Capacity controller state and last decision`,
	RunE: runStats,
}

var (
	statsAddr string // Diagnostics server address
	statsJSON bool   // Output as JSON
)

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "", "diagnostics server address (default from config)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

// scalingState mirrors the /api/scaling response.
type scalingState struct {
	Instances           int             `json:"instances"`
	MinInstances        int             `json:"min_instances"`
	MaxInstances        int             `json:"max_instances"`
	CooldownRemainingMs int64           `json:"cooldown_remaining_ms"`
	LastDecision        json.RawMessage `json:"last_decision,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	addr := statsAddr
	if addr == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		addr = cfg.Server.Addr
	}
	base := "http://" + addr

	var stats queue.QueueStats
	if err := fetchJSON(base+"/api/stats", &stats); err != nil {
		return fmt.Errorf("fetching stats from %s (is stagehand serve running?): %w", addr, err)
	}
	var scaling scalingState
	if err := fetchJSON(base+"/api/scaling", &scaling); err != nil {
		return fmt.Errorf("fetching scaling state from %s: %w", addr, err)
	}

	if statsJSON {
		out := map[string]any{"queue": stats, "scaling": scaling}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Queue\n")
	fmt.Fprintf(w, "  Buffered:     %d\n", stats.QueueLength)
	fmt.Fprintf(w, "  In flight:    %d\n", stats.ProcessingCount)
	fmt.Fprintf(w, "  Ceiling:      %d\n", stats.ConcurrencyCeiling)
	fmt.Fprintf(w, "  Utilization:  %.1f%%\n", stats.UtilizationPercent)
	fmt.Fprintf(w, "  Overflowed:   %d\n", stats.OverflowCount)
	fmt.Fprintf(w, "\nScaling\n")
	fmt.Fprintf(w, "  Instances:    %d (bounds %d-%d)\n",
		scaling.Instances, scaling.MinInstances, scaling.MaxInstances)
	if scaling.CooldownRemainingMs > 0 {
		fmt.Fprintf(w, "  Cooldown:     %s remaining\n",
			(time.Duration(scaling.CooldownRemainingMs) * time.Millisecond).Round(time.Second))
	} else {
		fmt.Fprintf(w, "  Cooldown:     ready\n")
	}
	if len(scaling.LastDecision) > 0 {
		fmt.Fprintf(w, "  Last decision: %s\n", scaling.LastDecision)
	}
	return nil
}

// fetchJSON GETs url and decodes the JSON response into out.
func fetchJSON(url string, out any) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
