package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gigbase/stagehand/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "Priority-aware admission control for the gigbase API",
	Long: `Stagehand sits in front of the gigbase booking backends and decides
which requests run now, which wait, and how much concurrency the
backends should absorb. Work is admitted through a priority queue with
a bounded concurrency ceiling; a capacity controller watches sampled
load and adjusts the ceiling with hysteresis.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/stagehand/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/stagehand")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("STAGEHAND")
	// Replace dots with underscores for nested keys in env vars
	// e.g., STAGEHAND_QUEUE_MAX_BUFFER_SIZE for queue.max_buffer_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
