package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/lvx/internal/nativefactory"
	"github.com/srg/lvx/internal/simsdk"
	"github.com/srg/lvx/native"
	"github.com/srg/lvx/pkg/config"
)

var (
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lvx",
	Short: "Livox LiDAR command-line tool",
	Long: `Command-line tool for Livox LiDAR devices:

- Discover devices broadcasting on the local network
- Connect, drive mode transitions and watch lifecycle state
- Stream telemetry packets and report live throughput

With --simulate an in-process simulated device is used instead of the
native SDK, for trying the tool without hardware.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Bool("simulate", false, "Use an in-process simulated device instead of the native SDK")
}

// setupSession loads configuration and, with --simulate, installs the
// simulator as the native factory.
func setupSession(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	logger, err := configureLogger(cmd, "verbose")
	if err != nil {
		return nil, nil, err
	}

	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate {
		sim := simsdk.New(logger, simsdk.DefaultOptions())
		nativefactory.SetFactory(func(*logrus.Logger) (native.API, error) {
			return sim, nil
		})
	}

	return cfg, logger, nil
}
