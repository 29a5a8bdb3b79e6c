package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/lvx/lidar"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover LiDAR devices",
	Long: `Listen for device broadcasts and display the discovered devices.

Discovery is pull-based: the session collects broadcast codes in the
background and this command polls the known-devices set for the given
duration.`,
	RunE: runScan,
}

var scanDuration time.Duration

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "How long to listen for broadcasts")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setupSession(cmd)
	if err != nil {
		return err
	}

	sdk, err := lidar.New(cfg, logger)
	if err != nil {
		return err
	}
	defer sdk.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening for broadcasts for %s...\n", scanDuration)

	deadline := time.After(scanDuration)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	seen := make(map[string]bool)
poll:
	for {
		select {
		case <-ctx.Done():
			break poll
		case <-deadline:
			break poll
		case <-ticker.C:
			for _, code := range sdk.ListKnownDevices() {
				if !seen[code] {
					seen[code] = true
					color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "discovered %s\n", code)
				}
			}
		}
	}

	codes := sdk.ListKnownDevices()
	if len(codes) == 0 {
		color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "No devices discovered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BROADCAST CODE")
	for _, code := range codes {
		fmt.Fprintln(w, code)
	}
	return w.Flush()
}
