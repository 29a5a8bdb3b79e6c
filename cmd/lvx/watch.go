package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/lvx/lidar"
	"github.com/srg/lvx/native"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [broadcast-code]",
	Short: "Stream telemetry from a device",
	Long: `Connect to a device, drive it into normal mode and stream telemetry,
reporting packet and point throughput once per second.

With no broadcast code, the first discovered device is used. No point data is
written anywhere; this command only reports live statistics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchDuration  time.Duration
	watchSpherical bool
	watchWaitState time.Duration
)

func init() {
	watchCmd.Flags().DurationVarP(&watchDuration, "duration", "d", 0, "How long to stream (0 for until interrupted)")
	watchCmd.Flags().BoolVar(&watchSpherical, "spherical", false, "Request spherical instead of cartesian point encoding")
	watchCmd.Flags().DurationVar(&watchWaitState, "state-timeout", 30*time.Second, "How long to wait for device state transitions")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	dev, err := pickDevice(ctx, sdk, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s (handle %d)\n", dev.BroadcastCode(), dev.Handle())

	waitCtx, cancel := context.WithTimeout(ctx, watchWaitState)
	defer cancel()
	if err := dev.WaitForState(waitCtx, lidar.MaskAny); err != nil {
		return fmt.Errorf("device never reported a state: %w", err)
	}

	if err := dev.SetMode(native.LidarModeNormal); err != nil {
		return err
	}
	if err := dev.WaitForState(waitCtx, lidar.MaskNormal); err != nil {
		return fmt.Errorf("device did not reach normal mode: %w", err)
	}

	system := native.CoordinateCartesian
	if watchSpherical {
		system = native.CoordinateSpherical
	}
	if err := dev.SetCoordinateSystem(system); err != nil {
		return err
	}

	ds, err := dev.StartSampling()
	if err != nil {
		return err
	}
	defer ds.Close()

	return streamStats(ctx, cmd, sdk, ds)
}

// pickDevice connects to the requested code, or polls discovery for the
// first device.
func pickDevice(ctx context.Context, sdk *lidar.Sdk, args []string) (*lidar.Device, error) {
	if len(args) == 1 {
		return sdk.Connect(args[0])
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if codes := sdk.ListKnownDevices(); len(codes) > 0 {
			return sdk.Connect(codes[0])
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// streamStats drains the stream and prints per-second throughput until the
// duration elapses or the context is cancelled.
func streamStats(ctx context.Context, cmd *cobra.Command, sdk *lidar.Sdk, ds *lidar.DataStream) error {
	var deadline <-chan time.Time
	if watchDuration > 0 {
		deadline = time.After(watchDuration)
	}

	report := time.NewTicker(time.Second)
	defer report.Stop()

	var packets, points uint64
	bold := color.New(color.Bold)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case dp := <-ds.C():
			packets++
			points += uint64(len(dp.Points))
		case <-report.C:
			if err := sdk.Fault(); err != nil {
				return fmt.Errorf("native layer fault: %w", err)
			}
			m := ds.Metrics()
			bold.Fprintf(cmd.OutOrStdout(), "%d packets/s, %d points/s", packets, points)
			if m.Overwritten > 0 {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), " (%d dropped total)", m.Overwritten)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			packets, points = 0, 0
		}
	}
}
