// Package lidar exposes a pull-based interface over the callback-driven
// native LiDAR SDK: session lifecycle, device discovery and connection, mode
// and state handling, and per-device packet streams.
//
// Typical use:
//
//	sdk, err := lidar.New(nil, nil)
//	if err != nil { ... }
//	defer sdk.Close()
//
//	// Discovery is polled, not pushed.
//	var dev *lidar.Device
//	for dev == nil {
//		if codes := sdk.ListKnownDevices(); len(codes) > 0 {
//			dev, err = sdk.Connect(codes[0])
//		}
//	}
//
//	dev.WaitForState(ctx, lidar.MaskAny)
//	dev.SetMode(native.LidarModeNormal)
//	dev.WaitForState(ctx, lidar.MaskNormal)
//
//	ds, err := dev.StartSampling()
//	defer ds.Close()
//	for {
//		if dp, ok := ds.Poll(); ok {
//			// consume dp.Points
//		}
//	}
package lidar
