// Package hyperate provides a Go client for the HypeRate channel socket.
//
// The socket speaks the Phoenix Channel protocol. A Client keeps one
// connection open, multiplexes heart-rate ("hr:<device>") and clip
// ("clips:<device>") channels over it, correlates joins and leaves with the
// server's replies, and restores channel membership on Reconnect.
//
// Basic usage:
//
//	client, err := hyperate.NewClient(hyperate.Config{
//	    APIToken: os.Getenv("HYPERATE_API_TOKEN"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.OnHeartbeat(func(hb hyperate.Heartbeat) {
//	    log.Printf("%s: %d bpm", hb.DeviceID, hb.BPM)
//	})
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.JoinHeartbeatChannel(ctx, "internal-testing"); err != nil {
//	    log.Fatal(err)
//	}
package hyperate
