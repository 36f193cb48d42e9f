// Command hr-listen streams live heart-rate readings and clip notifications
// from HypeRate to the terminal.
//
// Usage:
//
//	HYPERATE_API_TOKEN=... hr-listen --device ABC123 --clips ABC123
//	hr-listen --config hr-listen.yaml --metrics-addr :9090
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/layr8/hyperate-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		flags      listenConfig
	)

	cmd := &cobra.Command{
		Use:   "hr-listen",
		Short: "Stream HypeRate heart rates and clips",
		Long: `hr-listen joins the HypeRate heart-rate and clips channels of one or
more devices and prints every update. Lost connections are retried with
exponential backoff and all channels are joined again.

The API token is read from --token, the config file or HYPERATE_API_TOKEN.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, file.merge(flags), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVar(&flags.Token, "token", "", "HypeRate API token")
	f.StringVar(&flags.Endpoint, "endpoint", "", "socket endpoint (default "+hyperate.DefaultEndpoint+")")
	f.StringSliceVarP(&flags.Devices, "device", "d", nil, "device ID or share URL to follow heart rate for (repeatable)")
	f.StringSliceVar(&flags.Clips, "clips", nil, "device ID or share URL to follow clips for (repeatable)")
	f.StringVar(&flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	f.StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&flags.DatabaseURL, "database-url", "", "store heartbeats and clips in this PostgreSQL database")
	return cmd
}

func run(ctx context.Context, cfg listenConfig, out, errOut io.Writer) error {
	topics, err := cfg.topics()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, errOut)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := hyperate.NewClient(
		hyperate.Config{Endpoint: cfg.Endpoint, APIToken: cfg.Token},
		hyperate.WithLogger(log),
		hyperate.WithMetricsRegistry(reg),
	)
	if err != nil {
		return errors.Wrap(err, "create client")
	}
	defer client.Close()

	p := newPrinter(out)
	client.OnHeartbeat(p.heartbeat)
	client.OnClip(p.clipCreated)
	client.OnChannelJoined(func(topic string) { p.channel(topic, "joined") })
	client.OnChannelLeft(func(topic string) { p.channel(topic, "left") })

	if cfg.DatabaseURL != "" {
		sink, closeDB, err := openPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer closeDB()
		client.OnHeartbeat(func(hb hyperate.Heartbeat) {
			if err := sink.heartbeat(hb); err != nil {
				log.WithError(err).WithField("device", hb.DeviceID).Warn("store heartbeat")
			}
		})
		client.OnClip(func(c hyperate.Clip) {
			if err := sink.clip(c); err != nil {
				log.WithError(err).WithField("device", c.DeviceID).Warn("store clip")
			}
		})
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(log, cfg.MetricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	log.WithField("channels", topics).Info("starting")
	return newSupervisor(client, topics, log).run(ctx)
}

func serveMetrics(log logrus.FieldLogger, addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}
