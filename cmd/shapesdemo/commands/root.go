// Package commands implements shapesdemo's cobra command tree, following
// dfsctl's convention of one file per subcommand sharing a package-level
// root command.
package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marmos91/dittofs/internal/logger"
	"github.com/marmos91/dittofs/internal/telemetry"
	ddsconfig "github.com/marmos91/dittofs/pkg/config"
	"github.com/marmos91/dittofs/pkg/metrics"

	// Registers Prometheus-backed constructors with pkg/metrics.
	_ "github.com/marmos91/dittofs/pkg/metrics/prometheus"
)

var (
	domainID       int
	shapeColor     string
	logLevel       string
	configFile     string
	traceEndpoint  string
	metricsAddr    string
	processConf    ddsconfig.Configuration
	telemetryClose func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "shapesdemo",
	Short: "DDS Shapes demo over the RTPS core",
	Long: `shapesdemo publishes or subscribes to moving colored squares on the
"Square" topic, the reference scenario real DDS implementations use to
demonstrate interoperable discovery and data exchange.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.Config{Level: logLevel, Format: "text", Output: "stderr"}); err != nil {
			return err
		}
		v := viper.New()
		if configFile != "" {
			v.SetConfigFile(configFile)
		} else {
			v.SetConfigName("shapesdemo")
			v.AddConfigPath(".")
		}
		v.SetEnvPrefix("SHAPESDEMO")
		v.AutomaticEnv()
		cfg, err := ddsconfig.Load(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		processConf = cfg

		shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
			Enabled:        traceEndpoint != "",
			ServiceName:    "shapesdemo",
			ServiceVersion: "dev",
			Endpoint:       traceEndpoint,
			Insecure:       true,
			SampleRate:     1.0,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		telemetryClose = shutdown

		if metricsAddr != "" {
			metrics.InitRegistry()
			r := chi.NewRouter()
			r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
			go func() {
				if err := http.ListenAndServe(metricsAddr, r); err != nil {
					logger.Warnf("shapesdemo: metrics server stopped: %v", err)
				}
			}()
			logger.Infof("shapesdemo: metrics listening on %s/metrics", metricsAddr)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryClose == nil {
			return nil
		}
		return telemetryClose(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&domainID, "domain", 0, "RTPS domain id")
	rootCmd.PersistentFlags().StringVar(&shapeColor, "color", "BLUE", "shape color (also the topic instance key)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "DEBUG, INFO, WARN, or ERROR")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a shapesdemo config file (domain_tag, interface_name, fragment_size)")
	rootCmd.PersistentFlags().StringVar(&traceEndpoint, "trace-endpoint", "", "OTLP gRPC endpoint for write/take spans (disabled when empty)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (disabled when empty)")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(subscribeCmd)
}

// Execute runs the shapesdemo command tree.
func Execute() error {
	return rootCmd.Execute()
}
