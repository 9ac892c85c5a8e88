package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darktohka/knockd/pkg/config"
	"github.com/darktohka/knockd/pkg/detector"
	"github.com/darktohka/knockd/pkg/executor"
	"github.com/darktohka/knockd/pkg/lifecycle"
	"github.com/darktohka/knockd/pkg/log"
	"github.com/darktohka/knockd/pkg/metrics"
	"github.com/darktohka/knockd/pkg/sniffer"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "knockd",
	Short: "Knockd - port knocking daemon",
	Long: `Knockd watches a network interface for TCP SYN packets and runs an
activation command when a client completes a configured knock sequence,
typically opening a firewall port for that client. Activations can expire
after a configured lifetime, firing a deactivation command.`,
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Knockd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().StringP("config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.Flags().String("metrics-addr", "", "Address for the metrics/health endpoint (disabled when empty)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	// Initialize logging before command execution
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	metrics.SetVersion(Version)

	exec := executor.NewShell()
	det := detector.New(cfg, exec)

	lifecycle.Setup(cfg, exec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	det.Start()
	metrics.RegisterComponent("detector", true, "")

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", metrics.HealthHandler())
		mux.HandleFunc("/readyz", metrics.ReadyHandler())

		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Errorf("metrics server failed", err)
			}
		}()
		metricsLogger := log.WithComponent("metrics")
		metricsLogger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")
	}

	snif := sniffer.New(cfg.Interface, det)
	errCh := make(chan error, 1)
	go func() {
		metrics.RegisterComponent("sniffer", true, "")
		errCh <- snif.Run(ctx)
	}()

	// Wait for interrupt signal or capture error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("packet capture failed: %w", err)
		} else {
			log.Info("packet capture finished")
		}
	}

	cancel()
	det.Stop()
	lifecycle.Teardown(cfg, exec)
	return runErr
}
