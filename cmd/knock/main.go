package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darktohka/knockd/pkg/config"
	"github.com/darktohka/knockd/pkg/knocker"
	"github.com/darktohka/knockd/pkg/log"
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
	Use:   "knock",
	Short: "Knock - port knocking client",
	Long: `Knock plays a knock sequence against a host by attempting a TCP
connection to each port in order. Sequences come from a named rule in the
configuration file or directly from the command line.`,
	Version: Version,
	RunE:    runKnock,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Knock version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().StringP("config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.Flags().StringP("rule", "r", "", "The port knocking rule to execute")
	rootCmd.Flags().StringP("sequence", "s", "", "Comma-separated port sequence to play")
	rootCmd.Flags().StringP("host", "H", "", "The host to connect to")
	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress output")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")

	log.Init(log.Config{
		Level: log.Level(logLevel),
	})
}

func runKnock(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	ruleName, _ := cmd.Flags().GetString("rule")
	sequence, _ := cmd.Flags().GetString("sequence")
	host, _ := cmd.Flags().GetString("host")
	quiet, _ := cmd.Flags().GetBool("quiet")

	if sequence != "" {
		if host == "" {
			return fmt.Errorf("--sequence requires --host")
		}
		ports, err := parseSequence(sequence)
		if err != nil {
			return err
		}
		return knocker.PlaySequence(host, ports, quiet)
	}

	if ruleName != "" {
		cfg, err := knocker.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return knocker.New(cfg, quiet).Run(ruleName, host)
	}

	return fmt.Errorf("no rule provided")
}

func parseSequence(raw string) ([]uint16, error) {
	parts := strings.Split(raw, ",")
	ports := make([]uint16, 0, len(parts))
	for _, part := range parts {
		port, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q in sequence: %w", part, err)
		}
		ports = append(ports, uint16(port))
	}
	return ports, nil
}
