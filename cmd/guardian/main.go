// Package main starts the AI-Guardian dashboard server: configuration,
// logging, the key/value store, alert notifications, the device simulator
// and the HTTP API.
package main

import (
	"cmp"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiguardian/guardian/internal/config"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagValues mirrors the command-line overrides. Only flags the user set
// are applied on top of the loaded config.
type flagValues struct {
	configPath  string
	addr        string
	store       string
	redisAddr   string
	databaseDSN string
	natsURL     string
	logLevel    string
	matchRate   float64
}

func rootCmd() *cobra.Command {
	return newRootCmd(&flagValues{})
}

func newRootCmd(fv *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Biometric device security dashboard",
		Long: `guardian serves the AI-Guardian dashboard API: user sessions with
face enrollment, mock lockable devices, simulated face authentication
and a security alert log.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options, err := config.Load(fv.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, fv, options); err != nil {
				return err
			}
			return run(cmd.Context(), options)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&fv.configPath, "config", "c", "", "Config file path (JSON or YAML)")
	flags.StringVarP(&fv.addr, "addr", "a", "", "Listen address (host:port)")
	flags.StringVar(&fv.store, "store", "", "Key/value store: memory, redis or postgres")
	flags.StringVar(&fv.redisAddr, "redis-addr", "", "Redis address")
	flags.StringVarP(&fv.databaseDSN, "database-dsn", "d", "", "PostgreSQL connection string")
	flags.StringVar(&fv.natsURL, "nats-url", "", "NATS server URL for alert publishing")
	flags.StringVar(&fv.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.Float64Var(&fv.matchRate, "match-rate", 0, "Probability of a successful mock face match")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Build version: %s\nBuild date: %s\n",
				cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		},
	})

	return cmd
}

// applyFlags copies explicitly set flags into options and revalidates.
func applyFlags(cmd *cobra.Command, fv *flagValues, options *config.Options) error {
	flags := cmd.Flags()
	set := func(name, value string, dst *string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("addr", fv.addr, &options.Addr)
	set("store", fv.store, &options.Store)
	set("redis-addr", fv.redisAddr, &options.RedisAddr)
	set("database-dsn", fv.databaseDSN, &options.DatabaseDSN)
	set("nats-url", fv.natsURL, &options.NATSURL)
	set("log-level", fv.logLevel, &options.LogLevel)
	if flags.Changed("match-rate") {
		options.MatchRate = fv.matchRate
	}
	return options.Validate()
}
