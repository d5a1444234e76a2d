// Package cli wires the daemon's commands together.
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"threatsync-daemon/internal/config"
	"threatsync-daemon/internal/exchange"
	"threatsync-daemon/internal/graph"
	"threatsync-daemon/internal/signaltype"
	"threatsync-daemon/internal/store"
	"threatsync-daemon/internal/syncer"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "threatsync-daemon",
	Short:         "Sync ThreatExchange collaborations into local match signals",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		setupLogging(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to config file")
	rootCmd.AddCommand(runCmd, syncCmd, signalsCmd, checkpointCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// exchangeSource adapts the exchange API to the syncer's fetch interface.
type exchangeSource struct {
	api *exchange.API
}

func (s *exchangeSource) FetchIter(signalTypes []signaltype.SignalType, collab exchange.CollabConfig, checkpoint *exchange.Checkpoint) syncer.DeltaSource {
	return s.api.FetchIter(signalTypes, collab, checkpoint)
}

func buildManager() (*syncer.Manager, *store.Store, error) {
	client := graph.NewClient(cfg.Graph.BaseURL, cfg.Graph.AppToken)
	api := exchange.NewAPI(client)
	api.SetPageSize(cfg.Sync.PageSize)

	signalTypes, err := signaltype.ByName(cfg.Signals)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	manager := syncer.NewManager(&exchangeSource{api: api}, st, cfg, signalTypes)
	return manager, st, nil
}

func setupLogging(cfg config.LoggingConfig) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output = os.Stdout
	if cfg.Path != "" {
		file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to open log file, using stdout")
		} else {
			output = file
		}
	}

	// Configure format
	if cfg.Format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}
}
