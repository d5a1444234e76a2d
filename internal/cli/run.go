package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info().Msg("Starting threatsync daemon")

		manager, st, err := buildManager()
		if err != nil {
			return err
		}
		defer st.Close()

		if cfg.Metrics.Enabled {
			startMetrics(cfg.Metrics.Addr)
		}

		// Handle shutdown gracefully
		ctx, cancel := context.WithCancel(cmd.Context())
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			<-sigCh
			log.Info().Msg("Shutting down...")
			cancel()
		}()

		if err := manager.Run(ctx); err != nil {
			return err
		}

		log.Info().Msg("Daemon stopped")
		return nil
	},
}

func startMetrics(addr string) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := http.ListenAndServe(addr, router); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}
