package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"q3scout/internal/config"
	"q3scout/internal/httpapi"
	"q3scout/internal/metrics"
	"q3scout/internal/servers"
)

var appCfg config.Config

var rootCmd = &cobra.Command{
	Use:   "q3scout",
	Short: "Query a q3 master server and watch player activity",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, &cfg)
		appCfg = cfg
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(config.LoggerLevelFromString(cfg.LoggerLevel))
		return nil
	},
	SilenceUsage: true,
}

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Print every server with active players",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQuerier(nil)
		if err != nil {
			return err
		}
		defer q.Close()

		fmt.Fprintln(cmd.OutOrStdout(), q.ActiveServers())
		return nil
	},
}

var peekCmd = &cobra.Command{
	Use:   "peek",
	Short: "Print the busiest server",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQuerier(nil)
		if err != nil {
			return err
		}
		defer q.Close()

		fmt.Fprintln(cmd.OutOrStdout(), q.CheckPeekActivity(0, 0))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch for activity peaks and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		var m metrics.Metrics = metrics.Noop{}
		if appCfg.StatsdAddr != "" {
			hostname, _ := os.Hostname()
			statsd := metrics.NewStatsd(hostname, appCfg.StatsdPrefix, appCfg.StatsdAddr)
			defer statsd.Close()
			m = statsd
		}

		q, err := newQuerier(m)
		if err != nil {
			return err
		}
		defer q.Close()

		watchDone := servers.StartPeekWatch(ctx, q, appCfg.PeekInterval, appCfg.PeekPeriod, appCfg.PeekMinPlayers, func(line string) {
			log.Info().Str("event", "peek").Msg(line)
		})

		api := httpapi.New(q)
		api.StartJanitor(ctx)
		srv := &http.Server{
			Addr:              appCfg.HTTPAddr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info().Msgf("listening on %s", appCfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start http server: %w", err)
		}
		<-watchDone
		return nil
	},
}

func newQuerier(m metrics.Metrics) (*servers.Querier, error) {
	var opts []servers.Option
	if m != nil {
		opts = append(opts, servers.WithMetrics(m))
	}
	q, err := servers.New(servers.Config{
		MasterHost: appCfg.MasterHost,
		MasterPort: appCfg.MasterPort,
		Protocol:   appCfg.Protocol,
		UseColor:   appCfg.UseColor,
		Timeout:    appCfg.Timeout,
		URIScheme:  appCfg.URIScheme,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init querier: %w", err)
	}
	return q, nil
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("master") {
		cfg.MasterHost, _ = flags.GetString("master")
	}
	if flags.Changed("port") {
		cfg.MasterPort, _ = flags.GetUint16("port")
	}
	if flags.Changed("protocol") {
		cfg.Protocol, _ = flags.GetInt("protocol")
	}
	if flags.Changed("color") {
		cfg.UseColor, _ = flags.GetBool("color")
	}
	if flags.Changed("listen") {
		cfg.HTTPAddr, _ = flags.GetString("listen")
	}
}

func main() {
	rootCmd.PersistentFlags().String("master", "", "master server host (overrides MASTER_HOST)")
	rootCmd.PersistentFlags().Uint16("port", 0, "master server port (overrides MASTER_PORT)")
	rootCmd.PersistentFlags().Int("protocol", 0, "game protocol version (overrides PROTOCOL)")
	rootCmd.PersistentFlags().Bool("color", false, "emit BB style codes (overrides USE_COLOR)")
	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides HTTP_ADDR)")

	rootCmd.AddCommand(activeCmd, peekCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("q3scout failed")
	}
}
