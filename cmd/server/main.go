package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teenpatti-game/internal/config"
	"teenpatti-game/internal/database"
	"teenpatti-game/internal/game"
	"teenpatti-game/internal/server"
	"teenpatti-game/internal/settlement"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "teenpatti",
		Short:         "Teen Patti game server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCmd(v, &cfgFile), newSimulateCmd(v, &cfgFile))
	return root
}

func newServeCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, *cfgFile)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("db-driver", database.DriverSQLite, "ledger driver (sqlite3 or pgx)")
	cmd.Flags().String("db-dsn", "./teenpatti.db", "ledger data source name")
	cmd.Flags().Duration("turn-timeout", 0, "fold players who stall longer than this (0 disables)")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("database.driver", cmd.Flags().Lookup("db-driver"))
	_ = v.BindPFlag("database.dsn", cmd.Flags().Lookup("db-dsn"))
	_ = v.BindPFlag("game.turn_timeout", cmd.Flags().Lookup("turn-timeout"))
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper, cfgFile string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	exchange := settlement.Exchange{
		TokensPerWei: cfg.Settlement.TokensPerWei,
		BuyFeeBps:    cfg.Settlement.BuyFeeBps,
		SellFeeBps:   cfg.Settlement.SellFeeBps,
	}
	if err := exchange.Validate(); err != nil {
		return fmt.Errorf("settlement: %w", err)
	}
	if cfg.Settlement.RakeBps > settlement.MaxRakeBps {
		return fmt.Errorf("settlement: %w: %d bps", settlement.ErrRakeTooHigh, cfg.Settlement.RakeBps)
	}

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := game.NewRegistry(logger)
	hub := server.NewHub(registry, settlement.NewLedgerOracle(db, logger), server.Options{
		Game: game.Config{
			MinPlayers: cfg.Game.MinPlayers,
			MaxPlayers: cfg.Game.MaxPlayers,
			MinStake:   cfg.Game.MinStake,
			Logger:     logger,
		},
		StartingChips: cfg.Game.StartingChips,
		TurnTimeout:   cfg.Game.TurnTimeout,
		RakeBps:       cfg.Settlement.RakeBps,
	}, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		server.ServeWs(hub, w, r)
	})
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	server.HandleRoutes(mux, &server.API{Results: db, Rooms: registry, Exchange: exchange, Log: logger})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting Teen Patti server", zap.String("addr", cfg.Server.Addr), zap.String("db", cfg.Database.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
