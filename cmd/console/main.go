package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pranaypatel512/KiteMCP/api"
	"github.com/pranaypatel512/KiteMCP/internal/config"
	"github.com/pranaypatel512/KiteMCP/pkg/analytics"
	"github.com/pranaypatel512/KiteMCP/pkg/gateway"
	"github.com/pranaypatel512/KiteMCP/pkg/kite"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kite-console",
		Short: "Single-user Zerodha Kite web console",
		Long:  `A web console that authenticates against a Kite Connect account, relays holdings, positions and orders, and streams near-real-time quotes over WebSocket`,
		Run:   runConsole,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runConsole(cmd *cobra.Command, args []string) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Missing brokerage credentials are a startup failure, never a runtime one.
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := kite.NewRESTClient(cfg.Kite.APIKey, cfg.Kite.APISecret)
	session := gateway.NewSession()
	registry := gateway.NewRegistry(logger)
	engine := analytics.NewEngine(nil)

	gw := gateway.New(client, session, registry, engine, logger)
	router := gateway.NewRouter(gw, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := api.NewServer(gw, router, logger, addr)
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Kite console is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	if err := gw.Logout(ctx); err != nil {
		logger.WithError(err).Debug("Session cleanup on shutdown")
	}
	cancel()

	logger.Info("Kite console stopped")
}
