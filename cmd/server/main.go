package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirestream/internal/app"
	"github.com/vovakirdan/wirestream/internal/config"
	applog "github.com/vovakirdan/wirestream/internal/log"
)

var (
	cfgFile  string
	addr     string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "wirestream",
	Short: "Room and stream coordination server",
	Long: `wirestream tracks rooms, viewers and room activity in a shared store
so that several server processes can serve the same rooms.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bootLog := applog.New(logLevel)

		cfg, path, err := config.Load(bootLog, cfgFile)
		if err != nil {
			return err
		}
		cfg.UpdateFrom(config.Config{Addr: addr, LogLevel: logLevel})

		logger := applog.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
		logger.Info().Str("config", path).Msg("configuration loaded")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}

		logger.Info().Str("addr", cfg.Addr).Msg("starting wirestream server")
		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("server exited with error: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
