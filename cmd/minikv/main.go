package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/minikv/minikv/internal/config"
	"github.com/minikv/minikv/internal/logger"
	"github.com/minikv/minikv/internal/server"
	"github.com/minikv/minikv/internal/store"
	"github.com/minikv/minikv/internal/version"
	"github.com/minikv/minikv/internal/web"
)

var rootCmd = &cobra.Command{
	Use:   "minikv",
	Short: "minikv is an in-memory key-value server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("minikv %s (built %s)\n", version.Version, version.BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initEnv)

	serveCmd.Flags().String("host", config.DefaultHost, "bind address")
	serveCmd.Flags().Int("port", config.DefaultPort, "listen port")
	serveCmd.Flags().Int("max-clients", config.DefaultMaxClients, "maximum concurrent client connections")
	serveCmd.Flags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	serveCmd.Flags().String("log-file", "", "log file path, empty logs to stdout")
	serveCmd.Flags().String("stats-addr", "", "stats/metrics HTTP listen address, empty disables")

	rootCmd.AddCommand(serveCmd, versionCmd)
}

// initEnv loads a .env file if present and maps MINIKV_* environment
// variables onto the flag keys (MINIKV_MAX_CLIENTS -> max-clients).
func initEnv() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("MINIKV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromViper(viper.GetViper())

	logger.Init(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()
	logger.Infof("minikv %s starting\n%s", version.Version, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New()

	if cfg.StatsAddr != "" {
		go func() {
			if err := web.New(cfg.StatsAddr, st).Start(ctx); err != nil {
				logger.Errorf("stats server: %v", err)
			}
		}()
	}

	srv := server.New(server.Config{Addr: cfg.Addr(), MaxClients: cfg.MaxClients}, st)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
