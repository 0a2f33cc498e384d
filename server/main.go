// Command server runs the canvas HTTP API and its maintenance commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/canvas/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "canvas",
	Short:         "Agent workflow canvas editor service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "canvas.yaml", "Path to the YAML config file")
	rootCmd.AddCommand(
		serveCmd(),
		schemaCmd(),
	)
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader().WithConfigPath(configPath).Load()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
