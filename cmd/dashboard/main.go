package main

import (
	"fmt"
	"os"

	"github.com/example/orderdesk/pkg/config"
	"github.com/example/orderdesk/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Restaurant order and catalog dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			logger.Info("Starting dashboard",
				zap.String("service", cfg.Service.Name),
				zap.Int("port", cfg.Gateway.Port))

			return run(cmd.Context(), cfg, logger)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config/dashboard.yaml", "path to the YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
