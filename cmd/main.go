package main

import (
	"fmt"
	"os"

	"github.com/fjod/go_cart/cartstore/internal/config"
	"github.com/fjod/go_cart/cartstore/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *config.Config
	log        *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cartstore",
	Short: "Shoose storefront cart store",
	Long: `cartstore keeps the storefront cart of one device: it persists the cart
under a fixed key, keeps every open view in sync and places mocked orders.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.FromEnv()
		if err != nil {
			return err
		}
		if configPath != "" {
			if err := cfg.LoadFile(configPath); err != nil {
				return err
			}
		}

		log, err = logger.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overlaid on the environment configuration")
	rootCmd.AddCommand(serveCmd, productsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
