package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/cms-page-cache/internal/config"
	"github.com/Sternrassler/cms-page-cache/pkg/aggregator"
	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/Sternrassler/cms-page-cache/pkg/locale"
	"github.com/Sternrassler/cms-page-cache/pkg/logging"
	"github.com/Sternrassler/cms-page-cache/pkg/normalize"
	"github.com/Sternrassler/cms-page-cache/pkg/pagination"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	agg        *aggregator.Aggregator
	normalizer *normalize.Normalizer
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
		a          = &app{}
	)

	root := &cobra.Command{
		Use:           "cms-page-cache",
		Short:         "Page-scoped CMS content cache",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.NewLoader(config.EnvPrefix, configFile).Load(cmd.Context())
			if err != nil {
				return err
			}
			return a.build(cfg)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(a), newPageCmd(a), newWarmCmd(a))
	return root
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// build wires the content pipeline from cfg.
func (a *app) build(cfg config.Config) error {
	a.cfg = cfg
	logging.Setup(cfg.LoggingConfig())
	a.logger = logging.NewLogger("cli")

	reg, err := cfg.LoadRegistry()
	if err != nil {
		return err
	}

	c, err := client.New(cfg.ClientConfig(), reg)
	if err != nil {
		return fmt.Errorf("content client: %w", err)
	}

	a.agg, err = aggregator.New(aggregator.Options{
		Registry:       reg,
		Fetcher:        c,
		Locales:        locale.New(cfg.LocaleConfig()),
		Caches:         aggregator.NewCaches(cfg.CacheSettings()),
		MaxConcurrency: cfg.Aggregator.MaxConcurrency,
		Coalesce:       cfg.Aggregator.Coalesce,
		DegradedTTL:    cfg.Aggregator.DegradedTTL,
		Pagination:     pagination.DefaultConfig(),
	})
	if err != nil {
		return err
	}

	a.normalizer = normalize.New(normalize.Options{MediaBaseURL: cfg.MediaBaseURL()})
	return nil
}
