package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intents/internal/config"
	"intents/internal/logging"
)

// rootOptions holds the persistent flags and what PersistentPreRunE builds
// from them.
type rootOptions struct {
	configPath string
	dir        string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "intents",
		Short: "Generate, store, validate and repair LLM-written intents",
		Long: `intents asks a locally hosted model to write small Python programs ("intents")
from a natural-language description, keeps them as files in one directory,
and validates or repairs them on demand.

Run "intents serve" for the web interface.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultFile, "config file (optional)")
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "intent directory (overrides config and INTENTS_DIR)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newListCmd(opts),
		newValidateCmd(opts),
		newCreateCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func (o *rootOptions) init() error {
	envFile, err := config.LoadEnvFile()
	if err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if o.dir != "" {
		cfg.Store.Dir = o.dir
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if envFile != "" {
		logger.Debug("✅ [ENV] loaded .env file", zap.String("path", envFile))
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
