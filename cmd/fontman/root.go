package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/fontman/internal/catalog"
	"github.com/ZebulonRouseFrantzich/fontman/internal/config"
	"github.com/ZebulonRouseFrantzich/fontman/internal/fontdir"
	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags and the seams tests replace.
type rootOptions struct {
	configPath string
	logLevel   string

	detector platform.Detector
}

// environment is everything a command needs once flags are parsed.
type environment struct {
	cfg     *config.Config
	info    *platform.Info
	catalog *catalog.Catalog
	fonts   *fontdir.Manager
	log     logging.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{detector: platform.NewDetector()})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fontman",
		Short: "Install and remove fonts",
		Long: `fontman installs font packages into your per-user font directory from
the Nerd Fonts collection, a local zip archive or a zip archive URL, and
removes them again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $FONTMAN_CONFIG or <user config dir>/fontman/config.lua)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default $"+logging.EnvLogLevel+" or info)")

	cmd.AddCommand(
		newInstallCmd(opts),
		newUninstallCmd(opts),
		newListCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load resolves configuration, platform, catalog and font root. The
// catalog is loaded here so a broken catalog fails before any work.
func (o *rootOptions) load(ctx context.Context) (*environment, error) {
	logger := logging.NewFromEnv(o.logLevel)

	info, err := o.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	static := platform.Static{Info: info}

	cfg, err := config.Load(ctx, o.configPath, static)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var cat *catalog.Catalog
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(ctx, cfg.CatalogFile, static)
	} else {
		cat, err = catalog.Load(ctx, static)
	}
	if err != nil {
		return nil, fmt.Errorf("load font catalog: %w", err)
	}

	root, err := fontdir.DefaultRoot(os.UserHomeDir, cfg.FontsDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("environment ready", "fonts", root, "os", info.OS, "catalog", len(cat.Names()))

	return &environment{
		cfg:     cfg,
		info:    info,
		catalog: cat,
		fonts:   fontdir.New(root),
		log:     logger,
	}, nil
}
