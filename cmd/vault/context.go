package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
	"vaultgallery/internal/curation"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/rating"
	"vaultgallery/internal/resolver"
	"vaultgallery/internal/selection"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// vault bundles the components a command needs when it works on the catalog
// directly.
type vault struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	media    mediastore.Store
	resolver *resolver.Resolver
	engine   *selection.Engine
	curation *curation.Service
	ratings  *rating.Service
}

func (c *commandContext) openVault(ctx context.Context) (*vault, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}
	media, err := mediastore.New(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	res := resolver.New(store, logger)
	return &vault{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		media:    media,
		resolver: res,
		engine:   selection.New(store, cfg, selection.WithMedia(media, logger)),
		curation: curation.New(store, media, logger),
		ratings:  rating.NewService(cfg, store, media, logger),
	}, nil
}

func (v *vault) Close() {
	v.ratings.Close()
	v.store.Close()
}

// withVault opens the catalog for the duration of fn.
func (c *commandContext) withVault(cmd *cobra.Command, fn func(context.Context, *vault) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	v, err := c.openVault(ctx)
	if err != nil {
		return err
	}
	defer v.Close()
	return fn(ctx, v)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
