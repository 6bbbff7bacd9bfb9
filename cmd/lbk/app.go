package main

import (
	"fmt"
	"log"

	"github.com/spf13/viper"

	"github.com/Vadko/lbk-launcher/internal/remote"
	"github.com/Vadko/lbk-launcher/internal/store"
	"github.com/Vadko/lbk-launcher/internal/sync"
)

// app bundles the wired-up catalog components a command needs.
type app struct {
	store  *store.Store
	writer *store.Writer
	repo   *store.Repository
}

// openApp opens and migrates the local store. Close must be called when done.
func openApp(logger *log.Logger) (*app, error) {
	s, err := store.Open(dbPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate catalog database: %w", err)
	}

	return &app{
		store:  s,
		writer: store.NewWriter(s, logger),
		repo:   store.NewRepository(s),
	}, nil
}

// orchestrator wires a sync orchestrator against the configured catalog API.
func (a *app) orchestrator(logger *log.Logger, config *sync.Config) (*sync.Orchestrator, error) {
	apiURL := viper.GetString("api_url")
	if apiURL == "" {
		return nil, fmt.Errorf("catalog API URL is not configured (--api-url, LBK_API_URL, or config file)")
	}

	client, err := remote.NewClient(&remote.ClientConfig{
		BaseURL: apiURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = &sync.Config{}
	}
	if config.Logger == nil {
		config.Logger = logger
	}
	return sync.New(a.writer, a.repo, client, config), nil
}

func (a *app) Close() {
	a.writer.Close()
	_ = a.store.Close()
}
