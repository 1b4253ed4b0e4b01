package api

import (
	"context"
	"fmt"

	"github.com/progscout/progscout/internal/config"
	"github.com/progscout/progscout/internal/export"
	"github.com/progscout/progscout/internal/extractor"
	"github.com/progscout/progscout/internal/fetch"
	"github.com/progscout/progscout/internal/store"
	"github.com/progscout/progscout/internal/utils"
)

// Client bundles the pipeline end to end: fetch a page, extract a
// program record, keep it in the configured store.
type Client struct {
	store   *store.Store
	engine  *extractor.Engine
	fetcher fetch.Fetcher
	logger  utils.Logger
}

// NewClient builds a client from configuration.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	st, err := store.Open(ctx, cfg, store.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var fetcher fetch.Fetcher
	if cfg.Fetch.Render {
		fetcher = fetch.NewRenderer(fetch.RendererConfig{
			Timeout:   cfg.Fetch.Timeout,
			UserAgent: cfg.Fetch.UserAgent,
			Logger:    logger,
		})
	} else {
		fetcher = fetch.NewClient(fetch.ClientConfig{
			Timeout:       cfg.Fetch.Timeout,
			UserAgent:     cfg.Fetch.UserAgent,
			RatePerSecond: cfg.Fetch.RatePerSecond,
			Logger:        logger,
		})
	}

	return &Client{
		store:   st,
		engine:  extractor.NewEngine(logger),
		fetcher: fetcher,
		logger:  logger,
	}, nil
}

// Capture fetches the page and extracts a program record from it. The
// record is not stored; pass it to Save to commit it.
func (c *Client) Capture(ctx context.Context, pageURL string) (*ProgramRecord, error) {
	html, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	return c.ExtractHTML(pageURL, html)
}

// ExtractHTML extracts a program record from page HTML the caller
// already holds.
func (c *Client) ExtractHTML(pageURL, html string) (*ProgramRecord, error) {
	snapshot, err := extractor.NewSnapshot(pageURL, html)
	if err != nil {
		return nil, err
	}
	return c.engine.Extract(snapshot)
}

// Save commits a record to the store.
func (c *Client) Save(ctx context.Context, record ProgramRecord) (ProgramRecord, error) {
	return c.store.Add(ctx, record)
}

// List returns all saved programs.
func (c *Client) List(ctx context.Context) ([]ProgramRecord, error) {
	return c.store.List(ctx)
}

// Remove deletes a saved program by ID.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.store.Remove(ctx, id)
}

// Tier returns the current account tier.
func (c *Client) Tier(ctx context.Context) (TierState, error) {
	return c.store.Tier(ctx)
}

// SetTier updates the account tier.
func (c *Client) SetTier(ctx context.Context, tier TierState) error {
	return c.store.SetTier(ctx, tier)
}

// Export writes the saved programs to path in the given format.
func (c *Client) Export(ctx context.Context, path string, format export.Format) error {
	records, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	return export.Export(path, format, records)
}

// Store exposes the underlying record store for callers that need it
// directly, such as the HTTP server.
func (c *Client) Store() *store.Store { return c.store }

// Close releases the store and fetcher.
func (c *Client) Close() error {
	fetchErr := c.fetcher.Close()
	if err := c.store.Close(); err != nil {
		return err
	}
	return fetchErr
}
