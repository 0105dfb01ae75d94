package embedding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/logger"
)

// embeddingTTL is how long a stored vector stays valid before the
// producer rebuilds it even without a description change.
const embeddingTTL = 30 * 24 * time.Hour

// Store reads embedding candidates and writes vectors.
type Store interface {
	SelectNeedingEmbedding(ctx context.Context, minTextChars, limit int) ([]*database.EmbeddingCandidate, error)
	Upsert(ctx context.Context, venueID string, vec pgvector.Vector, validUntil time.Time) error
	Count(ctx context.Context) (int, error)
}

// Config configures the Producer.
type Config struct {
	// BatchSize caps candidates per pass.
	BatchSize int

	// Interval is the sleep between passes in continuous mode.
	Interval time.Duration

	// MinTextChars gates out descriptions too short to embed usefully.
	MinTextChars int
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MinTextChars < 1 {
		return errors.New("min text chars must be at least 1")
	}
	return nil
}

// Producer embeds enriched venue descriptions in batches.
type Producer struct {
	config   Config
	provider Provider
	store    Store
	logger   logger.Interface
}

// NewProducer creates a Producer.
func NewProducer(cfg Config, provider Provider, store Store, log logger.Interface) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Producer{config: cfg, provider: provider, store: store, logger: log}, nil
}

// Run embeds continuously until the context is cancelled.
func (p *Producer) Run(ctx context.Context) error {
	p.logger.Info("embedding producer started",
		"batch_size", p.config.BatchSize,
		"interval", p.config.Interval,
	)

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error("embedding pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("embedding producer stopping")
			return nil
		case <-time.After(p.config.Interval):
		}
	}
}

// RunOnce embeds one batch and returns how many vectors were written.
// Per-venue failures are logged and skipped; only the candidate query
// itself fails the pass.
func (p *Producer) RunOnce(ctx context.Context) (int, error) {
	candidates, err := p.store.SelectNeedingEmbedding(ctx, p.config.MinTextChars, p.config.BatchSize)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, c := range candidates {
		text := BuildVenueText(c)
		if text == "" {
			continue
		}

		vec, embedErr := p.provider.Embed(ctx, text)
		if embedErr != nil {
			p.logger.Warn("failed to embed venue",
				"venue_id", c.VenueID,
				"error", embedErr,
			)
			continue
		}

		validUntil := time.Now().Add(embeddingTTL)
		if upsertErr := p.store.Upsert(ctx, c.VenueID, pgvector.NewVector(vec), validUntil); upsertErr != nil {
			p.logger.Error("failed to store embedding",
				"venue_id", c.VenueID,
				"error", upsertErr,
			)
			continue
		}
		written++
	}

	if len(candidates) > 0 {
		fields := []any{
			"candidates", len(candidates),
			"written", written,
		}
		if total, countErr := p.store.Count(ctx); countErr == nil {
			fields = append(fields, "stored_total", total)
		}
		p.logger.Info("embedding pass finished", fields...)
	}

	return written, nil
}

// BuildVenueText assembles the text a venue's vector is built from: name,
// category, description and feature list.
func BuildVenueText(c *database.EmbeddingCandidate) string {
	var parts []string
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	if c.CategoryName != nil && *c.CategoryName != "" {
		parts = append(parts, *c.CategoryName)
	}
	if c.Description != nil && *c.Description != "" {
		parts = append(parts, *c.Description)
	}
	if len(c.Features) > 0 {
		parts = append(parts, strings.Join(c.Features, " "))
	}
	return strings.TrimSpace(strings.Join(parts, ". "))
}
