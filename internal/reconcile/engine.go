// Package reconcile merges the liquidity provider, the market aggregator and the stored
// history into one TokenData per asset.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/provider"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PairSource is the primary, load-bearing source.
type PairSource interface {
	Lookup(ctx context.Context, chainID, address string) (*provider.Pair, error)
}

// EnrichmentSource is the best-effort supplementary source.
type EnrichmentSource interface {
	ContractInfo(ctx context.Context, chainID, address string) (*provider.Enrichment, error)
}

// LogoValidator accepts a logo URL or rejects it with nil.
type LogoValidator interface {
	Validate(ctx context.Context, rawURL string) *string
}

// Reconciler produces a TokenData for an asset given its previously stored ATH.
type Reconciler interface {
	Reconcile(ctx context.Context, chainID, address string, priorATH decimal.NullDecimal) (*models.TokenData, error)
}

// Engine is the default Reconciler
type Engine struct {
	primary   PairSource
	secondary EnrichmentSource
	logos     LogoValidator
}

// NewEngine creates a reconciliation engine. secondary and logos may be nil.
func NewEngine(primary PairSource, secondary EnrichmentSource, logos LogoValidator) *Engine {
	return &Engine{primary: primary, secondary: secondary, logos: logos}
}

// Reconcile fetches the primary pair and the enrichment concurrently and merges them.
// A primary failure aborts the call; enrichment and logo failures degrade to absent data.
func (e *Engine) Reconcile(ctx context.Context, chainID, address string, priorATH decimal.NullDecimal) (*models.TokenData, error) {
	log := logrus.WithFields(logrus.Fields{"chain_id": chainID, "address": address})

	var (
		pair        *provider.Pair
		primaryLogo *string
		enrichment  *provider.Enrichment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.primary.Lookup(gctx, chainID, address)
		if err != nil {
			return err
		}
		pair = p
		primaryLogo = e.validate(gctx, p.ImageURL())
		return nil
	})
	g.Go(func() error {
		enrichment = e.enrich(gctx, chainID, address)
		return nil
	})

	if err := g.Wait(); err != nil {
		if !errors.Is(err, models.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("reconcile %s/%s: %w", chainID, address, err)
	}

	var fallbackLogo *string
	if primaryLogo == nil && enrichment != nil && enrichment.LogoURL != "" {
		fallbackLogo = e.validate(ctx, enrichment.LogoURL)
	}

	data, err := Merge(Input{
		Address:      address,
		Pair:         *pair,
		Enrichment:   enrichment,
		PriorATH:     priorATH,
		PrimaryLogo:  primaryLogo,
		FallbackLogo: fallbackLogo,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s/%s: %w", chainID, address, err)
	}

	if data.ATH.Valid && (!priorATH.Valid || data.ATH.Decimal.GreaterThan(priorATH.Decimal)) {
		log.WithFields(logrus.Fields{"prior_ath": priorATH, "ath": data.ATH}).Info("ATH advanced")
	} else {
		log.WithField("ath", data.ATH).Debug("ATH kept")
	}

	return &data, nil
}

func (e *Engine) enrich(ctx context.Context, chainID, address string) *provider.Enrichment {
	if e.secondary == nil {
		return nil
	}
	info, err := e.secondary.ContractInfo(ctx, chainID, address)
	if err != nil {
		entry := logrus.WithFields(logrus.Fields{"chain_id": chainID, "address": address}).WithError(err)
		if errors.Is(err, models.ErrUnsupportedPlatform) || ctx.Err() != nil {
			entry.Debug("No supplementary token data")
		} else {
			entry.Warn("Supplementary token data unavailable")
		}
		return nil
	}
	return info
}

func (e *Engine) validate(ctx context.Context, rawURL string) *string {
	if e.logos == nil || rawURL == "" {
		return nil
	}
	return e.logos.Validate(ctx, rawURL)
}
