package ticker

import (
	"context"
	"fmt"
	"strings"

	"github.com/giorgiojulius/cryptojulius/internal/contracts"
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/provider"
	"github.com/giorgiojulius/cryptojulius/internal/valuation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const dataConcurrency = 4

// ContractResolver returns the contracts of a project id.
type ContractResolver interface {
	Contracts(ctx context.Context, projectID string) ([]string, error)
}

// PairSource lists the trading pairs of a token.
type PairSource interface {
	TokenPairs(ctx context.Context, address string) ([]provider.Pair, error)
}

// Data is the market summary of one ticker
type Data struct {
	ID        string          `json:"id"`
	Contract  string          `json:"contract"`
	MCap      decimal.Decimal `json:"mcap"`
	Liquidity decimal.Decimal `json:"liquidity"`
	MoatRatio decimal.Decimal `json:"moatRatio"`
}

// Analysis is the market snapshot of a project id
type Analysis struct {
	Contract  string          `json:"contract"`
	MCap      decimal.Decimal `json:"mcap"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Volume    decimal.Decimal `json:"volume"`
}

// Service defines ticker service operations
type Service interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	Data(ctx context.Context) ([]Data, error)
	Analyze(ctx context.Context, id string) (*Analysis, error)
}

type service struct {
	list      *List
	contracts ContractResolver
	pairs     PairSource
}

// NewService creates a new ticker service
func NewService(list *List, resolver ContractResolver, pairs PairSource) Service {
	return &service{list: list, contracts: resolver, pairs: pairs}
}

func (s *service) List(ctx context.Context) ([]string, error) {
	return s.list.All()
}

func (s *service) Add(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	return s.list.Add(id)
}

func (s *service) Remove(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	return s.list.Remove(id)
}

// Data summarises every ticker that resolves to a contract. Tickers without contracts or
// whose lookups fail are left out.
func (s *service) Data(ctx context.Context) ([]Data, error) {
	tickers, err := s.list.All()
	if err != nil {
		return nil, err
	}

	results := make([]*Data, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dataConcurrency)

	for i, id := range tickers {
		g.Go(func() error {
			snapshot, err := s.snapshot(gctx, id)
			if err != nil {
				logrus.WithError(err).WithField("ticker", id).Warn("Ticker data unavailable")
				return nil
			}
			results[i] = &Data{
				ID:        id,
				Contract:  snapshot.Contract,
				MCap:      snapshot.MCap,
				Liquidity: snapshot.Liquidity,
				MoatRatio: valuation.LiquidityRatio(snapshot.MCap, snapshot.Liquidity),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make([]Data, 0, len(results))
	for _, d := range results {
		if d != nil {
			data = append(data, *d)
		}
	}
	return data, nil
}

func (s *service) Analyze(ctx context.Context, id string) (*Analysis, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, id)
}

// snapshot reads the first pair of the preferred contract. A token without pairs yields zeros.
func (s *service) snapshot(ctx context.Context, id string) (*Analysis, error) {
	known, err := s.contracts.Contracts(ctx, id)
	if err != nil {
		return nil, err
	}
	contract, ok := contracts.Preferred(known)
	if !ok {
		return nil, fmt.Errorf("contracts for %s: %w", id, models.ErrNotFound)
	}

	pairs, err := s.pairs.TokenPairs(ctx, contract)
	if err != nil {
		return nil, err
	}
	analysis := &Analysis{Contract: contract}
	if len(pairs) > 0 {
		analysis.MCap = pairs[0].MarketCapUSD()
		analysis.Liquidity = pairs[0].LiquidityUSD()
		analysis.Volume = pairs[0].Volume.H24
	}
	return analysis, nil
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 {
		return "", fmt.Errorf("%w: invalid ticker", models.ErrValidationFailed)
	}
	return id, nil
}
