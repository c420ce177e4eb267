package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultDexScreenerURL is the public DexScreener API.
const DefaultDexScreenerURL = "https://api.dexscreener.com"

// Pair is a trading pair as returned by DexScreener.
type Pair struct {
	ChainID     string              `json:"chainId"`
	DexID       string              `json:"dexId"`
	URL         string              `json:"url"`
	PairAddress string              `json:"pairAddress"`
	BaseToken   PairToken           `json:"baseToken"`
	QuoteToken  PairToken           `json:"quoteToken"`
	PriceUSD    string              `json:"priceUsd"`
	Liquidity   *PairLiquidity      `json:"liquidity"`
	Volume      PairVolume          `json:"volume"`
	FDV         decimal.NullDecimal `json:"fdv"`
	MarketCap   decimal.NullDecimal `json:"marketCap"`
	ATHUSD      decimal.NullDecimal `json:"athUsd"`
	Info        *PairInfo           `json:"info"`
}

// PairToken is one side of a pair.
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PairLiquidity is the pooled liquidity of a pair.
type PairLiquidity struct {
	USD   decimal.Decimal `json:"usd"`
	Base  decimal.Decimal `json:"base"`
	Quote decimal.Decimal `json:"quote"`
}

// PairVolume is traded volume per window.
type PairVolume struct {
	H24 decimal.Decimal `json:"h24"`
	H6  decimal.Decimal `json:"h6"`
	H1  decimal.Decimal `json:"h1"`
	M5  decimal.Decimal `json:"m5"`
}

// PairInfo holds optional pair metadata.
type PairInfo struct {
	ImageURL string `json:"imageUrl"`
}

type pairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// LiquidityUSD returns the pair liquidity in USD, zero when unknown.
func (p Pair) LiquidityUSD() decimal.Decimal {
	if p.Liquidity == nil {
		return decimal.Zero
	}
	return p.Liquidity.USD
}

// MarketCapUSD returns the fully diluted valuation, falling back to market cap.
func (p Pair) MarketCapUSD() decimal.Decimal {
	if p.FDV.Valid {
		return p.FDV.Decimal
	}
	if p.MarketCap.Valid {
		return p.MarketCap.Decimal
	}
	return decimal.Zero
}

// ImageURL returns the advertised logo, empty when absent.
func (p Pair) ImageURL() string {
	if p.Info == nil {
		return ""
	}
	return strings.TrimSpace(p.Info.ImageURL)
}

// Price parses the USD price.
func (p Pair) Price() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(p.PriceUSD))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid priceUsd %q", models.ErrSourceUnavailable, p.PriceUSD)
	}
	return price, nil
}

// SearchResult converts the pair into an unranked search hit without a logo.
func (p Pair) SearchResult() models.TokenSearchResult {
	return models.TokenSearchResult{
		Address:      p.BaseToken.Address,
		PairAddress:  p.PairAddress,
		Name:         p.BaseToken.Name,
		Symbol:       p.BaseToken.Symbol,
		ChainID:      p.ChainID,
		Blockchain:   BlockchainLabel(p.ChainID),
		LiquidityUSD: p.LiquidityUSD(),
		Volume24h:    p.Volume.H24,
		PoolType:     DexLabel(p.DexID),
	}
}

// DexScreener is the liquidity-provider adapter.
type DexScreener struct {
	http *httpClient
}

// NewDexScreener creates a DexScreener client.
func NewDexScreener(baseURL string, opts ...ClientOption) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	return &DexScreener{http: newHTTPClient(baseURL, opts...)}
}

// Search returns the raw pairs matching a free-text query.
func (d *DexScreener) Search(ctx context.Context, query string) ([]Pair, error) {
	var resp pairsResponse
	if err := d.http.getJSON(ctx, "/latest/dex/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}
	return resp.Pairs, nil
}

// Lookup returns the first pair on the given chain whose base token is the address.
// No such pair is ErrNotFound.
func (d *DexScreener) Lookup(ctx context.Context, chainID, address string) (*Pair, error) {
	var resp pairsResponse
	query := url.Values{"q": {address}}
	if err := d.http.getJSON(ctx, "/latest/dex/search", query, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener lookup %s/%s: %w", chainID, address, err)
	}

	pair := firstMatchingPair(resp.Pairs, chainID, address)
	if pair == nil {
		return nil, fmt.Errorf("dexscreener lookup %s/%s: %w", chainID, address, models.ErrNotFound)
	}
	return pair, nil
}

// TokenPairs returns every pair that trades the token, on any chain.
func (d *DexScreener) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	var resp pairsResponse
	if err := d.http.getJSON(ctx, "/latest/dex/tokens/"+url.PathEscape(address), nil, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener token pairs %s: %w", address, err)
	}
	return resp.Pairs, nil
}

func firstMatchingPair(pairs []Pair, chainID, address string) *Pair {
	for i := range pairs {
		p := &pairs[i]
		if strings.EqualFold(p.ChainID, chainID) && strings.EqualFold(p.BaseToken.Address, address) {
			return p
		}
	}
	return nil
}
