package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultCoinGeckoURL is the public CoinGecko v3 API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoAPIKeyHeader carries the demo API key.
const CoinGeckoAPIKeyHeader = "x-cg-demo-api-key"

const (
	athPath      = "$.market_data.ath.usd"
	imagePath    = "$.image.small"
	platformPath = "$.platforms"
)

// Enrichment is the supplementary data the aggregator can provide for a contract.
type Enrichment struct {
	ATH     decimal.NullDecimal
	LogoURL string
}

// CoinGecko is the market-aggregator adapter.
type CoinGecko struct {
	http *httpClient
}

// NewCoinGecko creates a CoinGecko client.
func NewCoinGecko(baseURL, apiKey string, opts ...ClientOption) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	opts = append([]ClientOption{WithHeader(CoinGeckoAPIKeyHeader, apiKey)}, opts...)
	return &CoinGecko{http: newHTTPClient(baseURL, opts...)}
}

// ContractInfo fetches ATH and logo for a contract. Chains without an aggregator
// platform return ErrUnsupportedPlatform.
func (c *CoinGecko) ContractInfo(ctx context.Context, chainID, address string) (*Enrichment, error) {
	platform, ok := PlatformFor(chainID)
	if !ok {
		return nil, fmt.Errorf("coingecko contract %s/%s: %w", chainID, address, models.ErrUnsupportedPlatform)
	}

	var doc interface{}
	path := fmt.Sprintf("/coins/%s/contract/%s", url.PathEscape(platform), url.PathEscape(address))
	if err := c.http.getJSON(ctx, path, nil, &doc); err != nil {
		return nil, fmt.Errorf("coingecko contract %s/%s: %w", chainID, address, err)
	}

	return &Enrichment{
		ATH:     lookupDecimal(doc, athPath),
		LogoURL: lookupString(doc, imagePath),
	}, nil
}

// CoinPlatforms returns the contract address per platform for an aggregator coin id.
func (c *CoinGecko) CoinPlatforms(ctx context.Context, coinID string) (map[string]string, error) {
	var doc interface{}
	if err := c.http.getJSON(ctx, "/coins/"+url.PathEscape(coinID), nil, &doc); err != nil {
		return nil, fmt.Errorf("coingecko coin %s: %w", coinID, err)
	}

	platforms := make(map[string]string)
	raw, err := jsonpath.Get(platformPath, doc)
	if err != nil {
		return platforms, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return platforms, nil
	}
	for platform, v := range m {
		if addr, ok := v.(string); ok && strings.TrimSpace(addr) != "" {
			platforms[platform] = strings.TrimSpace(addr)
		}
	}
	return platforms, nil
}

// lookupDecimal reads a positive number at path; anything else is treated as absent.
func lookupDecimal(doc interface{}, path string) decimal.NullDecimal {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return decimal.NullDecimal{}
	}
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

func lookupString(doc interface{}, path string) string {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
