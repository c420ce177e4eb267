package reconcile

import (
	"strings"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/provider"
	"github.com/shopspring/decimal"
)

// Input is everything the merge step needs. Logos are already validated.
type Input struct {
	Address      string
	Pair         provider.Pair
	Enrichment   *provider.Enrichment
	PriorATH     decimal.NullDecimal
	PrimaryLogo  *string
	FallbackLogo *string
}

// Merge assembles the canonical TokenData from the primary pair, the optional
// enrichment and the previously stored ATH. It performs no I/O.
func Merge(in Input) (models.TokenData, error) {
	price, err := in.Pair.Price()
	if err != nil {
		return models.TokenData{}, err
	}

	candidate := positive(in.Pair.ATHUSD)
	if in.Enrichment != nil {
		candidate = MaxATH(candidate, positive(in.Enrichment.ATH))
	}

	address := in.Address
	if address == "" {
		address = in.Pair.BaseToken.Address
	}

	return models.TokenData{
		Address:      address,
		PairAddress:  in.Pair.PairAddress,
		Name:         in.Pair.BaseToken.Name,
		Symbol:       in.Pair.BaseToken.Symbol,
		ChainID:      strings.ToLower(in.Pair.ChainID),
		Blockchain:   provider.BlockchainLabel(in.Pair.ChainID),
		CurrentPrice: price,
		ATH:          AdvanceATH(in.PriorATH, candidate),
		MarketCap:    in.Pair.MarketCapUSD(),
		Liquidity:    in.Pair.LiquidityUSD(),
		Volume24h:    in.Pair.Volume.H24,
		PoolType:     provider.DexLabel(in.Pair.DexID),
		LogoURL:      firstLogo(in.PrimaryLogo, in.FallbackLogo),
	}, nil
}

// MaxATH returns the larger of two optional highs.
func MaxATH(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	case b.Decimal.GreaterThan(a.Decimal):
		return b
	default:
		return a
	}
}

// AdvanceATH keeps prior unless candidate is present and strictly greater.
func AdvanceATH(prior, candidate decimal.NullDecimal) decimal.NullDecimal {
	if !candidate.Valid {
		return prior
	}
	if !prior.Valid || candidate.Decimal.GreaterThan(prior.Decimal) {
		return candidate
	}
	return prior
}

func positive(v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid || !v.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return v
}

func firstLogo(logos ...*string) *string {
	for _, l := range logos {
		if l != nil && *l != "" {
			v := *l
			return &v
		}
	}
	return nil
}
