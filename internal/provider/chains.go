package provider

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var dexLabels = map[string]string{
	"uniswap":     "Uniswap",
	"pancakeswap": "PancakeSwap",
	"velodrome":   "Velodrome",
	"aerodrome":   "Aerodrome",
	"sushiswap":   "SushiSwap",
}

// coinGeckoPlatforms maps liquidity-provider chain ids to aggregator asset platforms.
var coinGeckoPlatforms = map[string]string{
	"ethereum":  "ethereum",
	"bsc":       "binance-smart-chain",
	"polygon":   "polygon-pos",
	"arbitrum":  "arbitrum-one",
	"optimism":  "optimistic-ethereum",
	"base":      "base",
	"avalanche": "avalanche",
	"fantom":    "fantom",
	"solana":    "solana",
	"cronos":    "cronos",
	"linea":     "linea",
	"blast":     "blast",
	"zksync":    "zksync",
	"sui":       "sui",
	"ton":       "the-open-network",
}

// DexLabel turns a DEX identifier into its display name.
func DexLabel(dexID string) string {
	if dexID == "" {
		return "Unknown"
	}
	if label, ok := dexLabels[strings.ToLower(dexID)]; ok {
		return label
	}
	return capitalize(dexID)
}

// BlockchainLabel turns a chain identifier into its display name.
func BlockchainLabel(chainID string) string {
	if chainID == "ethereum" {
		return "Ethereum"
	}
	return capitalize(chainID)
}

// PlatformFor returns the aggregator platform for a chain id.
func PlatformFor(chainID string) (string, bool) {
	p, ok := coinGeckoPlatforms[strings.ToLower(chainID)]
	return p, ok
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
