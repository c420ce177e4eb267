package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Kind is the address family of a contract.
type Kind int

const (
	KindUnknown Kind = iota
	KindEVM
	KindSolana
)

func (k Kind) String() string {
	switch k {
	case KindEVM:
		return "evm"
	case KindSolana:
		return "solana"
	default:
		return "unknown"
	}
}

// Classify tells EVM and Solana contract addresses apart.
func Classify(address string) Kind {
	address = strings.TrimSpace(address)
	switch {
	case strings.HasPrefix(address, "0x") && common.IsHexAddress(address):
		return KindEVM
	case isSolana(address):
		return KindSolana
	default:
		return KindUnknown
	}
}

func isSolana(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	raw, err := base58.Decode(address)
	return err == nil && len(raw) == 32
}

// FilterEVM keeps the EVM contracts in their original order.
func FilterEVM(contracts []string) []string {
	return filter(contracts, KindEVM)
}

// FilterSolana keeps the Solana contracts in their original order.
func FilterSolana(contracts []string) []string {
	return filter(contracts, KindSolana)
}

func filter(contracts []string, kind Kind) []string {
	out := make([]string, 0, len(contracts))
	for _, c := range contracts {
		if Classify(c) == kind {
			out = append(out, strings.TrimSpace(c))
		}
	}
	return out
}

// Preferred picks the contract used for market lookups: the first EVM contract,
// else the first Solana one.
func Preferred(contracts []string) (string, bool) {
	if evm := FilterEVM(contracts); len(evm) > 0 {
		return evm[0], true
	}
	if sol := FilterSolana(contracts); len(sol) > 0 {
		return sol[0], true
	}
	return "", false
}
