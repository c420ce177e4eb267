package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TokenSearchResult is a single ranked hit returned by a token search. It is never persisted.
type TokenSearchResult struct {
	Address      string          `json:"address"`
	PairAddress  string          `json:"pairAddress"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ChainID      string          `json:"chainId"`
	Blockchain   string          `json:"blockchain"`
	LiquidityUSD decimal.Decimal `json:"liquidityUsd"`
	Volume24h    decimal.Decimal `json:"volume24h"`
	PoolType     string          `json:"poolType"`
	LogoURL      *string         `json:"logoUrl"`
}

// TokenData is the reconciled snapshot of one asset at one point in time.
// Amounts are stored as decimal text so that no driver rounds them through float64.
type TokenData struct {
	Address      string              `json:"address" gorm:"not null;size:128;uniqueIndex:idx_projects_chain_address"`
	PairAddress  string              `json:"pairAddress" gorm:"size:128"`
	Name         string              `json:"name" gorm:"not null;size:100"`
	Symbol       string              `json:"symbol" gorm:"not null;size:32;index"`
	ChainID      string              `json:"chainId" gorm:"not null;size:64;uniqueIndex:idx_projects_chain_address"`
	Blockchain   string              `json:"blockchain" gorm:"size:64"`
	CurrentPrice decimal.Decimal     `json:"currentPrice" gorm:"type:varchar(80)"`
	ATH          decimal.NullDecimal `json:"ath" gorm:"type:varchar(80);column:ath"`
	MarketCap    decimal.Decimal     `json:"marketCap" gorm:"type:varchar(80)"`
	Liquidity    decimal.Decimal     `json:"liquidity" gorm:"type:varchar(80)"`
	Volume24h    decimal.Decimal     `json:"volume24h" gorm:"type:varchar(80);column:volume_24h"`
	PoolType     string              `json:"poolType" gorm:"size:64"`
	LogoURL      *string             `json:"logoUrl" gorm:"size:512"`
}

// Key returns the identity of the asset the snapshot describes.
func (t TokenData) Key() ProjectKey {
	return NewProjectKey(t.ChainID, t.Address)
}

// ProjectKey identifies a tracked project. The same contract address may exist on
// several chains, so the chain is part of the identity.
type ProjectKey struct {
	ChainID string `json:"chainId"`
	Address string `json:"address"`
}

// NewProjectKey builds a key with a lower-cased chain id.
func NewProjectKey(chainID, address string) ProjectKey {
	return ProjectKey{
		ChainID: strings.ToLower(strings.TrimSpace(chainID)),
		Address: strings.TrimSpace(address),
	}
}

func (k ProjectKey) String() string {
	return k.ChainID + ":" + k.Address
}

// Project is a tracked asset: the latest reconciled TokenData plus the user's moat factor.
type Project struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	TokenData  `gorm:"embedded"`
	MoatFactor decimal.Decimal `json:"moatFactor" gorm:"type:varchar(40);not null"`
	Timestamp  time.Time       `json:"timestamp" gorm:"not null"`
	CreatedAt  time.Time       `json:"-"`
	UpdatedAt  time.Time       `json:"-"`
}

// TableName returns the table name for Project model
func (Project) TableName() string {
	return "projects"
}

// BeforeSave hook to validate project data
func (p *Project) BeforeSave(tx *gorm.DB) error {
	if p.Address == "" || p.ChainID == "" {
		return gorm.ErrInvalidData
	}
	if p.MoatFactor.IsNegative() || p.MoatFactor.GreaterThan(decimal.NewFromInt(1)) {
		return gorm.ErrInvalidData
	}
	return nil
}

// ProjectPatch carries the fields of a partial project update. Nil fields are left untouched.
type ProjectPatch struct {
	MoatFactor   *decimal.Decimal
	CurrentPrice *decimal.Decimal
	ATH          *decimal.NullDecimal
	MarketCap    *decimal.Decimal
	Liquidity    *decimal.Decimal
	Volume24h    *decimal.Decimal
	PoolType     *string
	LogoURL      **string
}

// Apply returns a copy of p with the patch merged in.
func (pp ProjectPatch) Apply(p Project) Project {
	if pp.MoatFactor != nil {
		p.MoatFactor = *pp.MoatFactor
	}
	if pp.CurrentPrice != nil {
		p.CurrentPrice = *pp.CurrentPrice
	}
	if pp.ATH != nil {
		p.ATH = *pp.ATH
	}
	if pp.MarketCap != nil {
		p.MarketCap = *pp.MarketCap
	}
	if pp.Liquidity != nil {
		p.Liquidity = *pp.Liquidity
	}
	if pp.Volume24h != nil {
		p.Volume24h = *pp.Volume24h
	}
	if pp.PoolType != nil {
		p.PoolType = *pp.PoolType
	}
	if pp.LogoURL != nil {
		p.LogoURL = *pp.LogoURL
	}
	return p
}

// Clone returns a deep copy so that snapshots never share the logo pointer.
func (p Project) Clone() Project {
	if p.LogoURL != nil {
		logo := *p.LogoURL
		p.LogoURL = &logo
	}
	return p
}
