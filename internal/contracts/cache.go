// Package contracts resolves project ids to on-chain contract addresses through a
// durable JSON cache backed by the market aggregator.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/giorgiojulius/cryptojulius/internal/jsonfile"
	"github.com/sirupsen/logrus"
)

// PlatformSource returns the platform → contract map of a coin.
type PlatformSource interface {
	CoinPlatforms(ctx context.Context, coinID string) (map[string]string, error)
}

type entry struct {
	Contracts []string `json:"contracts"`
}

// Cache maps project ids to contract addresses. Hits are served from the file; misses
// are fetched from the source and written through.
type Cache struct {
	path   string
	source PlatformSource

	mu sync.Mutex
}

// NewCache creates a cache stored at path.
func NewCache(path string, source PlatformSource) *Cache {
	return &Cache{path: path, source: source}
}

// Contracts returns the contracts known for projectID, fetching and caching them on a miss.
func (c *Cache) Contracts(ctx context.Context, projectID string) ([]string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("project id cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return nil, err
	}
	if e, ok := entries[projectID]; ok && e.Contracts != nil {
		return append([]string(nil), e.Contracts...), nil
	}

	platforms, err := c.source.CoinPlatforms(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve contracts for %s: %w", projectID, err)
	}
	contracts := orderedContracts(platforms)

	entries[projectID] = entry{Contracts: contracts}
	if err := c.write(entries); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"project_id": projectID, "contracts": len(contracts)}).Info("Contract cache populated")
	return append([]string(nil), contracts...), nil
}

func (c *Cache) read() (map[string]entry, error) {
	entries := map[string]entry{}
	if _, err := jsonfile.Read(c.path, &entries); err != nil {
		return nil, fmt.Errorf("contract cache: %w", err)
	}
	return entries, nil
}

func (c *Cache) write(entries map[string]entry) error {
	if err := jsonfile.Write(c.path, entries); err != nil {
		return fmt.Errorf("contract cache: %w", err)
	}
	return nil
}

// orderedContracts flattens the platform map by platform name, dropping blanks and duplicates.
func orderedContracts(platforms map[string]string) []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]struct{}, len(names))
	contracts := make([]string, 0, len(names))
	for _, name := range names {
		address := strings.TrimSpace(platforms[name])
		if address == "" {
			continue
		}
		if _, dup := seen[address]; dup {
			continue
		}
		seen[address] = struct{}{}
		contracts = append(contracts, address)
	}
	return contracts
}
