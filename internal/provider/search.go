package provider

import (
	"context"
	"sort"
	"strings"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MaxSearchResults is the number of ranked hits returned by a search.
const MaxSearchResults = 10

// logoProbeConcurrency bounds parallel logo probes for one search.
const logoProbeConcurrency = 5

// PairSearcher runs free-text searches against the liquidity provider.
type PairSearcher interface {
	Search(ctx context.Context, query string) ([]Pair, error)
}

// LogoValidator accepts a logo URL or rejects it with nil.
type LogoValidator interface {
	Validate(ctx context.Context, rawURL string) *string
}

// Searcher turns provider pairs into ranked search results.
type Searcher struct {
	pairs PairSearcher
	logos LogoValidator
}

// NewSearcher creates a new searcher
func NewSearcher(pairs PairSearcher, logos LogoValidator) *Searcher {
	return &Searcher{pairs: pairs, logos: logos}
}

// Search returns at most MaxSearchResults hits. Provider errors yield an empty result.
func (s *Searcher) Search(ctx context.Context, query string) []models.TokenSearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.TokenSearchResult{}
	}

	pairs, err := s.pairs.Search(ctx, query)
	if err != nil {
		logrus.WithError(err).WithField("query", query).Warn("Token search failed")
		return []models.TokenSearchResult{}
	}

	results := make([]models.TokenSearchResult, 0, len(pairs))
	logos := make(map[string]string, len(pairs))
	for _, p := range pairs {
		r := p.SearchResult()
		results = append(results, r)
		if img := p.ImageURL(); img != "" {
			logos[r.PairAddress] = img
		}
	}

	ranked := RankResults(query, results)
	s.attachLogos(ctx, ranked, logos)
	return ranked
}

func (s *Searcher) attachLogos(ctx context.Context, results []models.TokenSearchResult, logos map[string]string) {
	if s.logos == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(logoProbeConcurrency)
	for i := range results {
		candidate, ok := logos[results[i].PairAddress]
		if !ok {
			continue
		}
		i := i
		g.Go(func() error {
			results[i].LogoURL = s.logos.Validate(gctx, candidate)
			return nil
		})
	}
	_ = g.Wait()
}

// RankResults keeps hits whose name or symbol contains the query (case-insensitive),
// puts exact name or symbol matches first, orders ties by name and truncates to MaxSearchResults.
func RankResults(query string, results []models.TokenSearchResult) []models.TokenSearchResult {
	q := strings.ToLower(strings.TrimSpace(query))

	filtered := make([]models.TokenSearchResult, 0, len(results))
	for _, r := range results {
		name := strings.ToLower(r.Name)
		symbol := strings.ToLower(r.Symbol)
		if strings.Contains(name, q) || strings.Contains(symbol, q) {
			filtered = append(filtered, r)
		}
	}

	exact := func(r models.TokenSearchResult) bool {
		return strings.ToLower(r.Name) == q || strings.ToLower(r.Symbol) == q
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		ei, ej := exact(filtered[i]), exact(filtered[j])
		if ei != ej {
			return ei
		}
		return strings.ToLower(filtered[i].Name) < strings.ToLower(filtered[j].Name)
	})

	if len(filtered) > MaxSearchResults {
		filtered = filtered[:MaxSearchResults]
	}
	return filtered
}
