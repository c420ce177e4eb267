package project

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/reconcile"
	"github.com/giorgiojulius/cryptojulius/internal/refresh"
	"github.com/giorgiojulius/cryptojulius/internal/valuation"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Searcher returns ranked search hits. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string) []models.TokenSearchResult
}

// SearchCache stores ranked search hits by query.
type SearchCache interface {
	Get(ctx context.Context, query string) ([]models.TokenSearchResult, bool)
	Set(ctx context.Context, query string, results []models.TokenSearchResult)
}

// Refresher runs one refresh cycle over a list of projects.
type Refresher interface {
	RefreshAll(ctx context.Context, projects []models.Project) (*refresh.Report, error)
}

// AddRequest is the payload for tracking a new project.
type AddRequest struct {
	ChainID    string           `json:"chainId" validate:"required,max=64"`
	Address    string           `json:"address" validate:"required,max=128"`
	MoatFactor *decimal.Decimal `json:"moatFactor" validate:"omitempty,unitinterval"`
}

// MoatRequest is the payload for editing a moat factor.
type MoatRequest struct {
	MoatFactor *decimal.Decimal `json:"moatFactor" validate:"required,unitinterval"`
}

// View is a project together with its valuation signal.
type View struct {
	models.Project
	Signal valuation.Signal `json:"signal"`
}

// Preview is a reconciled token that is not tracked yet.
type Preview struct {
	models.TokenData
	SuggestedMoatFactor decimal.Decimal `json:"suggestedMoatFactor"`
	Tracked             bool            `json:"tracked"`
}

// RefreshResult summarises a refresh cycle after it was committed.
type RefreshResult struct {
	Projects  []View              `json:"projects"`
	Refreshed int                 `json:"refreshed"`
	Failed    []models.ProjectKey `json:"failed"`
}

// Service defines project service operations
type Service interface {
	Search(ctx context.Context, query string) []models.TokenSearchResult
	Preview(ctx context.Context, chainID, address string) (*Preview, error)
	Add(ctx context.Context, req AddRequest) (*View, bool, error)
	SetMoatFactor(ctx context.Context, chainID, address string, req MoatRequest) (*View, error)
	Remove(ctx context.Context, chainID, address string) error
	List(ctx context.Context) []View
	Refresh(ctx context.Context) (*RefreshResult, error)
}

type service struct {
	store      *Store
	searcher   Searcher
	cache      SearchCache
	engine     reconcile.Reconciler
	refresher  Refresher
	calculator *valuation.Calculator
	validate   *validator.Validate

	refreshing sync.Mutex
}

// NewService creates a new project service. cache may be nil.
func NewService(store *Store, searcher Searcher, cache SearchCache, engine reconcile.Reconciler, refresher Refresher, calculator *valuation.Calculator) Service {
	if calculator == nil {
		calculator = valuation.NewCalculator(valuation.DefaultMarginOfSafety)
	}
	return &service{
		store:      store,
		searcher:   searcher,
		cache:      cache,
		engine:     engine,
		refresher:  refresher,
		calculator: calculator,
		validate:   newValidator(),
	}
}

// newValidator validates decimals through their exact string form. unitinterval accepts
// values in [0,1].
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("unitinterval", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative() && !d.GreaterThan(decimal.NewFromInt(1))
	})
	return v
}

func (s *service) Search(ctx context.Context, query string) []models.TokenSearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.TokenSearchResult{}
	}
	cacheKey := strings.ToLower(query)
	if s.cache != nil {
		if hits, ok := s.cache.Get(ctx, cacheKey); ok {
			return hits
		}
	}

	hits := s.searcher.Search(ctx, query)
	if s.cache != nil && len(hits) > 0 {
		s.cache.Set(ctx, cacheKey, hits)
	}
	return hits
}

func (s *service) Preview(ctx context.Context, chainID, address string) (*Preview, error) {
	key, err := normalizeKey(chainID, address)
	if err != nil {
		return nil, err
	}
	data, err := s.engine.Reconcile(ctx, key.ChainID, key.Address, decimal.NullDecimal{})
	if err != nil {
		return nil, err
	}
	_, tracked := s.store.Get(key)
	return &Preview{
		TokenData:           *data,
		SuggestedMoatFactor: valuation.DerivedMoatFactor(data.MarketCap, data.Liquidity),
		Tracked:             tracked,
	}, nil
}

// Add tracks a new project. The bool reports whether the project was created; adding a
// tracked key returns the existing project unchanged.
func (s *service) Add(ctx context.Context, req AddRequest) (*View, bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, false, fmt.Errorf("%w: %v", models.ErrValidationFailed, err)
	}
	key, err := normalizeKey(req.ChainID, req.Address)
	if err != nil {
		return nil, false, err
	}

	if existing, ok := s.store.Get(key); ok {
		view := s.view(existing)
		return &view, false, nil
	}

	data, err := s.engine.Reconcile(ctx, key.ChainID, key.Address, decimal.NullDecimal{})
	if err != nil {
		return nil, false, err
	}

	moat := valuation.DerivedMoatFactor(data.MarketCap, data.Liquidity)
	if req.MoatFactor != nil {
		moat = *req.MoatFactor
	}

	stored, added, err := s.store.Add(models.Project{TokenData: *data, MoatFactor: moat})
	if err != nil {
		return nil, false, err
	}
	if added {
		logrus.WithFields(logrus.Fields{
			"project":     stored.Key().String(),
			"symbol":      stored.Symbol,
			"moat_factor": stored.MoatFactor.String(),
		}).Info("Project added")
	}
	view := s.view(stored)
	return &view, added, nil
}

func (s *service) SetMoatFactor(ctx context.Context, chainID, address string, req MoatRequest) (*View, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidationFailed, err)
	}
	key, err := normalizeKey(chainID, address)
	if err != nil {
		return nil, err
	}

	updated, ok, err := s.store.UpdateFields(key, models.ProjectPatch{MoatFactor: req.MoatFactor})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("project %s: %w", key, models.ErrNotFound)
	}
	view := s.view(updated)
	return &view, nil
}

func (s *service) Remove(ctx context.Context, chainID, address string) error {
	key, err := normalizeKey(chainID, address)
	if err != nil {
		return err
	}
	removed, err := s.store.Remove(key)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("project %s: %w", key, models.ErrNotFound)
	}
	logrus.WithField("project", key.String()).Info("Project removed")
	return nil
}

func (s *service) List(ctx context.Context) []View {
	projects := s.store.Snapshot()
	views := make([]View, len(projects))
	for i, p := range projects {
		views[i] = s.view(p)
	}
	return views
}

// Refresh runs one refresh cycle and commits it as a single batch. Overlapping calls fail
// with ErrRefreshInProgress.
func (s *service) Refresh(ctx context.Context) (*RefreshResult, error) {
	if !s.refreshing.TryLock() {
		return nil, models.ErrRefreshInProgress
	}
	defer s.refreshing.Unlock()

	report, err := s.refresher.RefreshAll(ctx, s.store.Snapshot())
	if report == nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	if _, commitErr := s.store.BatchUpdate(report.Refreshed); commitErr != nil {
		return nil, commitErr
	}

	result := &RefreshResult{
		Projects:  s.List(ctx),
		Refreshed: len(report.Refreshed),
		Failed:    make([]models.ProjectKey, 0, len(report.Failed)),
	}
	for _, f := range report.Failed {
		result.Failed = append(result.Failed, f.Key)
	}
	return result, err
}

func (s *service) view(p models.Project) View {
	return View{Project: p, Signal: s.calculator.Evaluate(p)}
}

// normalizeKey trims and lower-cases the chain and checksums EVM addresses so the same
// contract always maps to the same key.
func normalizeKey(chainID, address string) (models.ProjectKey, error) {
	key := models.NewProjectKey(chainID, address)
	if key.ChainID == "" || key.Address == "" {
		return models.ProjectKey{}, fmt.Errorf("%w: chainId and address are required", models.ErrValidationFailed)
	}
	if common.IsHexAddress(key.Address) {
		key.Address = common.HexToAddress(key.Address).Hex()
	}
	return key, nil
}
