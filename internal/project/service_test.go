package project

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/refresh"
	"github.com/giorgiojulius/cryptojulius/internal/valuation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const uniAddr = "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"

// MockReconciler is a mock implementation of reconcile.Reconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, chainID, address string, priorATH decimal.NullDecimal) (*models.TokenData, error) {
	args := m.Called(ctx, chainID, address, priorATH)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenData), args.Error(1)
}

// MockSearcher is a mock implementation of Searcher
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string) []models.TokenSearchResult {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.TokenSearchResult)
}

type memoryCache struct {
	entries map[string][]models.TokenSearchResult
}

func (c *memoryCache) Get(_ context.Context, query string) ([]models.TokenSearchResult, bool) {
	hits, ok := c.entries[query]
	return hits, ok
}

func (c *memoryCache) Set(_ context.Context, query string, results []models.TokenSearchResult) {
	c.entries[query] = results
}

func uniData(price string, ath decimal.NullDecimal) *models.TokenData {
	return &models.TokenData{
		Address:      uniAddr,
		Name:         "Uniswap",
		Symbol:       "UNI",
		ChainID:      "ethereum",
		Blockchain:   "Ethereum",
		CurrentPrice: decimal.RequireFromString(price),
		ATH:          ath,
		MarketCap:    decimal.NewFromInt(1_000_000),
		Liquidity:    decimal.NewFromInt(250_000),
		PoolType:     "Uniswap",
	}
}

type ServiceTestSuite struct {
	suite.Suite
	store    *Store
	engine   *MockReconciler
	searcher *MockSearcher
	cache    *memoryCache
	svc      Service
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.store = NewStore(nil, WithClock(fixedClock))
	suite.engine = new(MockReconciler)
	suite.searcher = new(MockSearcher)
	suite.cache = &memoryCache{entries: map[string][]models.TokenSearchResult{}}
	suite.svc = NewService(
		suite.store,
		suite.searcher,
		suite.cache,
		suite.engine,
		refresh.NewOrchestrator(suite.engine, nil),
		valuation.NewCalculator(decimal.RequireFromString("0.5")),
	)
}

func (suite *ServiceTestSuite) TestSearchUsesCache() {
	hits := []models.TokenSearchResult{{Name: "Uniswap", Symbol: "UNI"}}
	suite.searcher.On("Search", mock.Anything, "UNI").Return(hits).Once()

	suite.Equal(hits, suite.svc.Search(context.Background(), "UNI"))
	suite.Equal(hits, suite.svc.Search(context.Background(), " uni "))
	suite.searcher.AssertNumberOfCalls(suite.T(), "Search", 1)
}

func (suite *ServiceTestSuite) TestSearchEmptyQuery() {
	suite.Empty(suite.svc.Search(context.Background(), "  "))
	suite.searcher.AssertNotCalled(suite.T(), "Search", mock.Anything, mock.Anything)
}

func (suite *ServiceTestSuite) TestPreviewSuggestsMoat() {
	suite.engine.On("Reconcile", mock.Anything, "ethereum", uniAddr, decimal.NullDecimal{}).
		Return(uniData("5", decimal.NullDecimal{}), nil)

	preview, err := suite.svc.Preview(context.Background(), "Ethereum", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984")
	suite.Require().NoError(err)
	suite.Equal("0.25", preview.SuggestedMoatFactor.String())
	suite.False(preview.Tracked)
}

func (suite *ServiceTestSuite) TestAddNormalizesAndDerivesMoat() {
	suite.engine.On("Reconcile", mock.Anything, "ethereum", uniAddr, decimal.NullDecimal{}).
		Return(uniData("5", decimal.NewNullDecimal(decimal.NewFromInt(40))), nil).Once()

	view, created, err := suite.svc.Add(context.Background(), AddRequest{
		ChainID: "ethereum",
		Address: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984",
	})
	suite.Require().NoError(err)
	suite.True(created)
	suite.Equal(uniAddr, view.Address)
	suite.Equal("0.25", view.MoatFactor.String())
	suite.Equal("10", view.Signal.IntrinsicValue.String())
	suite.Equal("5", view.Signal.RecommendedBuyPrice.String())
	suite.False(view.Signal.BuyOpportunity)
	suite.Equal(fixedNow, view.Timestamp)

	// second add is a no-op and does not reconcile again
	view, created, err = suite.svc.Add(context.Background(), AddRequest{ChainID: "ethereum", Address: uniAddr})
	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal("0.25", view.MoatFactor.String())
	suite.Equal(1, suite.store.Len())
	suite.engine.AssertExpectations(suite.T())
}

func (suite *ServiceTestSuite) TestAddUsesGivenMoat() {
	suite.engine.On("Reconcile", mock.Anything, "ethereum", uniAddr, decimal.NullDecimal{}).
		Return(uniData("5", decimal.NullDecimal{}), nil)

	moat := decimal.RequireFromString("0.6")
	view, _, err := suite.svc.Add(context.Background(), AddRequest{ChainID: "ethereum", Address: uniAddr, MoatFactor: &moat})
	suite.Require().NoError(err)
	suite.Equal("0.6", view.MoatFactor.String())
}

func (suite *ServiceTestSuite) TestAddRejectsInvalidMoat() {
	for _, raw := range []string{"-0.1", "1.01", "1.00000000000000001", "-0.00000000000000001"} {
		moat := decimal.RequireFromString(raw)
		_, _, err := suite.svc.Add(context.Background(), AddRequest{ChainID: "ethereum", Address: uniAddr, MoatFactor: &moat})
		suite.ErrorIs(err, models.ErrValidationFailed, raw)
	}

	_, _, err := suite.svc.Add(context.Background(), AddRequest{ChainID: "ethereum"})
	suite.ErrorIs(err, models.ErrValidationFailed)

	suite.Zero(suite.store.Len())
	suite.engine.AssertNotCalled(suite.T(), "Reconcile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ServiceTestSuite) TestAddAcceptsBounds() {
	suite.engine.On("Reconcile", mock.Anything, "ethereum", uniAddr, decimal.NullDecimal{}).
		Return(uniData("5", decimal.NullDecimal{}), nil)

	_, _, err := suite.svc.Add(context.Background(), AddRequest{ChainID: "ethereum", Address: uniAddr, MoatFactor: ptr(decimal.NewFromInt(1))})
	suite.Require().NoError(err)

	view, err := suite.svc.SetMoatFactor(context.Background(), "ethereum", uniAddr, MoatRequest{MoatFactor: ptr(decimal.Zero)})
	suite.Require().NoError(err)
	suite.True(view.MoatFactor.IsZero())
}

func (suite *ServiceTestSuite) TestAddPropagatesNotFound() {
	suite.engine.On("Reconcile", mock.Anything, "ethereum", uniAddr, decimal.NullDecimal{}).
		Return(nil, fmt.Errorf("lookup: %w", models.ErrNotFound))

	_, _, err := suite.svc.Add(context.Background(), AddRequest{ChainID: "ethereum", Address: uniAddr})
	suite.ErrorIs(err, models.ErrNotFound)
	suite.Zero(suite.store.Len())
}

func (suite *ServiceTestSuite) TestSetMoatFactor() {
	_, _, err := suite.store.Add(models.Project{TokenData: *uniData("5", decimal.NullDecimal{}), MoatFactor: decimal.RequireFromString("0.2")})
	suite.Require().NoError(err)

	view, err := suite.svc.SetMoatFactor(context.Background(), "ethereum", uniAddr, MoatRequest{MoatFactor: ptr(decimal.RequireFromString("0.4"))})
	suite.Require().NoError(err)
	suite.Equal("0.4", view.MoatFactor.String())

	_, err = suite.svc.SetMoatFactor(context.Background(), "ethereum", uniAddr, MoatRequest{MoatFactor: ptr(decimal.RequireFromString("2"))})
	suite.ErrorIs(err, models.ErrValidationFailed)

	_, err = suite.svc.SetMoatFactor(context.Background(), "ethereum", uniAddr, MoatRequest{MoatFactor: ptr(decimal.RequireFromString("1.00000000000000001"))})
	suite.ErrorIs(err, models.ErrValidationFailed)

	_, err = suite.svc.SetMoatFactor(context.Background(), "ethereum", uniAddr, MoatRequest{})
	suite.ErrorIs(err, models.ErrValidationFailed)

	_, err = suite.svc.SetMoatFactor(context.Background(), "bsc", uniAddr, MoatRequest{MoatFactor: ptr(decimal.RequireFromString("0.1"))})
	suite.ErrorIs(err, models.ErrNotFound)

	stored, _ := suite.store.Get(models.NewProjectKey("ethereum", uniAddr))
	suite.Equal("0.4", stored.MoatFactor.String())
}

func (suite *ServiceTestSuite) TestRemove() {
	_, _, err := suite.store.Add(models.Project{TokenData: *uniData("5", decimal.NullDecimal{}), MoatFactor: decimal.RequireFromString("0.2")})
	suite.Require().NoError(err)

	suite.NoError(suite.svc.Remove(context.Background(), "ethereum", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"))
	suite.ErrorIs(suite.svc.Remove(context.Background(), "ethereum", uniAddr), models.ErrNotFound)
}

func (suite *ServiceTestSuite) TestRefreshCommitsBatch() {
	ath := decimal.NewNullDecimal(decimal.NewFromInt(10))
	_, _, err := suite.store.Add(models.Project{
		TokenData:  *uniData("5", ath),
		MoatFactor: decimal.RequireFromString("0.2"),
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	suite.Require().NoError(err)

	suite.engine.On("Reconcile", mock.Anything, "ethereum", uniAddr, ath).
		Return(uniData("1", decimal.NewNullDecimal(decimal.NewFromInt(12))), nil)

	result, err := suite.svc.Refresh(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, result.Refreshed)
	suite.Empty(result.Failed)
	suite.Require().Len(result.Projects, 1)

	p := result.Projects[0]
	suite.Equal("1", p.CurrentPrice.String())
	suite.Equal("12", p.ATH.Decimal.String())
	suite.Equal(fixedNow, p.Timestamp)
	suite.True(p.Signal.BuyOpportunity)
}

func (suite *ServiceTestSuite) TestRefreshRejectsOverlap() {
	impl := suite.svc.(*service)
	impl.refreshing.Lock()
	defer impl.refreshing.Unlock()

	_, err := suite.svc.Refresh(context.Background())
	suite.ErrorIs(err, models.ErrRefreshInProgress)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
