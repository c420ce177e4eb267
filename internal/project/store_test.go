package project

import (
	"errors"
	"testing"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List() ([]models.Project, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockRepository) Create(project *models.Project) error {
	args := m.Called(project)
	return args.Error(0)
}

func (m *MockRepository) Update(project *models.Project) error {
	args := m.Called(project)
	return args.Error(0)
}

func (m *MockRepository) Delete(key models.ProjectKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockRepository) SaveAll(projects []models.Project) error {
	args := m.Called(projects)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestStoreAddIsUnique(t *testing.T) {
	s := NewStore(nil, WithClock(fixedClock))

	first := sampleProject("ethereum", "0xAAA", "AAA")
	second := sampleProject("ethereum", "0xAAA", "AAA")
	second.MoatFactor = decimal.RequireFromString("0.9")

	_, added, err := s.Add(first)
	require.NoError(t, err)
	assert.True(t, added)

	stored, added, err := s.Add(second)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, "0.2", stored.MoatFactor.String())
	assert.Equal(t, 1, s.Len())
}

func TestStoreAddStampsTimestamp(t *testing.T) {
	s := NewStore(nil, WithClock(fixedClock))
	p := sampleProject("Ethereum", "0xAAA", "AAA")
	p.Timestamp = time.Time{}

	stored, _, err := s.Add(p)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, stored.Timestamp)
	assert.Equal(t, "ethereum", stored.ChainID)
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	s := NewStore(nil)
	_, _, err := s.Add(sampleProject("ethereum", "0xAAA", "AAA"))
	require.NoError(t, err)

	before := s.Snapshot()
	*before[0].LogoURL = "mutated"
	before[0].Symbol = "MUT"

	_, ok, err := s.UpdateFields(before[0].Key(), models.ProjectPatch{PoolType: ptr("Curve")})
	require.NoError(t, err)
	require.True(t, ok)

	after := s.Snapshot()
	assert.Equal(t, "AAA", after[0].Symbol)
	assert.Equal(t, "https://img.example/AAA.png", *after[0].LogoURL)
	assert.Equal(t, "Curve", after[0].PoolType)
	assert.Equal(t, "Uniswap", before[0].PoolType)
}

func TestStoreUpdateFieldsUnknownKey(t *testing.T) {
	s := NewStore(nil)
	_, ok, err := s.UpdateFields(models.NewProjectKey("ethereum", "0xNONE"), models.ProjectPatch{PoolType: ptr("x")})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s := NewStore(nil)
	a := sampleProject("ethereum", "0xAAA", "AAA")
	b := sampleProject("ethereum", "0xBBB", "BBB")
	_, _, _ = s.Add(a)
	_, _, _ = s.Add(b)

	removed, err := s.Remove(a.Key())
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(a.Key())
	require.NoError(t, err)
	assert.False(t, removed)

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "BBB", snapshot[0].Symbol)
}

func TestStoreBatchUpdate(t *testing.T) {
	s := NewStore(nil, WithClock(fixedClock))
	a := sampleProject("ethereum", "0xAAA", "AAA")
	b := sampleProject("ethereum", "0xBBB", "BBB")
	_, _, _ = s.Add(a)
	_, _, _ = s.Add(b)

	refreshedA := a
	refreshedA.CurrentPrice = decimal.RequireFromString("3")
	refreshedA.ATH = decimal.NewNullDecimal(decimal.RequireFromString("2"))
	refreshedA.MoatFactor = decimal.RequireFromString("0.9")
	unknown := sampleProject("ethereum", "0xZZZ", "ZZZ")

	snapshot, err := s.BatchUpdate([]models.Project{refreshedA, unknown})
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	assert.Equal(t, "3", snapshot[0].CurrentPrice.String())
	assert.Equal(t, "4.5", snapshot[0].ATH.Decimal.String())
	assert.Equal(t, "0.2", snapshot[0].MoatFactor.String())
	assert.Equal(t, fixedNow, snapshot[0].Timestamp)

	assert.Equal(t, b.CurrentPrice.String(), snapshot[1].CurrentPrice.String())
	assert.Equal(t, b.Timestamp, snapshot[1].Timestamp)
}

func TestStoreFailedPersistenceLeavesSnapshot(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.AnythingOfType("*models.Project")).Return(nil).Once()
	repo.On("SaveAll", mock.Anything).Return(errors.New("disk full"))
	repo.On("Delete", mock.Anything).Return(errors.New("disk full"))

	s := NewStore(repo, WithClock(fixedClock))
	a := sampleProject("ethereum", "0xAAA", "AAA")
	_, _, err := s.Add(a)
	require.NoError(t, err)

	changed := a
	changed.CurrentPrice = decimal.RequireFromString("100")
	_, err = s.BatchUpdate([]models.Project{changed})
	assert.Error(t, err)

	removed, err := s.Remove(a.Key())
	assert.Error(t, err)
	assert.False(t, removed)

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "1.25", snapshot[0].CurrentPrice.String())
	repo.AssertExpectations(t)
}

// StorePersistenceTestSuite checks that the store survives a restart through the repository
type StorePersistenceTestSuite struct {
	suite.Suite
	db *gorm.DB
}

func (suite *StorePersistenceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file:store_persistence?mode=memory&cache=shared"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.Project{}))
	db.Exec("DELETE FROM projects")
	suite.db = db
}

func (suite *StorePersistenceTestSuite) TearDownTest() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (suite *StorePersistenceTestSuite) TestReloadAfterMutations() {
	s := NewStore(NewRepository(suite.db), WithClock(fixedClock))
	a := sampleProject("ethereum", "0xAAA", "AAA")
	b := sampleProject("ethereum", "0xBBB", "BBB")
	_, _, err := s.Add(a)
	suite.Require().NoError(err)
	_, _, err = s.Add(b)
	suite.Require().NoError(err)

	moat := decimal.RequireFromString("0.15")
	_, _, err = s.UpdateFields(a.Key(), models.ProjectPatch{MoatFactor: &moat})
	suite.Require().NoError(err)

	refreshed := b
	refreshed.CurrentPrice = decimal.RequireFromString("7")
	_, err = s.BatchUpdate([]models.Project{refreshed})
	suite.Require().NoError(err)

	_, err = s.Remove(a.Key())
	suite.Require().NoError(err)

	reloaded := NewStore(NewRepository(suite.db))
	suite.Require().NoError(reloaded.Load())
	snapshot := reloaded.Snapshot()
	suite.Require().Len(snapshot, 1)
	suite.Equal("BBB", snapshot[0].Symbol)
	suite.Equal("7", snapshot[0].CurrentPrice.String())
	suite.True(fixedNow.Equal(snapshot[0].Timestamp))
}

func (suite *StorePersistenceTestSuite) TestReloadNeverLowersATH() {
	s := NewStore(NewRepository(suite.db), WithClock(fixedClock))
	p := sampleProject("ethereum", "0xAAA", "AAA")
	p.ATH = decimal.NewNullDecimal(decimal.RequireFromString("123456789.123456781999"))
	_, _, err := s.Add(p)
	suite.Require().NoError(err)

	reloaded := NewStore(NewRepository(suite.db))
	suite.Require().NoError(reloaded.Load())
	got, ok := reloaded.Get(p.Key())
	suite.Require().True(ok)
	suite.Require().True(got.ATH.Valid)
	suite.False(got.ATH.Decimal.LessThan(p.ATH.Decimal), got.ATH.Decimal.String())
	suite.True(got.ATH.Decimal.Equal(p.ATH.Decimal))
}

func TestStorePersistenceTestSuite(t *testing.T) {
	suite.Run(t, new(StorePersistenceTestSuite))
}

func ptr[T any](v T) *T {
	return &v
}
