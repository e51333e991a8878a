package compound

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// MockRepository implements Repository for service tests.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, c *Compound) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id common.ID) (*Compound, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Compound), args.Error(1)
}

func (m *MockRepository) GetByName(ctx context.Context, name string) (*Compound, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Compound), args.Error(1)
}

func (m *MockRepository) GetByCID(ctx context.Context, cid string) (*Compound, error) {
	args := m.Called(ctx, cid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Compound), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c *Compound) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id common.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, page common.Pagination) ([]*Compound, int64, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Compound), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListByPictogram(ctx context.Context, p ctypes.Pictogram, page common.Pagination) ([]*Compound, int64, error) {
	args := m.Called(ctx, p, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Compound), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListByState(ctx context.Context, state ctypes.PhysicalState, page common.Pagination) ([]*Compound, int64, error) {
	args := m.Called(ctx, state, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Compound), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) BatchCreate(ctx context.Context, cs []*Compound) (int64, error) {
	args := m.Called(ctx, cs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(repo *MockRepository) *Service {
	return NewService(repo, logging.NewNopLogger())
}

func TestService_CreateCompound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	c, _ := NewCompound("acetone")
	repo.On("Create", mock.Anything, c).Return(nil)

	err := svc.CreateCompound(context.Background(), c)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_CreateCompound_NilCompound(t *testing.T) {
	svc := newTestService(new(MockRepository))

	err := svc.CreateCompound(context.Background(), nil)
	assert.Error(t, err)
}

func TestService_CreateCompound_RepoError(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	c, _ := NewCompound("acetone")
	repo.On("Create", mock.Anything, c).
		Return(errors.New(errors.ErrCodeCompoundAlreadyExists, "duplicate"))

	err := svc.CreateCompound(context.Background(), c)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundAlreadyExists))
}

func TestService_GetCompound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	c, _ := NewCompound("acetone")
	repo.On("GetByID", mock.Anything, c.ID).Return(c, nil)

	got, err := svc.GetCompound(context.Background(), c.ID)

	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
}

func TestService_GetCompound_InvalidID(t *testing.T) {
	svc := newTestService(new(MockRepository))

	_, err := svc.GetCompound(context.Background(), common.ID(""))
	assert.Error(t, err)
}

func TestService_GetCompoundByName(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("GetByName", mock.Anything, "unobtainium").
		Return(nil, errors.New(errors.CodeCompoundNotFound, "not found"))

	_, err := svc.GetCompoundByName(context.Background(), "unobtainium")
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.GetCompoundByName(context.Background(), "")
	assert.Error(t, err)
}

func TestService_DeleteCompound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	id := common.NewID()
	repo.On("Delete", mock.Anything, id).Return(nil)

	assert.NoError(t, svc.DeleteCompound(context.Background(), id))
	repo.AssertExpectations(t)
}

func TestService_ListCompounds_InvalidPagination(t *testing.T) {
	svc := newTestService(new(MockRepository))

	_, _, err := svc.ListCompounds(context.Background(), common.Pagination{Page: -1, PageSize: 10})
	assert.Error(t, err)
}

func TestService_EnsureFingerprints_ComputesAndPersists(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	c, _ := NewCompound("ethanol")
	c.AttachIdentity("702", "ethanol", "ethanol", "CCO")
	repo.On("Update", mock.Anything, c).Return(nil)

	err := svc.EnsureFingerprints(context.Background(), c, ctypes.FPMorgan, ctypes.FPMACCS)

	require.NoError(t, err)
	assert.Contains(t, c.Fingerprints, ctypes.FPMorgan)
	assert.Contains(t, c.Fingerprints, ctypes.FPMACCS)
	repo.AssertExpectations(t)
}

func TestService_EnsureFingerprints_SkipsPlaceholderNotation(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	c, _ := NewCompound("mystery")
	c.AttachIdentity("", "", "", "")

	err := svc.EnsureFingerprints(context.Background(), c, ctypes.FPMorgan)

	require.NoError(t, err)
	assert.Empty(t, c.Fingerprints)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_EnsureFingerprints_NoUpdateWhenAlreadyPresent(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	c, _ := NewCompound("ethanol")
	c.AttachIdentity("702", "ethanol", "ethanol", "CCO")
	require.NoError(t, c.CalculateFingerprint(ctypes.FPMorgan))

	err := svc.EnsureFingerprints(context.Background(), c, ctypes.FPMorgan)

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_Similarity(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	a, _ := NewCompound("ethanol")
	a.AttachIdentity("702", "ethanol", "ethanol", "CCO")
	b, _ := NewCompound("methanol")
	b.AttachIdentity("887", "methanol", "methanol", "CO")

	repo.On("GetByID", mock.Anything, a.ID).Return(a, nil)
	repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	sim, err := svc.Similarity(context.Background(), a.ID, b.ID, ctypes.FPMorgan)

	require.NoError(t, err)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
}

func TestService_BatchImport(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	a, _ := NewCompound("ethanol")
	b, _ := NewCompound("methanol")
	batch := []*Compound{a, b}
	repo.On("BatchCreate", mock.Anything, batch).Return(int64(2), nil)

	inserted, err := svc.BatchImport(context.Background(), batch)

	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)
}

func TestService_BatchImport_EmptyBatch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	inserted, err := svc.BatchImport(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, inserted)
	repo.AssertNotCalled(t, "BatchCreate", mock.Anything, mock.Anything)
}
//Personal.AI order the ending
