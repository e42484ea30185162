package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/brand-service/internal/domain"
	"github.com/utafrali/brand-service/internal/repository"
	"github.com/utafrali/brand-service/pkg/database"
	apperrors "github.com/utafrali/brand-service/pkg/errors"
	"github.com/utafrali/brand-service/pkg/validator"
)

// --- Mock Repository ---

type mockBrandRepository struct {
	mock.Mock
}

func (m *mockBrandRepository) FindByName(ctx context.Context, db database.DBTX, name string) (*domain.Brand, error) {
	args := m.Called(ctx, db, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) FindByID(ctx context.Context, db database.DBTX, id string) (*domain.Brand, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) Create(ctx context.Context, db database.DBTX, params domain.CreateBrandParams) (*domain.Brand, error) {
	args := m.Called(ctx, db, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) List(
	ctx context.Context,
	db database.DBTX,
	skip, limit int,
	filter repository.BrandFilter,
	ordering []string,
) ([]domain.Brand, error) {
	args := m.Called(ctx, db, skip, limit, filter, ordering)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) Count(ctx context.Context, db database.DBTX, filter repository.BrandFilter) (int, error) {
	args := m.Called(ctx, db, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockBrandRepository) Update(ctx context.Context, db database.DBTX, id string, patch domain.BrandPatch) (*domain.Brand, error) {
	args := m.Called(ctx, db, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) Delete(ctx context.Context, db database.DBTX, id string) (bool, error) {
	args := m.Called(ctx, db, id)
	return args.Bool(0), args.Error(1)
}

// --- Mock Event Publisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishBrandCreated(ctx context.Context, brand *domain.Brand) error {
	return m.Called(ctx, brand).Error(0)
}

func (m *mockEvents) PublishBrandUpdated(ctx context.Context, brand *domain.Brand, changed []string) error {
	return m.Called(ctx, brand, changed).Error(0)
}

func (m *mockEvents) PublishBrandDeleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Test Helpers ---

type fixture struct {
	svc    *BrandService
	pool   pgxmock.PgxPoolIface
	repo   *mockBrandRepository
	events *mockEvents
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := new(mockBrandRepository)
	events := new(mockEvents)
	return &fixture{
		svc:    NewBrandService(pool, repo, events, Options{}, newTestLogger()),
		pool:   pool,
		repo:   repo,
		events: events,
	}
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	assert.NoError(t, f.pool.ExpectationsWereMet())
	f.repo.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }

const brandID = "7b0b1f5e-3c1d-4f8a-9d5e-2a6c8e4b1f00"

func sampleBrand() *domain.Brand {
	return &domain.Brand{
		ID:          brandID,
		Name:        "nike",
		DisplayName: strPtr("Nike"),
		IsActive:    true,
		CreatedAt:   time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperrors.KindOf(err), "error: %v", err)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

// --- CreateBrand ---

func TestCreateBrand_Success(t *testing.T) {
	f := newFixture(t)
	brand := sampleBrand()
	params := domain.CreateBrandParams{Name: "nike", DisplayName: strPtr("Nike")}

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(nil, apperrors.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything, params).Return(brand, nil)
	f.pool.ExpectCommit()
	f.events.On("PublishBrandCreated", mock.Anything, brand).Return(nil)

	got, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike", DisplayName: strPtr("Nike")})
	require.NoError(t, err)
	assert.Equal(t, brand, got)
	f.verify(t)
}

func TestCreateBrand_DuplicateName(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(sampleBrand(), nil)
	f.pool.ExpectRollback()

	_, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike"})
	requireKind(t, err, apperrors.KindValidation)
	requireCode(t, err, "DUPLICATE_NAME")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishBrandCreated", mock.Anything, mock.Anything)
	f.verify(t)
}

func TestCreateBrand_NameCheckIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	brand := sampleBrand()
	brand.Name = "Nike"

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "Nike").Return(nil, apperrors.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything, domain.CreateBrandParams{Name: "Nike"}).Return(brand, nil)
	f.pool.ExpectCommit()
	f.events.On("PublishBrandCreated", mock.Anything, brand).Return(nil)

	_, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "Nike"})
	require.NoError(t, err)
	f.verify(t)
}

func TestCreateBrand_InsertRaceReportsDuplicate(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(nil, apperrors.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything, domain.CreateBrandParams{Name: "nike"}).
		Return(nil, apperrors.DuplicateValue("brand", "name", "nike"))
	f.pool.ExpectRollback()

	_, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike"})
	requireCode(t, err, "DUPLICATE_NAME")
	f.verify(t)
}

func TestCreateBrand_CommitUniqueViolationReportsDuplicate(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(nil, apperrors.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything, domain.CreateBrandParams{Name: "nike"}).Return(sampleBrand(), nil)
	f.pool.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike"})
	requireKind(t, err, apperrors.KindValidation)
	requireCode(t, err, "DUPLICATE_NAME")
	f.events.AssertNotCalled(t, "PublishBrandCreated", mock.Anything, mock.Anything)
	f.verify(t)
}

func TestCreateBrand_ValidationFailsBeforeTransaction(t *testing.T) {
	tests := []struct {
		name  string
		input CreateBrandInput
		field string
	}{
		{name: "missing name", input: CreateBrandInput{}, field: "name"},
		{name: "name too long", input: CreateBrandInput{Name: string(make([]byte, 101))}, field: "name"},
		{name: "display name too long", input: CreateBrandInput{Name: "nike", DisplayName: strPtr(string(make([]byte, 201)))}, field: "display_name"},
		{name: "logo url too long", input: CreateBrandInput{Name: "nike", LogoURL: strPtr(string(make([]byte, 256)))}, field: "logo_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.CreateBrand(context.Background(), &tt.input)
			requireKind(t, err, apperrors.KindValidation)

			var valErr *validator.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, valErr.Fields(), tt.field)
			f.verify(t)
		})
	}
}

func TestCreateBrand_StoreFailureIsOpaque(t *testing.T) {
	f := newFixture(t)
	storeErr := errors.New("pq: relation \"brands\" does not exist")

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(nil, apperrors.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything, domain.CreateBrandParams{Name: "nike"}).Return(nil, storeErr)
	f.pool.ExpectRollback()

	_, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike"})
	requireKind(t, err, apperrors.KindInternal)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "an internal error occurred", appErr.Message)
	assert.NotContains(t, appErr.Message, "relation")
	assert.ErrorIs(t, err, storeErr)
	f.verify(t)
}

func TestCreateBrand_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	brand := sampleBrand()

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(nil, apperrors.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything, domain.CreateBrandParams{Name: "nike"}).Return(brand, nil)
	f.pool.ExpectCommit()
	f.events.On("PublishBrandCreated", mock.Anything, brand).Return(errors.New("broker unreachable"))

	got, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike"})
	require.NoError(t, err)
	assert.Equal(t, brand.ID, got.ID)
	f.verify(t)
}

func TestCreateBrand_BeginFailureIsInternal(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadWrite).WillReturnError(errors.New("too many clients already"))

	_, err := f.svc.CreateBrand(context.Background(), &CreateBrandInput{Name: "nike"})
	requireKind(t, err, apperrors.KindInternal)
	f.repo.AssertNotCalled(t, "FindByName", mock.Anything, mock.Anything, mock.Anything)
	f.verify(t)
}

// --- ListBrands ---

func TestListBrands_Unpaginated(t *testing.T) {
	f := newFixture(t)
	brands := []domain.Brand{*sampleBrand()}
	ordering := []string{"-created_at"}

	f.pool.ExpectBeginTx(database.ReadOnly)
	f.repo.On("List", mock.Anything, mock.Anything, -1, -1, repository.BrandFilter{}, ordering).Return(brands, nil)
	f.repo.On("Count", mock.Anything, mock.Anything, repository.BrandFilter{}).Return(1, nil)
	f.pool.ExpectCommit()

	got, err := f.svc.ListBrands(context.Background(), &ListBrandsInput{Ordering: ordering})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, brands, got.Data)
	f.verify(t)
}

func TestListBrands_Window(t *testing.T) {
	tests := []struct {
		name      string
		page      *int
		pageSize  *int
		wantSkip  int
		wantLimit int
	}{
		{name: "first page", page: intPtr(1), pageSize: intPtr(10), wantSkip: 0, wantLimit: 10},
		{name: "third page", page: intPtr(3), pageSize: intPtr(10), wantSkip: 20, wantLimit: 10},
		{name: "clamped pagesize", page: intPtr(2), pageSize: intPtr(5000), wantSkip: 1000, wantLimit: 1000},
		{name: "missing pagesize", page: intPtr(2), pageSize: nil, wantSkip: -1, wantLimit: -1},
		{name: "missing page", page: nil, pageSize: intPtr(10), wantSkip: -1, wantLimit: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.pool.ExpectBeginTx(database.ReadOnly)
			f.repo.On("List", mock.Anything, mock.Anything, tt.wantSkip, tt.wantLimit, repository.BrandFilter{}, []string(nil)).
				Return([]domain.Brand{}, nil)
			f.repo.On("Count", mock.Anything, mock.Anything, repository.BrandFilter{}).Return(0, nil)
			f.pool.ExpectCommit()

			_, err := f.svc.ListBrands(context.Background(), &ListBrandsInput{Page: tt.page, PageSize: tt.pageSize})
			require.NoError(t, err)
			f.verify(t)
		})
	}
}

func TestListBrands_PassesFilterToListAndCount(t *testing.T) {
	f := newFixture(t)
	filter := repository.BrandFilter{Query: strPtr("app"), IsActive: boolPtr(true)}

	f.pool.ExpectBeginTx(database.ReadOnly)
	f.repo.On("List", mock.Anything, mock.Anything, 0, 10, filter, []string{"name"}).Return([]domain.Brand{}, nil)
	f.repo.On("Count", mock.Anything, mock.Anything, filter).Return(0, nil)
	f.pool.ExpectCommit()

	got, err := f.svc.ListBrands(context.Background(), &ListBrandsInput{
		Page:     intPtr(1),
		PageSize: intPtr(10),
		Query:    strPtr("app"),
		IsActive: boolPtr(true),
		Ordering: []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.NotNil(t, got.Data)
	assert.Empty(t, got.Data)
	f.verify(t)
}

func TestListBrands_CustomMaxPageSize(t *testing.T) {
	pool, err := database.NewMockPool()
	require.NoError(t, err)
	defer pool.Close()
	repo := new(mockBrandRepository)
	svc := NewBrandService(pool, repo, new(mockEvents), Options{MaxPageSize: 50}, newTestLogger())

	pool.ExpectBeginTx(database.ReadOnly)
	repo.On("List", mock.Anything, mock.Anything, 50, 50, repository.BrandFilter{}, []string(nil)).Return([]domain.Brand{}, nil)
	repo.On("Count", mock.Anything, mock.Anything, repository.BrandFilter{}).Return(0, nil)
	pool.ExpectCommit()

	_, err = svc.ListBrands(context.Background(), &ListBrandsInput{Page: intPtr(2), PageSize: intPtr(500)})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestListBrands_RejectsNonPositivePage(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListBrands(context.Background(), &ListBrandsInput{Page: intPtr(0), PageSize: intPtr(10)})
	requireKind(t, err, apperrors.KindValidation)

	_, err = f.svc.ListBrands(context.Background(), &ListBrandsInput{Page: intPtr(1), PageSize: intPtr(-5)})
	requireKind(t, err, apperrors.KindValidation)
	f.verify(t)
}

func TestListBrands_CountFailureRollsBack(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadOnly)
	f.repo.On("List", mock.Anything, mock.Anything, -1, -1, repository.BrandFilter{}, []string(nil)).Return([]domain.Brand{}, nil)
	f.repo.On("Count", mock.Anything, mock.Anything, repository.BrandFilter{}).Return(0, errors.New("conn closed"))
	f.pool.ExpectRollback()

	_, err := f.svc.ListBrands(context.Background(), nil)
	requireKind(t, err, apperrors.KindInternal)
	f.verify(t)
}

// --- GetBrand ---

func TestGetBrand_Success(t *testing.T) {
	f := newFixture(t)
	brand := sampleBrand()

	f.pool.ExpectBeginTx(database.ReadOnly)
	f.repo.On("FindByID", mock.Anything, mock.Anything, brandID).Return(brand, nil)
	f.pool.ExpectCommit()

	got, err := f.svc.GetBrand(context.Background(), brandID)
	require.NoError(t, err)
	assert.Equal(t, brand, got)
	f.verify(t)
}

func TestGetBrand_NotFound(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadOnly)
	f.repo.On("FindByID", mock.Anything, mock.Anything, brandID).Return(nil, apperrors.NotFound("brand", brandID))
	f.pool.ExpectRollback()

	_, err := f.svc.GetBrand(context.Background(), brandID)
	requireKind(t, err, apperrors.KindNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.verify(t)
}

// --- UpdateBrand ---

func TestUpdateBrand_WithoutNameSkipsDuplicateCheck(t *testing.T) {
	f := newFixture(t)
	updated := sampleBrand()
	updated.IsActive = false
	patch := domain.BrandPatch{IsActive: boolPtr(false)}

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("Update", mock.Anything, mock.Anything, brandID, patch).Return(updated, nil)
	f.pool.ExpectCommit()
	f.events.On("PublishBrandUpdated", mock.Anything, updated, []string{"is_active"}).Return(nil)

	got, err := f.svc.UpdateBrand(context.Background(), brandID, &UpdateBrandInput{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	f.repo.AssertNotCalled(t, "FindByName", mock.Anything, mock.Anything, mock.Anything)
	f.verify(t)
}

func TestUpdateBrand_SameNameOnSameBrand(t *testing.T) {
	f := newFixture(t)
	brand := sampleBrand()
	patch := domain.BrandPatch{Name: strPtr("nike")}

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "nike").Return(brand, nil)
	f.repo.On("Update", mock.Anything, mock.Anything, brandID, patch).Return(brand, nil)
	f.pool.ExpectCommit()
	f.events.On("PublishBrandUpdated", mock.Anything, brand, []string{"name"}).Return(nil)

	_, err := f.svc.UpdateBrand(context.Background(), brandID, &UpdateBrandInput{Name: strPtr("nike")})
	require.NoError(t, err)
	f.verify(t)
}

func TestUpdateBrand_NameTakenByAnotherBrand(t *testing.T) {
	f := newFixture(t)
	other := sampleBrand()
	other.ID = "2f1d7c3a-0000-4000-8000-000000000002"
	other.Name = "apple"

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("FindByName", mock.Anything, mock.Anything, "apple").Return(other, nil)
	f.pool.ExpectRollback()

	_, err := f.svc.UpdateBrand(context.Background(), brandID, &UpdateBrandInput{Name: strPtr("apple")})
	requireCode(t, err, "DUPLICATE_NAME")
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.verify(t)
}

func TestUpdateBrand_NotFound(t *testing.T) {
	f := newFixture(t)
	patch := domain.BrandPatch{Description: strPtr("gone")}

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("Update", mock.Anything, mock.Anything, brandID, patch).Return(nil, apperrors.NotFound("brand", brandID))
	f.pool.ExpectRollback()

	_, err := f.svc.UpdateBrand(context.Background(), brandID, &UpdateBrandInput{Description: strPtr("gone")})
	requireKind(t, err, apperrors.KindNotFound)
	f.events.AssertNotCalled(t, "PublishBrandUpdated", mock.Anything, mock.Anything, mock.Anything)
	f.verify(t)
}

func TestUpdateBrand_EmptyNameRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateBrand(context.Background(), brandID, &UpdateBrandInput{Name: strPtr("")})
	requireKind(t, err, apperrors.KindValidation)

	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "name")
	f.verify(t)
}

// --- DeleteBrand ---

func TestDeleteBrand_Success(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("Delete", mock.Anything, mock.Anything, brandID).Return(true, nil)
	f.pool.ExpectCommit()
	f.events.On("PublishBrandDeleted", mock.Anything, brandID).Return(nil)

	require.NoError(t, f.svc.DeleteBrand(context.Background(), brandID))
	f.verify(t)
}

func TestDeleteBrand_NotFound(t *testing.T) {
	f := newFixture(t)

	f.pool.ExpectBeginTx(database.ReadWrite)
	f.repo.On("Delete", mock.Anything, mock.Anything, brandID).Return(false, nil)
	f.pool.ExpectRollback()

	err := f.svc.DeleteBrand(context.Background(), brandID)
	requireKind(t, err, apperrors.KindNotFound)
	f.events.AssertNotCalled(t, "PublishBrandDeleted", mock.Anything, mock.Anything)
	f.verify(t)
}
