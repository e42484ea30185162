package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/brand-service/internal/domain"
	"github.com/utafrali/brand-service/internal/repository"
	"github.com/utafrali/brand-service/pkg/database"
	apperrors "github.com/utafrali/brand-service/pkg/errors"
	"github.com/utafrali/brand-service/pkg/logger"
	"github.com/utafrali/brand-service/pkg/pagination"
	"github.com/utafrali/brand-service/pkg/tracing"
	"github.com/utafrali/brand-service/pkg/validator"
)

// DefaultMaxPageSize caps pagesize when Options leaves MaxPageSize unset.
const DefaultMaxPageSize = 1000

var tracer = tracing.Tracer("github.com/utafrali/brand-service/internal/service")

// EventPublisher emits brand domain events after a mutation commits.
type EventPublisher interface {
	PublishBrandCreated(ctx context.Context, brand *domain.Brand) error
	PublishBrandUpdated(ctx context.Context, brand *domain.Brand, changed []string) error
	PublishBrandDeleted(ctx context.Context, id string) error
}

// Options tunes a BrandService.
type Options struct {
	// MaxPageSize clamps the requested pagesize. Zero means DefaultMaxPageSize.
	MaxPageSize int
	// AcquireTimeout bounds how long an operation waits for a pooled
	// connection. Zero waits as long as the request context allows.
	AcquireTimeout time.Duration
}

// BrandService implements the business logic for brand operations. Every
// operation runs in exactly one transaction.
type BrandService struct {
	tx          *database.Transactor
	repo        repository.BrandRepository
	events      EventPublisher
	maxPageSize int
	logger      *slog.Logger
}

// NewBrandService creates a new brand service.
func NewBrandService(
	db database.TxBeginner,
	repo repository.BrandRepository,
	events EventPublisher,
	opts Options,
	logger *slog.Logger,
) *BrandService {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	return &BrandService{
		tx:          database.NewTransactor(db, opts.AcquireTimeout),
		repo:        repo,
		events:      events,
		maxPageSize: opts.MaxPageSize,
		logger:      logger,
	}
}

// CreateBrandInput holds the parameters for creating a brand.
type CreateBrandInput struct {
	ExternalBrandID *string `json:"external_brand_id" validate:"omitnil,max=255"`
	Name            string  `json:"name" validate:"required,min=1,max=100"`
	DisplayName     *string `json:"display_name" validate:"omitnil,max=200"`
	Description     *string `json:"description"`
	LogoURL         *string `json:"logo_url" validate:"omitnil,max=255"`
	IsActive        *bool   `json:"is_active"`
}

// UpdateBrandInput holds the parameters for a partial brand update. Nil
// fields are left unchanged.
type UpdateBrandInput struct {
	ExternalBrandID *string `json:"external_brand_id" validate:"omitnil,max=255"`
	Name            *string `json:"name" validate:"omitnil,min=1,max=100"`
	DisplayName     *string `json:"display_name" validate:"omitnil,max=200"`
	Description     *string `json:"description"`
	LogoURL         *string `json:"logo_url" validate:"omitnil,max=255"`
	IsActive        *bool   `json:"is_active"`
}

// ListBrandsInput holds the listing parameters. When Page or PageSize is nil
// the listing is not paginated.
type ListBrandsInput struct {
	Page     *int
	PageSize *int
	Query    *string
	IsActive *bool
	Ordering []string
}

// ListBrandsResult is one page of brands and the total number matching the
// filter.
type ListBrandsResult struct {
	Total int            `json:"total"`
	Data  []domain.Brand `json:"data"`
}

// CreateBrand creates a brand with a unique name.
func (s *BrandService) CreateBrand(ctx context.Context, input *CreateBrandInput) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "BrandService.CreateBrand")
	defer span.End()

	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	var brand *domain.Brand
	err := s.tx.WithinTx(ctx, database.ReadWrite, func(db database.DBTX) error {
		if err := s.ensureNameAvailable(ctx, db, input.Name, ""); err != nil {
			return err
		}

		b, err := s.repo.Create(ctx, db, domain.CreateBrandParams{
			ExternalBrandID: input.ExternalBrandID,
			Name:            input.Name,
			DisplayName:     input.DisplayName,
			Description:     input.Description,
			LogoURL:         input.LogoURL,
			IsActive:        input.IsActive,
		})
		if err != nil {
			return err
		}
		brand = b
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.DuplicateValue("brand", "name", input.Name)
		}
		return nil, s.fail(ctx, span, "create brand", err)
	}

	if err := s.events.PublishBrandCreated(ctx, brand); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish brand.created event",
			slog.String("brand_id", brand.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "brand created",
		slog.String("brand_id", brand.ID),
		slog.String("name", brand.Name),
	)

	return brand, nil
}

// ListBrands returns one page of brands matching the filter together with the
// total match count. The two are read by separate statements, so under
// concurrent writes the total may not match the page exactly.
func (s *BrandService) ListBrands(ctx context.Context, input *ListBrandsInput) (*ListBrandsResult, error) {
	ctx, span := tracer.Start(ctx, "BrandService.ListBrands")
	defer span.End()

	if input == nil {
		input = &ListBrandsInput{}
	}
	if input.Page != nil && *input.Page < 1 {
		return nil, apperrors.InvalidInput("page must be an integer greater than or equal to 1")
	}
	if input.PageSize != nil && *input.PageSize < 1 {
		return nil, apperrors.InvalidInput("pagesize must be an integer greater than or equal to 1")
	}

	skip, limit := pagination.Window(input.Page, input.PageSize, s.maxPageSize)
	filter := repository.BrandFilter{Query: input.Query, IsActive: input.IsActive}

	span.SetAttributes(
		attribute.Int("brand.list.skip", skip),
		attribute.Int("brand.list.limit", limit),
	)

	result := &ListBrandsResult{}
	err := s.tx.WithinTx(ctx, database.ReadOnly, func(db database.DBTX) error {
		brands, err := s.repo.List(ctx, db, skip, limit, filter, input.Ordering)
		if err != nil {
			return err
		}
		total, err := s.repo.Count(ctx, db, filter)
		if err != nil {
			return err
		}
		result.Data = brands
		result.Total = total
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "list brands", err)
	}

	if result.Data == nil {
		result.Data = []domain.Brand{}
	}
	return result, nil
}

// GetBrand retrieves a brand by its ID.
func (s *BrandService) GetBrand(ctx context.Context, id string) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "BrandService.GetBrand", trace.WithAttributes(attribute.String("brand.id", id)))
	defer span.End()

	var brand *domain.Brand
	err := s.tx.WithinTx(ctx, database.ReadOnly, func(db database.DBTX) error {
		b, err := s.repo.FindByID(ctx, db, id)
		if err != nil {
			return err
		}
		brand = b
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "get brand", err)
	}
	return brand, nil
}

// UpdateBrand applies a partial update. When a new name is supplied it must
// not belong to another brand.
func (s *BrandService) UpdateBrand(ctx context.Context, id string, input *UpdateBrandInput) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "BrandService.UpdateBrand", trace.WithAttributes(attribute.String("brand.id", id)))
	defer span.End()

	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	patch := domain.BrandPatch{
		ExternalBrandID: input.ExternalBrandID,
		Name:            input.Name,
		DisplayName:     input.DisplayName,
		Description:     input.Description,
		LogoURL:         input.LogoURL,
		IsActive:        input.IsActive,
	}

	var brand *domain.Brand
	err := s.tx.WithinTx(ctx, database.ReadWrite, func(db database.DBTX) error {
		if patch.Name != nil {
			if err := s.ensureNameAvailable(ctx, db, *patch.Name, id); err != nil {
				return err
			}
		}

		b, err := s.repo.Update(ctx, db, id, patch)
		if err != nil {
			return err
		}
		brand = b
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) && patch.Name != nil {
			return nil, apperrors.DuplicateValue("brand", "name", *patch.Name)
		}
		return nil, s.fail(ctx, span, "update brand", err)
	}

	if err := s.events.PublishBrandUpdated(ctx, brand, patch.Fields()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish brand.updated event",
			slog.String("brand_id", brand.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "brand updated",
		slog.String("brand_id", brand.ID),
		slog.Any("fields", patch.Fields()),
	)

	return brand, nil
}

// DeleteBrand permanently removes a brand.
func (s *BrandService) DeleteBrand(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "BrandService.DeleteBrand", trace.WithAttributes(attribute.String("brand.id", id)))
	defer span.End()

	err := s.tx.WithinTx(ctx, database.ReadWrite, func(db database.DBTX) error {
		deleted, err := s.repo.Delete(ctx, db, id)
		if err != nil {
			return err
		}
		if !deleted {
			return apperrors.NotFound("brand", id)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, span, "delete brand", err)
	}

	if err := s.events.PublishBrandDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish brand.deleted event",
			slog.String("brand_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "brand deleted", slog.String("brand_id", id))

	return nil
}

// ensureNameAvailable returns a DUPLICATE_NAME error when name belongs to a
// brand other than selfID.
func (s *BrandService) ensureNameAvailable(ctx context.Context, db database.DBTX, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, db, name)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	}
	return apperrors.DuplicateValue("brand", "name", name)
}

// fail passes domain errors through unchanged. Anything else is logged with
// its detail and replaced by an opaque internal error.
func (s *BrandService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	if apperrors.IsDomain(err) {
		return err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	logger.WithContext(ctx, s.logger).ErrorContext(ctx, op+" failed", slog.String("error", err.Error()))

	return apperrors.Internal(err)
}
