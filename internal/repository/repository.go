package repository

import (
	"context"

	"github.com/utafrali/brand-service/internal/domain"
	"github.com/utafrali/brand-service/pkg/database"
)

// BrandFilter defines filter criteria for listing and counting brands.
type BrandFilter struct {
	// Query matches name or display_name case-insensitively. Empty means no filter.
	Query    *string
	IsActive *bool
}

// BrandRepository defines brand persistence operations. Every method runs on
// the caller's unit of work and never commits.
type BrandRepository interface {
	// FindByName retrieves a brand by its exact, case-sensitive name.
	FindByName(ctx context.Context, db database.DBTX, name string) (*domain.Brand, error)

	// FindByID retrieves a brand by its unique identifier.
	FindByID(ctx context.Context, db database.DBTX, id string) (*domain.Brand, error)

	// Create inserts a new brand and returns it as stored.
	Create(ctx context.Context, db database.DBTX, params domain.CreateBrandParams) (*domain.Brand, error)

	// List returns one page of brands. A skip or limit <= 0 disables OFFSET or LIMIT.
	List(ctx context.Context, db database.DBTX, skip, limit int, filter BrandFilter, ordering []string) ([]domain.Brand, error)

	// Count returns the number of brands matching filter.
	Count(ctx context.Context, db database.DBTX, filter BrandFilter) (int, error)

	// Update applies patch to an existing brand and returns it as stored.
	Update(ctx context.Context, db database.DBTX, id string, patch domain.BrandPatch) (*domain.Brand, error)

	// Delete removes a brand, reporting whether a row was removed.
	Delete(ctx context.Context, db database.DBTX, id string) (bool, error)
}
