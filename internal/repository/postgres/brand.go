package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/brand-service/internal/domain"
	"github.com/utafrali/brand-service/internal/repository"
	"github.com/utafrali/brand-service/pkg/database"
	apperrors "github.com/utafrali/brand-service/pkg/errors"
)

const brandColumns = `id, external_brand_id, name, display_name, description, logo_url, is_active, created_at, updated_at`

// sortColumns maps ordering field names to columns. Fields missing here are
// ignored when building ORDER BY.
var sortColumns = map[string]string{
	"id":                "id",
	"external_brand_id": "external_brand_id",
	"name":              "name",
	"display_name":      "display_name",
	"description":       "description",
	"logo_url":          "logo_url",
	"is_active":         "is_active",
	"created_at":        "created_at",
	"updated_at":        "updated_at",
}

// BrandRepository implements repository.BrandRepository using PostgreSQL.
type BrandRepository struct {
	tracer *database.QueryTracer
	newID  func() string
	now    func() time.Time
}

var _ repository.BrandRepository = (*BrandRepository)(nil)

// NewBrandRepository creates a new PostgreSQL-backed brand repository.
func NewBrandRepository(tracer *database.QueryTracer) *BrandRepository {
	return &BrandRepository{
		tracer: tracer,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// FindByName retrieves a brand by its exact name.
func (r *BrandRepository) FindByName(ctx context.Context, db database.DBTX, name string) (b *domain.Brand, err error) {
	query := `SELECT ` + brandColumns + ` FROM brands WHERE name = $1`

	ctx, end := r.tracer.Trace(ctx, "FindBrandByName", query)
	defer func() { end(err) }()

	b, err = scanBrand(db.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find brand by name: %w", err)
	}
	return b, nil
}

// FindByID retrieves a brand by its ID.
func (r *BrandRepository) FindByID(ctx context.Context, db database.DBTX, id string) (b *domain.Brand, err error) {
	query := `SELECT ` + brandColumns + ` FROM brands WHERE id = $1`

	ctx, end := r.tracer.Trace(ctx, "FindBrandByID", query)
	defer func() { end(err) }()

	b, err = scanBrand(db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("brand", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find brand by id: %w", err)
	}
	return b, nil
}

// Create inserts a new brand with a fresh ID and creation timestamp.
func (r *BrandRepository) Create(ctx context.Context, db database.DBTX, params domain.CreateBrandParams) (b *domain.Brand, err error) {
	query := `
		INSERT INTO brands (id, external_brand_id, name, display_name, description, logo_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
		RETURNING ` + brandColumns

	ctx, end := r.tracer.Trace(ctx, "CreateBrand", query)
	defer func() { end(err) }()

	nb := domain.NewBrand(params, r.newID(), r.now())

	b, err = scanBrand(db.QueryRow(ctx, query,
		nb.ID,
		nb.ExternalBrandID,
		nb.Name,
		nb.DisplayName,
		nb.Description,
		nb.LogoURL,
		nb.IsActive,
		nb.CreatedAt,
	))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.DuplicateValue("brand", "name", params.Name)
		}
		return nil, fmt.Errorf("insert brand: %w", err)
	}
	return b, nil
}

// List returns brands matching filter, ordered by ordering followed by
// created_at DESC.
func (r *BrandRepository) List(
	ctx context.Context,
	db database.DBTX,
	skip, limit int,
	filter repository.BrandFilter,
	ordering []string,
) (brands []domain.Brand, err error) {
	where, args := whereClause(filter)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + brandColumns + ` FROM brands`)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderByClause(ordering))
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if skip > 0 {
		args = append(args, skip)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	query := sb.String()

	ctx, end := r.tracer.Trace(ctx, "ListBrands", query)
	defer func() { end(err) }()

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands = []domain.Brand{}
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brand row: %w", err)
		}
		brands = append(brands, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brand rows: %w", err)
	}

	return brands, nil
}

// Count returns the number of brands matching filter.
func (r *BrandRepository) Count(ctx context.Context, db database.DBTX, filter repository.BrandFilter) (total int, err error) {
	where, args := whereClause(filter)
	query := `SELECT count(*) FROM brands` + where

	ctx, end := r.tracer.Trace(ctx, "CountBrands", query)
	defer func() { end(err) }()

	if err = db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count brands: %w", err)
	}
	return total, nil
}

// Update changes only the supplied attributes and refreshes updated_at.
func (r *BrandRepository) Update(ctx context.Context, db database.DBTX, id string, patch domain.BrandPatch) (b *domain.Brand, err error) {
	query := `
		UPDATE brands
		SET external_brand_id = COALESCE($2, external_brand_id),
		    name              = COALESCE($3, name),
		    display_name      = COALESCE($4, display_name),
		    description       = COALESCE($5, description),
		    logo_url          = COALESCE($6, logo_url),
		    is_active         = COALESCE($7, is_active),
		    updated_at        = $8
		WHERE id = $1
		RETURNING ` + brandColumns

	ctx, end := r.tracer.Trace(ctx, "UpdateBrand", query)
	defer func() { end(err) }()

	b, err = scanBrand(db.QueryRow(ctx, query,
		id,
		patch.ExternalBrandID,
		patch.Name,
		patch.DisplayName,
		patch.Description,
		patch.LogoURL,
		patch.IsActive,
		r.now().UTC(),
	))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NotFound("brand", id)
		case database.IsUniqueViolation(err):
			var name string
			if patch.Name != nil {
				name = *patch.Name
			}
			return nil, apperrors.DuplicateValue("brand", "name", name)
		}
		return nil, fmt.Errorf("update brand: %w", err)
	}
	return b, nil
}

// Delete removes a brand by its ID.
func (r *BrandRepository) Delete(ctx context.Context, db database.DBTX, id string) (deleted bool, err error) {
	query := `DELETE FROM brands WHERE id = $1`

	ctx, end := r.tracer.Trace(ctx, "DeleteBrand", query)
	defer func() { end(err) }()

	ct, err := db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete brand: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause builds the predicate shared by List and Count. The returned
// clause starts with a space, or is empty when filter matches everything.
func whereClause(filter repository.BrandFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.Query != nil && *filter.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(*filter.Query)+"%")
		conditions = append(conditions, fmt.Sprintf(`(name ILIKE $%d ESCAPE '\' OR display_name ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderByClause converts ordering terms into an ORDER BY list. Unknown fields
// are dropped and created_at DESC is always the final tiebreaker.
func orderByClause(ordering []string) string {
	terms := make([]string, 0, len(ordering)+1)
	for _, raw := range ordering {
		term := domain.ParseOrderTerm(raw)
		col, ok := sortColumns[term.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if term.Desc {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	terms = append(terms, "created_at DESC")
	return strings.Join(terms, ", ")
}

func scanBrand(row pgx.Row) (*domain.Brand, error) {
	var b domain.Brand
	if err := row.Scan(
		&b.ID,
		&b.ExternalBrandID,
		&b.Name,
		&b.DisplayName,
		&b.Description,
		&b.LogoURL,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}
