package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/brand-service/internal/domain"
	"github.com/utafrali/brand-service/internal/service"
	"github.com/utafrali/brand-service/pkg/httputil"
	"github.com/utafrali/brand-service/pkg/pagination"
	"github.com/utafrali/brand-service/pkg/validator"
)

const maxBodyBytes = 1 << 20

// DefaultOrdering is applied when a list request names no ordering.
var DefaultOrdering = []string{"-created_at"}

// BrandService is the subset of service.BrandService the handler needs.
type BrandService interface {
	CreateBrand(ctx context.Context, input *service.CreateBrandInput) (*domain.Brand, error)
	ListBrands(ctx context.Context, input *service.ListBrandsInput) (*service.ListBrandsResult, error)
	GetBrand(ctx context.Context, id string) (*domain.Brand, error)
	UpdateBrand(ctx context.Context, id string, input *service.UpdateBrandInput) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id string) error
}

// BrandHandler handles HTTP requests for brand endpoints.
type BrandHandler struct {
	service BrandService
	logger  *slog.Logger
}

// NewBrandHandler creates a new brand HTTP handler.
func NewBrandHandler(svc BrandService, logger *slog.Logger) *BrandHandler {
	return &BrandHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateBrand handles POST /api/v1/brands
func (h *BrandHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var input service.CreateBrandInput
	if !h.decode(w, r, &input) {
		return
	}

	brand, err := h.service.CreateBrand(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, brand)
}

// ListBrands handles GET /api/v1/brands
//
// Query parameters: page (default 1), pagesize (default 10), q, is_active
// and ordering. ordering may be repeated or comma-separated; a leading "-"
// sorts descending. sig is accepted and ignored.
func (h *BrandHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	input := &service.ListBrandsInput{
		Page:     &params.Page,
		PageSize: &params.PageSize,
		Ordering: parseOrdering(q["ordering"]),
	}

	if v := q.Get("q"); v != "" {
		input.Query = &v
	}
	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteBadRequest(w, r, "INVALID_PARAMETER", "is_active must be a boolean")
			return
		}
		input.IsActive = &active
	}

	result, err := h.service.ListBrands(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetBrand handles GET /api/v1/brands/{id}
func (h *BrandHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	brand, err := h.service.GetBrand(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, brand)
}

// UpdateBrand handles PUT /api/v1/brands/{id}. Omitted fields keep their
// stored values.
func (h *BrandHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var input service.UpdateBrandInput
	if !h.decode(w, r, &input) {
		return
	}

	brand, err := h.service.UpdateBrand(r.Context(), id.String(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, brand)
}

// DeleteBrand handles DELETE /api/v1/brands/{id}
func (h *BrandHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteBrand(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteNoContent(w)
}

// decode reads and validates the JSON body into dst. On failure it writes
// the 400 response and returns false.
func (h *BrandHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := validator.DecodeAndValidate(r, dst)
	if err == nil {
		return true
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteError(w, r, err, h.logger)
		return false
	}

	httputil.WriteBadRequest(w, r, "INVALID_INPUT", "invalid request body: "+err.Error())
	return false
}

// parseOrdering flattens repeated and comma-separated ordering values.
func parseOrdering(values []string) []string {
	var ordering []string
	for _, v := range values {
		for _, term := range strings.Split(v, ",") {
			if term = strings.TrimSpace(term); term != "" {
				ordering = append(ordering, term)
			}
		}
	}
	if len(ordering) == 0 {
		return append([]string(nil), DefaultOrdering...)
	}
	return ordering
}
