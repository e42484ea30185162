package domain

import (
	"strings"
	"time"
)

// Brand is a product brand as stored and returned by the API. Every field is
// always present in its JSON form, null when unset.
type Brand struct {
	ID              string     `json:"id"`
	ExternalBrandID *string    `json:"external_brand_id"`
	Name            string     `json:"name"`
	DisplayName     *string    `json:"display_name"`
	Description     *string    `json:"description"`
	LogoURL         *string    `json:"logo_url"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// CreateBrandParams holds the caller-supplied attributes of a new brand.
type CreateBrandParams struct {
	ExternalBrandID *string
	Name            string
	DisplayName     *string
	Description     *string
	LogoURL         *string
	IsActive        *bool
}

// NewBrand builds a brand from params. DisplayName falls back to Name when
// omitted or empty and IsActive defaults to true. UpdatedAt stays nil until
// the first update.
func NewBrand(params CreateBrandParams, id string, now time.Time) *Brand {
	displayName := params.Name
	if params.DisplayName != nil && *params.DisplayName != "" {
		displayName = *params.DisplayName
	}

	active := true
	if params.IsActive != nil {
		active = *params.IsActive
	}

	return &Brand{
		ID:              id,
		ExternalBrandID: params.ExternalBrandID,
		Name:            params.Name,
		DisplayName:     &displayName,
		Description:     params.Description,
		LogoURL:         params.LogoURL,
		IsActive:        active,
		CreatedAt:       now.UTC(),
	}
}

// BrandPatch is a partial update. A nil field is left unchanged.
type BrandPatch struct {
	ExternalBrandID *string
	Name            *string
	DisplayName     *string
	Description     *string
	LogoURL         *string
	IsActive        *bool
}

// IsEmpty reports whether the patch changes no attribute.
func (p BrandPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the JSON names of the supplied attributes in column order.
func (p BrandPatch) Fields() []string {
	var fields []string
	if p.ExternalBrandID != nil {
		fields = append(fields, "external_brand_id")
	}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.DisplayName != nil {
		fields = append(fields, "display_name")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.LogoURL != nil {
		fields = append(fields, "logo_url")
	}
	if p.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}

// SortableFields lists the attribute names accepted in an ordering term.
var SortableFields = []string{
	"id",
	"external_brand_id",
	"name",
	"display_name",
	"description",
	"logo_url",
	"is_active",
	"created_at",
	"updated_at",
}

// OrderTerm is one parsed ordering term such as "-name".
type OrderTerm struct {
	Field string
	Desc  bool
}

// ParseOrderTerm parses a term where a leading "-" means descending.
func ParseOrderTerm(term string) OrderTerm {
	term = strings.TrimSpace(term)
	if rest, ok := strings.CutPrefix(term, "-"); ok {
		return OrderTerm{Field: rest, Desc: true}
	}
	return OrderTerm{Field: term}
}
