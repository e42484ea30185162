package pagination

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/brand-service/pkg/errors"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Unbounded is the skip/limit value meaning "no OFFSET" or "no LIMIT".
const Unbounded = -1

// Params holds the page and pagesize query parameters.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pagesize"`
}

// FromRequest reads page and pagesize from the query string. Missing values
// take the defaults; values that are not integers >= 1 are rejected.
func FromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}

	var err error
	if p.Page, err = positiveInt(q.Get("page"), "page", DefaultPage); err != nil {
		return Params{}, err
	}
	if p.PageSize, err = positiveInt(q.Get("pagesize"), "pagesize", DefaultPageSize); err != nil {
		return Params{}, err
	}
	return p, nil
}

func positiveInt(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be an integer greater than or equal to 1", name))
	}
	return v, nil
}

// Window converts page and pageSize into skip and limit. When either is nil
// the result is (Unbounded, Unbounded). pageSize is clamped to maxPageSize
// when maxPageSize is positive. A skip too large for an int saturates at
// math.MaxInt, which selects an empty page.
func Window(page, pageSize *int, maxPageSize int) (skip, limit int) {
	if page == nil || pageSize == nil {
		return Unbounded, Unbounded
	}
	limit = *pageSize
	if maxPageSize > 0 && limit > maxPageSize {
		limit = maxPageSize
	}
	if limit < 1 || *page < 1 {
		return 0, limit
	}
	if *page-1 > math.MaxInt/limit {
		return math.MaxInt, limit
	}
	return (*page - 1) * limit, limit
}
