// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPaginationCount    = 100
	MaxPaginationCount        = 100
	DefaultPaginationPage     = 1
	DefaultPaginationOrderAsc = "asc"
	PaginationOrderDesc       = "desc"
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams contains parsed pagination query values.
type PaginationParams struct {
	Order string
	Count int
	Page  int
}

// Offset returns the row offset of the requested page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Count
}

// Desc returns true when descending order was requested.
func (p PaginationParams) Desc() bool {
	return p.Order == PaginationOrderDesc
}

// intQueryParam parses an integer query parameter, returning def when the
// parameter is absent.
func intQueryParam(query url.Values, name string, def int) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrInvalidPaginationParameters
	}
	return v, nil
}

// ParsePagination parses the count, page, and order query parameters,
// applying defaults and clamping out-of-range values.
func ParsePagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Count: DefaultPaginationCount,
		Page:  DefaultPaginationPage,
		Order: DefaultPaginationOrderAsc,
	}
	query := r.URL.Query()
	var err error
	if params.Count, err = intQueryParam(query, "count", params.Count); err != nil {
		return PaginationParams{}, err
	}
	if params.Page, err = intQueryParam(query, "page", params.Page); err != nil {
		return PaginationParams{}, err
	}
	if orderParam := query.Get("order"); orderParam != "" {
		order := strings.ToLower(orderParam)
		if order != DefaultPaginationOrderAsc &&
			order != PaginationOrderDesc {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Order = order
	}
	params.Count = min(max(params.Count, 1), MaxPaginationCount)
	params.Page = max(params.Page, 1)
	return params, nil
}

// SetPaginationHeaders sets the total item and page count headers for a
// paginated response.
func SetPaginationHeaders(
	w http.ResponseWriter,
	totalItems int64,
	params PaginationParams,
) {
	totalItems = max(totalItems, 0)
	count := int64(params.Count)
	if count < 1 {
		count = DefaultPaginationCount
	}
	var totalPages int64
	if totalItems > 0 {
		totalPages = (totalItems + count - 1) / count
	}
	w.Header().Set(
		"X-Pagination-Count-Total",
		strconv.FormatInt(totalItems, 10),
	)
	w.Header().Set(
		"X-Pagination-Page-Total",
		strconv.FormatInt(totalPages, 10),
	)
}
