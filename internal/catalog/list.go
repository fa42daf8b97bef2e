package catalog

import (
	"fmt"
	"strings"
)

// ProductSort names the supported browse orders.
type ProductSort string

const (
	SortNewest      ProductSort = "newest"
	SortPriceAsc    ProductSort = "price_asc"
	SortPriceDesc   ProductSort = "price_desc"
	SortBestSelling ProductSort = "best_selling"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 48
	HomeSectionSize = 4
)

// ParseProductSort maps query values onto a sort, defaulting to newest.
func ParseProductSort(value string) (ProductSort, error) {
	switch ProductSort(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	case SortBestSelling:
		return SortBestSelling, nil
	}
	return "", fmt.Errorf("invalid sort %q", value)
}

func (s ProductSort) orderClauses() []string {
	switch s {
	case SortPriceAsc:
		return []string{"products.price ASC", "products.id ASC"}
	case SortPriceDesc:
		return []string{"products.price DESC", "products.id ASC"}
	case SortBestSelling:
		return []string{"products.sales_count DESC", "products.created_at DESC", "products.id ASC"}
	default:
		return []string{"products.created_at DESC", "products.id DESC"}
	}
}

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	CategorySlug string
	Query        string
	Featured     *bool
	BestSeller   *bool
	IsNew        *bool
	OnSale       *bool
}

// ListProductsInput captures paging, sorting and filters for the browse endpoint.
type ListProductsInput struct {
	Filters  ProductListFilters
	Sort     ProductSort
	Page     int
	PageSize int
}

func (in ListProductsInput) normalized() ListProductsInput {
	if in.Page < 1 {
		in.Page = 1
	}
	switch {
	case in.PageSize <= 0:
		in.PageSize = DefaultPageSize
	case in.PageSize > MaxPageSize:
		in.PageSize = MaxPageSize
	}
	if in.Sort == "" {
		in.Sort = SortNewest
	}
	return in
}
