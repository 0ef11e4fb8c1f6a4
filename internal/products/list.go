package products

import (
	"github.com/loomline/storefront-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the catalog listing.
type ListFilters struct {
	Category string `json:"category,omitempty"`
	Query    string `json:"q,omitempty"`
	Featured *bool  `json:"featured,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
// IncludeInactive is only honored for admin callers; the public listing always
// scopes to active products.
type ListProductsInput struct {
	Filters         ListFilters
	Pagination      pagination.Params
	IncludeInactive bool
}

// ListResult is one catalog page plus the cursor for the following page.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
