package catalog

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names an ordering of product listings.
type SortKey string

const (
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortTitle     SortKey = "title-alpha"
	SortRating    SortKey = "rating-desc"
	SortNewest    SortKey = "newest"
	SortDiscount  SortKey = "discount-desc"
)

// Short spellings accepted by the listing pages' query strings.
var sortAliases = map[SortKey]SortKey{
	"title":    SortTitle,
	"rating":   SortRating,
	"discount": SortDiscount,
}

// Sort returns a stably sorted copy of products. An unknown key returns the
// products in their original order.
func Sort(products []Product, key SortKey) []Product {
	out := append([]Product(nil), products...)

	if alias, ok := sortAliases[key]; ok {
		key = alias
	}

	var less func(a, b Product) bool
	switch key {
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price > b.Price }
	case SortTitle:
		// Collator is not safe for concurrent use; one per call.
		col := collate.New(language.Vietnamese)
		less = func(a, b Product) bool { return col.CompareString(a.Title, b.Title) < 0 }
	case SortRating:
		less = func(a, b Product) bool { return a.Rating > b.Rating }
	case SortNewest:
		// ISO dates compare correctly as strings.
		less = func(a, b Product) bool { return a.Published > b.Published }
	case SortDiscount:
		less = func(a, b Product) bool { return a.Discount > b.Discount }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
