package catalog

// DefaultPerPage is the listing page size of the storefront.
const DefaultPerPage = 8

// Page is one page of a product listing.
type Page struct {
	Items      []Product
	Number     int
	PerPage    int
	Total      int
	TotalPages int
}

// Paginate slices products into pages of perPage items. page is 1-based and
// clamped into range.
func Paginate(products []Product, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(products)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return Page{
		Items:      append([]Product(nil), products[start:end]...),
		Number:     page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Query is the listing page request: every set field narrows the result.
type Query struct {
	Category    Category
	Subcategory string
	Search      string
	Bucket      PriceBucket
	Sort        SortKey
	Page        int
	PerPage     int
}

// Query narrows by search, category, subcategory and price bucket, then sorts and pages.
func (s *Store) Query(q Query) Page {
	products := s.Search(q.Search)
	if q.Category != "" || q.Subcategory != "" {
		kept := products[:0]
		for _, p := range products {
			if q.Category != "" && p.Category != q.Category {
				continue
			}
			if q.Subcategory != "" && p.Subcategory != q.Subcategory {
				continue
			}
			kept = append(kept, p)
		}
		products = kept
	}
	products = FilterByPriceBucket(products, q.Bucket)
	products = Sort(products, q.Sort)
	return Paginate(products, q.Page, q.PerPage)
}
