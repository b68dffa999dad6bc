// Package catalog holds the fixed book table of the store and answers the
// read-only queries the storefront pages need.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// ErrProductNotFound is returned when an id does not resolve to a product.
var ErrProductNotFound = errors.New("product not found")

// DefaultRelatedLimit is the number of related books shown on a product page.
const DefaultRelatedLimit = 4

//go:embed books.yaml
var defaultTable []byte

// Store answers queries over an immutable product table. It is safe for
// concurrent use.
type Store struct {
	products []Product
	byID     map[ProductID]int
}

type table struct {
	Products []Product `yaml:"products"`
}

// New validates products and builds a store keeping their order.
func New(products []Product) (*Store, error) {
	s := &Store{
		products: make([]Product, 0, len(products)),
		byID:     make(map[ProductID]int, len(products)),
	}
	for _, p := range products {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p.clone())
	}
	return s, nil
}

// Parse reads a YAML product table.
func Parse(data []byte) (*Store, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(t.Products)
}

// LoadFile reads a YAML product table from path.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the built-in book table.
func Default() *Store {
	s, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of products.
func (s *Store) Len() int {
	return len(s.products)
}

// All returns every product in catalog order.
func (s *Store) All() []Product {
	return append([]Product(nil), s.products...)
}

// Get returns the product with the given id.
func (s *Store) Get(id ProductID) (Product, error) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return s.products[i], nil
}

// Lookup normalizes raw with ParseProductID and returns the product.
func (s *Store) Lookup(raw any) (Product, error) {
	id, err := ParseProductID(raw)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrProductNotFound, err)
	}
	return s.Get(id)
}

// Has reports whether id resolves.
func (s *Store) Has(id ProductID) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Store) filter(keep func(Product) bool) []Product {
	out := make([]Product, 0)
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// ListByCategory returns the products of category c.
func (s *Store) ListByCategory(c Category) []Product {
	return s.filter(func(p Product) bool { return p.Category == c })
}

// ListBySubcategory returns the products of subcategory sub within c.
func (s *Store) ListBySubcategory(c Category, sub string) []Product {
	return s.filter(func(p Product) bool { return p.Category == c && p.Subcategory == sub })
}

// ListFeatured returns the products flagged as featured.
func (s *Store) ListFeatured() []Product {
	return s.filter(func(p Product) bool { return p.Featured })
}

// ListNewReleases returns the products flagged as new releases.
func (s *Store) ListNewReleases() []Product {
	return s.filter(func(p Product) bool { return p.NewRelease })
}

// Search matches q case-insensitively as a substring of the title, the
// author, any tag or the description. A blank query returns everything.
func (s *Store) Search(q string) []Product {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.All()
	}
	fold := cases.Fold()
	needle := fold.String(q)
	contains := func(field string) bool {
		return strings.Contains(fold.String(field), needle)
	}
	return s.filter(func(p Product) bool {
		if contains(p.Title) || contains(p.Author) || contains(p.Description) {
			return true
		}
		for _, tag := range p.Tags {
			if contains(tag) {
				return true
			}
		}
		return false
	})
}

// ListRelated returns up to limit other products of the same category, in
// catalog order. limit <= 0 means DefaultRelatedLimit.
func (s *Store) ListRelated(id ProductID, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, limit)
	for _, other := range s.products {
		if len(out) == limit {
			break
		}
		if other.ID != p.ID && other.Category == p.Category {
			out = append(out, other)
		}
	}
	return out, nil
}

// Shelf counts the products of one subcategory.
type Shelf struct {
	Category    Category
	Subcategory string
	Count       int
}

// Shelves lists subcategories in order of first appearance.
func (s *Store) Shelves() []Shelf {
	var out []Shelf
	index := make(map[string]int)
	for _, p := range s.products {
		key := string(p.Category) + "/" + p.Subcategory
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, Shelf{Category: p.Category, Subcategory: p.Subcategory, Count: 1})
	}
	return out
}
