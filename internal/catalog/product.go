package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ProductID identifies a product. Persisted collections written by older
// clients carry ids as numbers or as numeric strings; both decode to the
// same ProductID.
type ProductID int

// ErrInvalidProductID reports a value that cannot be read as a product id.
var ErrInvalidProductID = errors.New("invalid product id")

// ParseProductID normalizes an id given as any integer type, an integral
// float, a json.Number or a numeric string. It is the only place ids are coerced.
func ParseProductID(v any) (ProductID, error) {
	var n int64
	switch x := v.(type) {
	case ProductID:
		n = int64(x)
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidProductID, x)
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidProductID, x)
		}
		n = int64(x)
	case json.Number:
		return ParseProductID(x.String())
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidProductID, x)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidProductID, v)
	}
	if n <= 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidProductID, n)
	}
	return ProductID(n), nil
}

// MustParseProductID is ParseProductID for trusted literals.
func MustParseProductID(v any) ProductID {
	id, err := ParseProductID(v)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ProductID) String() string {
	return strconv.Itoa(int(id))
}

// UnmarshalJSON accepts 3 as well as "3".
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseProductID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProductID, data)
	}
	parsed, err := ParseProductID(n)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Category is the top-level shelf a book belongs to.
type Category string

const (
	CategoryVietnamese Category = "vietnamese"
	CategoryForeign    Category = "foreign"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryVietnamese || c == CategoryForeign
}

const dateLayout = "2006-01-02"

// Product is a book in the catalog. Products are loaded once and never
// modified; callers must not mutate the Images or Tags slices.
type Product struct {
	ID            ProductID `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Author        string    `json:"author" yaml:"author"`
	Publisher     string    `json:"publisher" yaml:"publisher"`
	Category      Category  `json:"category" yaml:"category"`
	Subcategory   string    `json:"subcategory" yaml:"subcategory"`
	Price         int64     `json:"price" yaml:"price"`
	OriginalPrice int64     `json:"originalPrice" yaml:"original_price"`
	Discount      int       `json:"discount" yaml:"discount"`
	Stock         int       `json:"stock" yaml:"stock"`
	Rating        float64   `json:"rating" yaml:"rating"`
	ReviewCount   int       `json:"reviewCount" yaml:"review_count"`
	Images        []string  `json:"images" yaml:"images"`
	Tags          []string  `json:"tags" yaml:"tags"`
	Featured      bool      `json:"featured" yaml:"featured"`
	NewRelease    bool      `json:"newRelease" yaml:"new_release"`
	Description   string    `json:"description" yaml:"description"`
	Published     string    `json:"published" yaml:"published"`
}

// PublishedAt parses Published; the zero time is returned for an empty date.
func (p Product) PublishedAt() time.Time {
	t, _ := time.Parse(dateLayout, p.Published)
	return t
}

// Cover returns the first image, used as the thumbnail.
func (p Product) Cover() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// InStock reports whether at least one copy is available. Stock is advisory.
func (p Product) InStock() bool {
	return p.Stock > 0
}

func (p Product) validate() error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("product %q: id must be positive", p.Title)
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("product %d: title is required", p.ID)
	case !p.Category.Valid():
		return fmt.Errorf("product %d: unknown category %q", p.ID, p.Category)
	case p.Price < 0 || p.OriginalPrice < 0:
		return fmt.Errorf("product %d: negative price", p.ID)
	case p.Discount < 0 || p.Discount > 100:
		return fmt.Errorf("product %d: discount %d out of range", p.ID, p.Discount)
	case p.Stock < 0:
		return fmt.Errorf("product %d: negative stock", p.ID)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("product %d: rating %.1f out of range", p.ID, p.Rating)
	case p.ReviewCount < 0:
		return fmt.Errorf("product %d: negative review count", p.ID)
	case len(p.Images) == 0:
		return fmt.Errorf("product %d: at least one image is required", p.ID)
	}
	if p.Published != "" {
		if _, err := time.Parse(dateLayout, p.Published); err != nil {
			return fmt.Errorf("product %d: published date: %w", p.ID, err)
		}
	}
	return nil
}

func (p Product) clone() Product {
	p.Images = append([]string(nil), p.Images...)
	p.Tags = append([]string(nil), p.Tags...)
	return p
}
