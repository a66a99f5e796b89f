package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"pricecompare/internal/series"
)

// ErrNotFound is returned when a product id is not in the catalog.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry with one price series per platform.
type Product struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Rating    float64                 `json:"rating"`
	Reviews   int                     `json:"reviews"`
	Category  string                  `json:"category"`
	Badge     string                  `json:"badge,omitempty"`
	Discount  int                     `json:"discount,omitempty"`
	Platforms []series.PlatformSeries `json:"platforms"`
}

// LowestPrice is the smallest current price across the product's platforms,
// or 0 when it has none.
func (p Product) LowestPrice() float64 {
	if len(p.Platforms) == 0 {
		return 0
	}
	low := math.Inf(1)
	for _, pl := range p.Platforms {
		low = math.Min(low, pl.CurrentPrice)
	}
	return low
}

// Source supplies the catalog. Implementations return products the caller
// must treat as read-only.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
}

// Find returns the product with the given id.
func Find(products []Product, id string) (Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// AllCategories matches every category in Search.
const AllCategories = "All"

// Search filters by a case-insensitive title substring and an exact category.
// Empty query and "All" (or empty) category match everything.
func Search(products []Product, query, category string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) {
			continue
		}
		if category != "" && category != AllCategories && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// StaticSource serves a fixed product list.
type StaticSource []Product

func (s StaticSource) Products(context.Context) ([]Product, error) { return s, nil }

// FileSource reads a JSON array of products from Path on every call.
type FileSource struct {
	Path string
}

func (f FileSource) Products(ctx context.Context) ([]Product, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(b, &products); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, p := range products {
		for _, s := range p.Platforms {
			if err := series.Validate(s); err != nil {
				return nil, fmt.Errorf("catalog product %s: %w", p.ID, err)
			}
		}
	}
	return products, nil
}
