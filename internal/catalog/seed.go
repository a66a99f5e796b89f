package catalog

import (
	"math"
	"time"

	"pricecompare/internal/series"
)

// prng is a deterministic sine-based generator returning values in [0, 1).
func prng(seed float64) func() float64 {
	x := math.Sin(seed) * 10000
	return func() float64 {
		x = math.Sin(x) * 10000
		return x - math.Floor(x)
	}
}

// History generates `days` daily points ending on now's UTC date. Each price
// is base plus a random drift of up to volatility*base/2 and a slow seasonal
// wave, rounded and floored at 200.
func History(now time.Time, days int, base, volatility float64, seed float64) []series.PricePoint {
	if days <= 0 {
		return []series.PricePoint{}
	}
	rand := prng(seed)
	today := now.UTC()
	out := make([]series.PricePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		drift := (rand() - 0.5) * volatility * base
		seasonal := math.Sin(float64(i)/5) * 0.02 * base
		price := math.Max(200, math.Floor(base+drift+seasonal+0.5))
		out = append(out, series.PricePoint{Date: d.Format(series.DateLayout), Price: price})
	}
	return out
}

type seedSeries struct {
	platform   series.Platform
	current    float64
	url        string
	base       float64
	volatility float64
	seed       float64
}

type seedProduct struct {
	id, title, category, badge string
	rating                     float64
	reviews, discount          int
	platforms                  []seedSeries
}

var seedProducts = []seedProduct{
	{
		id: "p1", title: "Wireless Headphones", category: "Electronics", badge: "50% OFF",
		rating: 4.5, reviews: 12345, discount: 30,
		platforms: []seedSeries{
			{series.Amazon, 4599, "https://www.amazon.in/dp/example-headphones", 5600, 0.08, 1},
			{series.Flipkart, 4699, "https://www.flipkart.com/item/example-headphones", 5400, 0.07, 2},
			{series.Meesho, 4499, "https://www.meesho.com/item/example-headphones", 5200, 0.09, 3},
		},
	},
	{
		id: "p2", title: "Smart Watch", category: "Wearables",
		rating: 4.2, reviews: 8400, discount: 20,
		platforms: []seedSeries{
			{series.Amazon, 3999, "https://www.amazon.in/dp/example-smartwatch", 4800, 0.06, 4},
			{series.Flipkart, 4199, "https://www.flipkart.com/item/example-smartwatch", 4700, 0.05, 5},
			{series.Meesho, 3899, "https://www.meesho.com/item/example-smartwatch", 4600, 0.07, 6},
		},
	},
	{
		id: "p3", title: "Wireless Controller", category: "Gaming",
		rating: 4.6, reviews: 5600,
		platforms: []seedSeries{
			{series.Amazon, 2599, "https://www.amazon.in/dp/example-controller", 3000, 0.08, 7},
			{series.Flipkart, 2699, "https://www.flipkart.com/item/example-controller", 2900, 0.06, 8},
			{series.Meesho, 2499, "https://www.meesho.com/item/example-controller", 2800, 0.07, 9},
		},
	},
}

// Seed builds the demo catalog with `days` of history per platform.
func Seed(now time.Time, days int) []Product {
	out := make([]Product, 0, len(seedProducts))
	for _, sp := range seedProducts {
		p := Product{
			ID:       sp.id,
			Title:    sp.title,
			Rating:   sp.rating,
			Reviews:  sp.reviews,
			Category: sp.category,
			Badge:    sp.badge,
			Discount: sp.discount,
		}
		for _, ss := range sp.platforms {
			p.Platforms = append(p.Platforms, series.PlatformSeries{
				Platform:     ss.platform,
				CurrentPrice: ss.current,
				SourceURL:    ss.url,
				Points:       History(now, days, ss.base, ss.volatility, ss.seed),
			})
		}
		out = append(out, p)
	}
	return out
}
