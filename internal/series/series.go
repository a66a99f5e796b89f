package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-day format of PricePoint.Date.
const DateLayout = "2006-01-02"

// Platform identifies an e-commerce platform.
type Platform string

const (
	Amazon   Platform = "amazon"
	Flipkart Platform = "flipkart"
	Meesho   Platform = "meesho"
)

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{Amazon, Flipkart, Meesho}

// ParsePlatform maps a name to a supported platform, ignoring case.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// ParseVisible reads a comma-separated platform list into a visibility set
// for Visible. An empty list yields nil, meaning every platform is shown.
func ParseVisible(raw string) (map[Platform]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	show := make(map[Platform]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, ok := ParsePlatform(part)
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", strings.TrimSpace(part))
		}
		show[p] = true
	}
	return show, nil
}

// PricePoint is one day's price on one platform.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// PlatformSeries is one platform's price history for a product, ascending by
// date. It is read-only: every operation here derives new values from it.
type PlatformSeries struct {
	Platform     Platform     `json:"platform"`
	CurrentPrice float64      `json:"currentPrice"`
	SourceURL    string       `json:"url"`
	Points       []PricePoint `json:"history"`
}

// MergedRow is one date's prices across platforms. Prices only holds the
// platforms that have a point on Date.
type MergedRow struct {
	Date   string
	Prices map[Platform]float64
}

// MarshalJSON renders the row flat: {"date": ..., "<platform>": price, ...},
// platforms in name order.
func (r MergedRow) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r.Prices))
	for p := range r.Prices {
		keys = append(keys, string(p))
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"date":`)
	d, err := json.Marshal(r.Date)
	if err != nil {
		return nil, err
	}
	buf.Write(d)
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(r.Prices[Platform(k)], 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the flat form produced by MarshalJSON.
func (r *MergedRow) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	raw, ok := m["date"]
	if !ok {
		return fmt.Errorf("merged row: missing date")
	}
	if err := json.Unmarshal(raw, &r.Date); err != nil {
		return fmt.Errorf("merged row date: %w", err)
	}
	delete(m, "date")
	r.Prices = make(map[Platform]float64, len(m))
	for k, v := range m {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("merged row %s: %w", k, err)
		}
		r.Prices[Platform(k)] = f
	}
	return nil
}

// Merge aligns series by date. A row is created the first time its date is
// seen and rows are returned in that first-insertion order; they are not
// re-sorted. A platform contributing the same date twice keeps its last value.
func Merge(in []PlatformSeries) []MergedRow {
	index := make(map[string]int)
	out := make([]MergedRow, 0)
	for _, s := range in {
		for _, pt := range s.Points {
			i, ok := index[pt.Date]
			if !ok {
				i = len(out)
				index[pt.Date] = i
				out = append(out, MergedRow{Date: pt.Date, Prices: make(map[Platform]float64, len(in))})
			}
			out[i].Prices[s.Platform] = pt.Price
		}
	}
	return out
}

// Clamp returns the last windowDays elements of s, or s itself when the
// window covers it. A non-positive window selects nothing.
func Clamp[T any](s []T, windowDays int) []T {
	if windowDays >= len(s) {
		return s
	}
	if windowDays <= 0 {
		return s[len(s):]
	}
	return s[len(s)-windowDays:]
}

// ClampSeries windows every series' points. Inputs are not modified.
func ClampSeries(in []PlatformSeries, windowDays int) []PlatformSeries {
	out := make([]PlatformSeries, len(in))
	for i, s := range in {
		s.Points = Clamp(s.Points, windowDays)
		out[i] = s
	}
	return out
}

// Compare is the chart table for a product: each series windowed, then merged.
func Compare(in []PlatformSeries, windowDays int) []MergedRow {
	return Merge(ClampSeries(in, windowDays))
}

// Visible drops the prices of hidden platforms from rows. Rows are copied;
// a row with no visible platform keeps only its date.
func Visible(rows []MergedRow, show map[Platform]bool) []MergedRow {
	out := make([]MergedRow, len(rows))
	for i, r := range rows {
		prices := make(map[Platform]float64, len(r.Prices))
		for p, v := range r.Prices {
			if show[p] {
				prices[p] = v
			}
		}
		out[i] = MergedRow{Date: r.Date, Prices: prices}
	}
	return out
}

// Validate checks the PlatformSeries invariants: known platform, ISO dates,
// non-negative prices, strictly ascending unique dates.
func Validate(s PlatformSeries) error {
	if _, ok := ParsePlatform(string(s.Platform)); !ok {
		return fmt.Errorf("unknown platform %q", s.Platform)
	}
	if s.CurrentPrice < 0 {
		return fmt.Errorf("%s: negative current price %v", s.Platform, s.CurrentPrice)
	}
	var prev time.Time
	for i, pt := range s.Points {
		d, err := time.Parse(DateLayout, pt.Date)
		if err != nil {
			return fmt.Errorf("%s point %d: bad date %q", s.Platform, i, pt.Date)
		}
		if pt.Price < 0 {
			return fmt.Errorf("%s %s: negative price %v", s.Platform, pt.Date, pt.Price)
		}
		if i > 0 && !d.After(prev) {
			return fmt.Errorf("%s %s: dates not strictly ascending", s.Platform, pt.Date)
		}
		prev = d
	}
	return nil
}
