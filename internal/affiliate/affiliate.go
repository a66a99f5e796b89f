package affiliate

import (
	"strings"

	"pricecompare/internal/series"
)

// Tags are the affiliate identifiers per platform. Meesho links are never
// rewritten; its tag is kept for configuration completeness.
type Tags struct {
	Amazon   string `yaml:"amazon_tag" json:"amazon_tag"`
	Flipkart string `yaml:"flipkart_tag" json:"flipkart_tag"`
	Meesho   string `yaml:"meesho_tag" json:"meesho_tag"`
}

// BuildURL appends the platform's affiliate parameter to rawURL, using "&"
// when rawURL already has a query string and "?" otherwise.
func (t Tags) BuildURL(p series.Platform, rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	switch p {
	case series.Amazon:
		return appendParam(rawURL, "tag", t.Amazon)
	case series.Flipkart:
		return appendParam(rawURL, "affid", t.Flipkart)
	default:
		return rawURL
	}
}

func appendParam(rawURL, key, value string) string {
	if value == "" {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + key + "=" + value
}
