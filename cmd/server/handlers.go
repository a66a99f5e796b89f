package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pricecompare/internal/affiliate"
	"pricecompare/internal/catalog"
	"pricecompare/internal/logger"
	"pricecompare/internal/lookup"
	"pricecompare/internal/series"
)

// lookupSettings is the provider configuration in effect for one request.
type lookupSettings struct {
	Provider string
	APIKey   string
}

type server struct {
	router   *lookup.Router
	settings func() lookupSettings
	catalog  catalog.Source
	tags     affiliate.Tags
	log      *logger.Entry
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/price", s.handlePrice)
	mux.HandleFunc("GET /api/products", s.handleProducts)
	mux.HandleFunc("GET /api/products/{id}/compare", s.handleCompare)
	return mux
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		writeJSON(w, http.StatusBadRequest, lookup.Failure(lookup.MsgMissingURL))
		return
	}
	cfg := s.settings()
	res, err := s.router.Lookup(r.Context(), cfg.Provider, cfg.APIKey, target)
	status, env := lookup.Respond(res, err)
	if err != nil {
		s.log.WithFields(logger.Fields{
			"provider":   cfg.Provider,
			"status":     status,
			"request_id": requestID(r.Context()),
		}).WithError(err).Warn("price lookup failed")
	}
	writeJSON(w, status, env)
}

type platformCard struct {
	Platform     series.Platform `json:"platform"`
	CurrentPrice float64         `json:"currentPrice"`
	URL          string          `json:"url"`
	AffiliateURL string          `json:"affiliateUrl"`
	Visible      bool            `json:"visible"`
}

type productSummary struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Rating      float64        `json:"rating"`
	Reviews     int            `json:"reviews"`
	Category    string         `json:"category"`
	Badge       string         `json:"badge,omitempty"`
	Discount    int            `json:"discount,omitempty"`
	LowestPrice float64        `json:"lowestPrice"`
	Platforms   []platformCard `json:"platforms"`
}

type productsResponse struct {
	Products []productSummary `json:"products"`
}

type compareResponse struct {
	Product productSummary     `json:"product"`
	Window  series.Window      `json:"window"`
	Rows    []series.MergedRow `json:"rows"`
}

func (s *server) summarize(p catalog.Product, show map[series.Platform]bool) productSummary {
	out := productSummary{
		ID:          p.ID,
		Title:       p.Title,
		Rating:      p.Rating,
		Reviews:     p.Reviews,
		Category:    p.Category,
		Badge:       p.Badge,
		Discount:    p.Discount,
		LowestPrice: p.LowestPrice(),
		Platforms:   make([]platformCard, 0, len(p.Platforms)),
	}
	for _, ps := range p.Platforms {
		out.Platforms = append(out.Platforms, platformCard{
			Platform:     ps.Platform,
			CurrentPrice: ps.CurrentPrice,
			URL:          ps.SourceURL,
			AffiliateURL: s.tags.BuildURL(ps.Platform, ps.SourceURL),
			Visible:      show == nil || show[ps.Platform],
		})
	}
	return out
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.Products(r.Context())
	if err != nil {
		s.log.WithError(err).Error("catalog unavailable")
		writeJSON(w, http.StatusInternalServerError, lookup.Failure("catalog unavailable"))
		return
	}
	q := r.URL.Query()
	matched := catalog.Search(products, q.Get("q"), q.Get("category"))
	resp := productsResponse{Products: make([]productSummary, 0, len(matched))}
	for _, p := range matched {
		resp.Products = append(resp.Products, s.summarize(p, nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := series.ParseWindow(q.Get("range"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, lookup.Failure(err.Error()))
		return
	}
	show, err := series.ParseVisible(q.Get("platforms"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, lookup.Failure(err.Error()))
		return
	}

	products, err := s.catalog.Products(r.Context())
	if err != nil {
		s.log.WithError(err).Error("catalog unavailable")
		writeJSON(w, http.StatusInternalServerError, lookup.Failure("catalog unavailable"))
		return
	}
	p, err := catalog.Find(products, r.PathValue("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, lookup.Failure(err.Error()))
		return
	}

	rows := series.Compare(p.Platforms, days)
	if show != nil {
		rows = series.Visible(rows, show)
	}
	writeJSON(w, http.StatusOK, compareResponse{
		Product: s.summarize(p, show),
		Window:  windowFor(days),
		Rows:    rows,
	})
}

func windowFor(days int) series.Window {
	for _, w := range series.CanonicalWindows {
		if w.Days == days {
			return w
		}
	}
	return series.Window{Days: days, Label: fmt.Sprintf("%dd", days)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
