package web

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"KataSweetShop/internal/catalog"
)

type shopData struct {
	PageData
	Sweets     []catalog.Sweet
	Categories []catalog.Category

	Query    string
	Category string
	MinPrice string
	MaxPrice string
}

func (s *Server) shopPage(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	q := r.URL.Query()

	f := catalog.Filter{
		Query:    strings.TrimSpace(q.Get("query")),
		Category: catalog.Category(q.Get("category")),
	}
	f.MinPriceCents = parsePriceCents(q.Get("min_price"))
	f.MaxPriceCents = parsePriceCents(q.Get("max_price"))

	sweets, err := s.API.SearchSweets(r.Context(), token, f)
	if err != nil {
		s.Log.Error("search sweets failed", zap.Error(err))
	}

	data := shopData{
		PageData:   s.page(w, r, "Shop"),
		Sweets:     sweets,
		Categories: catalog.Categories,
		Query:      f.Query,
		Category:   string(f.Category),
		MinPrice:   q.Get("min_price"),
		MaxPrice:   q.Get("max_price"),
	}
	if err != nil {
		data.Error = "could not load the catalog"
	}

	s.Templates.Render(w, "shop.html", data)
}

// parsePriceCents converts a decimal rupee amount from a form field into
// cents. Blank or malformed input imposes no bound.
func parsePriceCents(v string) *int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil
	}
	cents := int64(math.Round(f * 100))
	return &cents
}
