package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"KataSweetShop/internal/catalog"
)

type adminData struct {
	PageData
	Sweets     []catalog.Sweet
	Categories []catalog.Category
}

func (s *Server) adminPage(w http.ResponseWriter, r *http.Request) {
	u := webUser(r.Context())
	if u == nil || u.Role != "admin" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	sweets, err := s.API.ListSweets(r.Context(), sessionToken(r))
	if err != nil {
		s.Log.Error("list sweets failed", zap.Error(err))
	}

	data := adminData{
		PageData:   s.page(w, r, "Dashboard"),
		Sweets:     sweets,
		Categories: catalog.Categories,
	}
	if err != nil {
		data.Error = "could not load the catalog"
	}
	if msg := r.URL.Query().Get("err"); msg != "" {
		data.Error = msg
	}

	s.Templates.Render(w, "admin.html", data)
}

func (s *Server) adminCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := sweetInputFromForm(r)
	if !ok {
		s.redirectAdmin(w, r, "invalid form values")
		return
	}

	if _, err := s.API.CreateSweet(r.Context(), sessionToken(r), in); err != nil {
		s.Log.Warn("create sweet failed", zap.Error(err))
		s.redirectAdmin(w, r, err.Error())
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) adminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	in, ok := sweetInputFromForm(r)
	if !ok {
		s.redirectAdmin(w, r, "invalid form values")
		return
	}

	if _, err := s.API.UpdateSweet(r.Context(), sessionToken(r), id, in); err != nil {
		s.Log.Warn("update sweet failed", zap.Error(err), zap.String("id", id))
		s.redirectAdmin(w, r, err.Error())
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) adminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.API.DeleteSweet(r.Context(), sessionToken(r), id); err != nil {
		s.Log.Warn("delete sweet failed", zap.Error(err), zap.String("id", id))
		s.redirectAdmin(w, r, err.Error())
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) adminRestock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	qty := formQty(r, 0)

	if _, err := s.API.Restock(r.Context(), sessionToken(r), id, qty); err != nil {
		s.Log.Warn("restock failed", zap.Error(err), zap.String("id", id))
		s.redirectAdmin(w, r, err.Error())
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) redirectAdmin(w http.ResponseWriter, r *http.Request, errMsg string) {
	target := "/admin"
	if errMsg != "" {
		target += "?err=" + url.QueryEscape(errMsg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func sweetInputFromForm(r *http.Request) (SweetInput, bool) {
	if err := r.ParseForm(); err != nil {
		return SweetInput{}, false
	}

	price := parsePriceCents(r.PostFormValue("price"))
	qty, err := strconv.ParseInt(r.PostFormValue("quantity"), 10, 64)
	if price == nil || err != nil || qty < 0 {
		return SweetInput{}, false
	}

	return SweetInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
		PriceCents:  *price,
		Quantity:    qty,
		Image:       r.PostFormValue("image"),
	}, true
}
