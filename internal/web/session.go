package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"KataSweetShop/internal/cart"
)

const (
	tokenCookie = "sweetshop_token"
	cartCookie  = "sweetshop_cart"

	cookieTTL = 30 * 24 * time.Hour
)

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(tokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// cartID returns the browser's cart key, issuing a fresh one on first visit.
func cartID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := "c_" + uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(cookieTTL),
	})
	return id
}

// openCart hydrates the browser's cart from the local database.
func (s *Server) openCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, error) {
	return cart.New(cart.NewSQLiteStorage(s.DB, cartID(w, r)))
}
