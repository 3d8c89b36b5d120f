package web

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"KataSweetShop/pkg/kit"
	webembed "KataSweetShop/web"
)

// Server holds the storefront's dependencies: the API client, the local cart
// database and the parsed templates.
type Server struct {
	Log       *zap.Logger
	API       *APIClient
	DB        *sql.DB
	Templates *Templates
}

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(s.Log))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	r.Get("/login", s.loginPage)
	r.Post("/login", s.loginSubmit)
	r.Get("/register", s.registerPage)
	r.Post("/register", s.registerSubmit)
	r.Post("/logout", s.logout)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireSession)

		pr.Get("/", s.shopPage)
		pr.Get("/profile", s.profilePage)

		pr.Get("/cart", s.cartPage)
		pr.Post("/cart/add", s.cartAdd)
		pr.Post("/cart/update", s.cartUpdate)
		pr.Post("/cart/remove", s.cartRemove)
		pr.Post("/cart/clear", s.cartClear)
		pr.Post("/checkout", s.checkout)

		pr.Get("/admin", s.adminPage)
		pr.Post("/admin/sweets", s.adminCreate)
		pr.Post("/admin/sweets/{id}", s.adminUpdate)
		pr.Post("/admin/sweets/{id}/delete", s.adminDelete)
		pr.Post("/admin/sweets/{id}/restock", s.adminRestock)
	})

	return r
}

type webCtxKey string

const webUserKey webCtxKey = "web_user"

func webUser(ctx context.Context) *APIUser {
	u, _ := ctx.Value(webUserKey).(*APIUser)
	return u
}

// requireSession resolves the bearer token cookie against the API and
// redirects anonymous browsers to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		u, err := s.API.WhoAmI(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				clearSessionToken(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			s.Log.Error("whoami failed", zap.Error(err))
			http.Error(w, "storefront unavailable", http.StatusBadGateway)
			return
		}

		ctx := context.WithValue(r.Context(), webUserKey, &u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	pd := PageData{Title: title, User: webUser(r.Context())}
	if c, err := s.openCart(w, r); err == nil {
		pd.CartItems = c.TotalItems()
	}
	return pd
}
