package web

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", PageData{Title: "Sign in"})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	res, err := s.API.Login(r.Context(), email, password)
	if err != nil {
		msg := "login failed"
		if errors.Is(err, ErrUnauthorized) {
			msg = "invalid email or password"
		} else {
			s.Log.Warn("login failed", zap.Error(err))
		}
		s.Templates.Render(w, "login.html", PageData{Title: "Sign in", Error: msg})
		return
	}

	setSessionToken(w, res.AccessToken)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "register.html", PageData{Title: "Create account"})
}

func (s *Server) registerSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if err := s.API.Register(r.Context(), username, email, password); err != nil {
		s.Log.Warn("register failed", zap.Error(err))
		s.Templates.Render(w, "register.html", PageData{Title: "Create account", Error: err.Error()})
		return
	}

	// Log the fresh account straight in.
	res, err := s.API.Login(r.Context(), email, password)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	setSessionToken(w, res.AccessToken)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "profile.html", s.page(w, r, "Your profile"))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	clearSessionToken(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
