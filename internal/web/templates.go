package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	webembed "KataSweetShop/web"
)

// Templates holds parsed page templates, each combined with the layout.
type Templates struct {
	log       *zap.Logger
	templates map[string]*template.Template
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"money": func(cents int64) string {
			return fmt.Sprintf("₹%d.%02d", cents/100, cents%100)
		},
		"mulcents": func(cents, qty int64) int64 {
			return cents * qty
		},
		// rupees renders cents as a bare decimal for form prefills.
		"rupees": func(cents int64) string {
			return fmt.Sprintf("%d.%02d", cents/100, cents%100)
		},
	}
}

func LoadTemplates(log *zap.Logger) (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"shop.html",
		"login.html",
		"register.html",
		"cart.html",
		"receipt.html",
		"admin.html",
		"profile.html",
	}

	ts := &Templates{log: log, templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		if tmpl, err = tmpl.Parse(string(layoutBytes)); err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		if tmpl, err = tmpl.Parse(string(pageBytes)); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil && ts.log != nil {
		ts.log.Error("render template failed", zap.String("template", name), zap.Error(err))
	}
}

// PageData is the base data passed to every template.
type PageData struct {
	Title     string
	User      *APIUser
	CartItems int64
	Error     string
	Notice    string
}
