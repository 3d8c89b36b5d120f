package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"KataSweetShop/internal/auth"
	"KataSweetShop/internal/events"
	"KataSweetShop/pkg/kit"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

type Server struct {
	Store  Store
	Log    *zap.Logger
	JWT    *auth.TokenMaker
	Events events.Publisher
}

// Routes gates the catalog: reads require any authenticated caller,
// create/update/delete/restock require admin, purchase any authenticated role.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireAuth(s.JWT))

	r.Get("/", s.list)
	r.Get("/search", s.search)
	r.Get("/{id}", s.get)
	r.Post("/{id}/purchase", s.purchase)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireAdmin)
		ar.Post("/", s.create)
		ar.Put("/{id}", s.update)
		ar.Delete("/{id}", s.delete)
		ar.Post("/{id}/restock", s.restock)
	})

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	sweets, err := s.Store.Search(r.Context(), Filter{})
	if err != nil {
		s.Log.Error("list sweets failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteData(w, http.StatusOK, sweets)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	f, errs := parseFilter(r)
	if len(errs) > 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid search parameters", errs)
		return
	}

	s.Log.Debug("catalog search",
		zap.String("query", f.Query),
		zap.String("category", string(f.Category)),
		zap.Int64p("min_price_cents", f.MinPriceCents),
		zap.Int64p("max_price_cents", f.MaxPriceCents),
		zap.Int("limit", f.Limit),
	)

	sweets, err := s.Store.Search(r.Context(), f)
	if err != nil {
		s.Log.Error("search sweets failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteData(w, http.StatusOK, sweets)
}

func parseFilter(r *http.Request) (Filter, map[string]string) {
	q := r.URL.Query()
	errs := map[string]string{}

	f := Filter{Query: q.Get("query")}

	if c := q.Get("category"); c != "" {
		cat := Category(c)
		if !cat.Valid() {
			errs["category"] = "unknown category"
		}
		f.Category = cat
	}

	parseCents := func(key string) *int64 {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			errs[key] = "must be a non-negative integer"
			return nil
		}
		return &n
	}

	f.MinPriceCents = parseCents("min_price_cents")
	f.MaxPriceCents = parseCents("max_price_cents")

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs["limit"] = "must be a non-negative integer"
		} else {
			f.Limit = n
		}
	}

	if len(errs) > 0 {
		return Filter{}, errs
	}
	return f, nil
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sw, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("get sweet failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "sweet not found", map[string]any{"id": id})
		return
	}
	kit.WriteData(w, http.StatusOK, sw)
}

type createSweetReq struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=chocolate candy gummy lollipop other"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	Quantity    int64  `json:"quantity" validate:"gte=0"`
	Image       string `json:"image"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req createSweetReq
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validationDetail(validate.Struct(req)); errs != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", errs)
		return
	}

	caller, _ := auth.CallerFromContext(r.Context())

	now := time.Now().UTC()
	sw := Sweet{
		ID:          "s_" + uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Category:    Category(req.Category),
		PriceCents:  req.PriceCents,
		Quantity:    req.Quantity,
		Image:       req.Image,
		CreatedBy:   caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sw.Image == "" {
		sw.Image = DefaultImage
	}

	if err := s.Store.Create(r.Context(), sw); err != nil {
		s.Log.Error("create sweet failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteData(w, http.StatusCreated, sw)
}

type updateSweetReq struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	Category    *string `json:"category" validate:"omitempty,oneof=chocolate candy gummy lollipop other"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,gte=0"`
	Quantity    *int64  `json:"quantity" validate:"omitempty,gte=0"`
	Image       *string `json:"image"`
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateSweetReq
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validationDetail(validate.Struct(req)); errs != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", errs)
		return
	}

	p := Patch{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Quantity:    req.Quantity,
		Image:       req.Image,
	}
	if req.Category != nil {
		c := Category(*req.Category)
		p.Category = &c
	}

	sw, ok, err := s.Store.Update(r.Context(), id, p)
	if err != nil {
		s.Log.Error("update sweet failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "sweet not found", map[string]any{"id": id})
		return
	}
	kit.WriteData(w, http.StatusOK, sw)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.Log.Error("delete sweet failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "sweet not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, kit.Envelope{Success: true, Message: "sweet removed"})
}

type quantityReq struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	s.mutateStock(w, r, s.Store.Purchase, events.TypePurchased)
}

func (s *Server) restock(w http.ResponseWriter, r *http.Request) {
	s.mutateStock(w, r, s.Store.Restock, events.TypeRestocked)
}

func (s *Server) mutateStock(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id string, qty int64) (Sweet, error),
	eventType string,
) {
	id := chi.URLParam(r, "id")

	var req quantityReq
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validationDetail(validate.Struct(req)); errs != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", errs)
		return
	}

	sw, err := op(r.Context(), id, req.Quantity)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "sweet not found", map[string]any{"id": id})
		return
	case errors.Is(err, ErrInsufficientStock):
		kit.WriteError(w, r, http.StatusBadRequest, "insufficient quantity available", map[string]any{
			"id": id, "requested": req.Quantity,
		})
		return
	case errors.Is(err, ErrInvalidQuantity):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	default:
		s.Log.Error("stock mutation failed", zap.Error(err), zap.String("id", id), zap.String("op", eventType))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.publishInventory(r, eventType, sw, req.Quantity)
	kit.WriteData(w, http.StatusOK, sw)
}

// publishInventory is best effort; a broker failure never fails the request.
func (s *Server) publishInventory(r *http.Request, eventType string, sw Sweet, qty int64) {
	if s.Events == nil {
		return
	}

	caller, _ := auth.CallerFromContext(r.Context())
	ev := events.InventoryEvent{
		Type:      eventType,
		SweetID:   sw.ID,
		Quantity:  qty,
		Remaining: sw.Quantity,
		ActorID:   caller.ID,
		At:        time.Now().UTC(),
	}
	if err := s.Events.PublishInventory(ev); err != nil {
		s.Log.Warn("publish inventory event failed", zap.Error(err), zap.String("type", eventType))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": "extra data after json object"})
		return false
	}
	return true
}

// validationDetail flattens validator errors into field -> constraint pairs.
func validationDetail(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
