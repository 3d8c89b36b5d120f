package web

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"KataSweetShop/internal/cart"
	"KataSweetShop/internal/catalog"
)

type cartData struct {
	PageData
	Lines []cart.Item
	Quote cart.Quote
}

func (s *Server) cartPage(w http.ResponseWriter, r *http.Request) {
	c, err := s.openCart(w, r)
	if err != nil {
		s.Log.Error("open cart failed", zap.Error(err))
		http.Error(w, "cart unavailable", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "cart.html", cartData{
		PageData: s.page(w, r, "Your cart"),
		Lines:    c.Items(),
		Quote:    c.Quote(),
	})
}

func (s *Server) cartAdd(w http.ResponseWriter, r *http.Request) {
	id := r.PostFormValue("sweet_id")
	qty := formQty(r, 1)

	// Snapshot the sweet so the clamp works against current stock.
	sw, err := s.API.GetSweet(r.Context(), sessionToken(r), id)
	if err != nil {
		s.Log.Warn("get sweet for cart failed", zap.Error(err), zap.String("id", id))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	c, err := s.openCart(w, r)
	if err == nil {
		err = c.Add(sw, qty)
	}
	if err != nil {
		s.Log.Error("cart add failed", zap.Error(err))
	}

	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) cartUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PostFormValue("sweet_id")
	qty := formQty(r, 0)

	c, err := s.openCart(w, r)
	if err == nil {
		err = c.UpdateQuantity(id, qty)
	}
	if err != nil {
		s.Log.Error("cart update failed", zap.Error(err))
	}

	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) cartRemove(w http.ResponseWriter, r *http.Request) {
	c, err := s.openCart(w, r)
	if err == nil {
		err = c.Remove(r.PostFormValue("sweet_id"))
	}
	if err != nil {
		s.Log.Error("cart remove failed", zap.Error(err))
	}

	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) cartClear(w http.ResponseWriter, r *http.Request) {
	c, err := s.openCart(w, r)
	if err == nil {
		err = c.Clear()
	}
	if err != nil {
		s.Log.Error("cart clear failed", zap.Error(err))
	}

	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// receiptLine is one checkout outcome: either a confirmed purchase or a
// line left in the cart with its failure reason.
type receiptLine struct {
	Item   cart.Item
	OK     bool
	Reason string
}

type receiptData struct {
	PageData
	Lines     []receiptLine
	AnyFailed bool
	Quote     cart.Quote
}

// checkout routes every cart line through the API's atomic purchase
// operation. Lines that fail (stock depleted, sweet removed) stay in the
// cart; the receipt totals cover only the lines that went through.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)

	c, err := s.openCart(w, r)
	if err != nil {
		s.Log.Error("open cart failed", zap.Error(err))
		http.Error(w, "cart unavailable", http.StatusInternalServerError)
		return
	}

	var (
		lines     []receiptLine
		purchased []cart.Item
		anyFailed bool
	)

	for _, it := range c.Items() {
		_, err := s.API.Purchase(r.Context(), token, it.Sweet.ID, it.Quantity)
		switch {
		case err == nil:
			lines = append(lines, receiptLine{Item: it, OK: true})
			purchased = append(purchased, it)
			if err := c.Remove(it.Sweet.ID); err != nil {
				s.Log.Error("remove purchased line failed", zap.Error(err))
			}
		case errors.Is(err, catalog.ErrInsufficientStock):
			lines = append(lines, receiptLine{Item: it, Reason: "not enough stock left"})
			anyFailed = true
		case errors.Is(err, catalog.ErrNotFound):
			lines = append(lines, receiptLine{Item: it, Reason: "no longer available"})
			anyFailed = true
		default:
			s.Log.Error("purchase failed", zap.Error(err), zap.String("id", it.Sweet.ID))
			lines = append(lines, receiptLine{Item: it, Reason: "purchase failed, try again"})
			anyFailed = true
		}
	}

	s.Templates.Render(w, "receipt.html", receiptData{
		PageData:  s.page(w, r, "Receipt"),
		Lines:     lines,
		AnyFailed: anyFailed,
		Quote:     cart.QuoteItems(purchased),
	})
}

func formQty(r *http.Request, def int64) int64 {
	v := r.PostFormValue("quantity")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
