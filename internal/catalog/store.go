package catalog

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("sweet not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Filter narrows a catalog search. Zero values impose no constraint; all
// supplied predicates are ANDed. Price bounds are inclusive.
type Filter struct {
	Query         string
	Category      Category
	MinPriceCents *int64
	MaxPriceCents *int64
	Limit         int
}

// Patch names exactly the mutable fields of a Sweet. Identity, ownership and
// timestamps are not patchable.
type Patch struct {
	Name        *string
	Description *string
	Category    *Category
	PriceCents  *int64
	Quantity    *int64
	Image       *string
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.PriceCents == nil && p.Quantity == nil && p.Image == nil
}

type Store interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, s Sweet) error
	Get(ctx context.Context, id string) (Sweet, bool, error)
	Search(ctx context.Context, f Filter) ([]Sweet, error)
	Update(ctx context.Context, id string, p Patch) (Sweet, bool, error)
	Delete(ctx context.Context, id string) (bool, error)

	// Purchase decrements stock by qty iff at least qty units are available,
	// as a single conditional operation against the stored value. Returns
	// ErrInsufficientStock when the condition fails, ErrNotFound when the id
	// does not resolve.
	Purchase(ctx context.Context, id string, qty int64) (Sweet, error)

	// Restock increments stock by qty. No upper bound.
	Restock(ctx context.Context, id string, qty int64) (Sweet, error)
}
