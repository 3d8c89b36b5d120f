package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *MemStore {
	t.Helper()

	s := NewMemStore()
	now := time.Now().UTC()
	seeds := []Sweet{
		{ID: "s_1", Name: "Chocolate Bar", Description: "plain milk chocolate", Category: CategoryChocolate, PriceCents: 1000, Quantity: 10},
		{ID: "s_2", Name: "Gummy Bears", Description: "fruit flavored", Category: CategoryGummy, PriceCents: 1500, Quantity: 5},
		{ID: "s_3", Name: "Choco Lollipop", Description: "chocolate on a stick", Category: CategoryLollipop, PriceCents: 2000, Quantity: 0},
		{ID: "s_4", Name: "Peppermint Drops", Description: "hard candy", Category: CategoryCandy, PriceCents: 2500, Quantity: 7},
	}
	for _, sw := range seeds {
		sw.Image = DefaultImage
		sw.CreatedAt = now
		sw.UpdatedAt = now
		require.NoError(t, s.Create(context.Background(), sw))
	}
	return s
}

func ids(sweets []Sweet) []string {
	out := make([]string, 0, len(sweets))
	for _, sw := range sweets {
		out = append(out, sw.ID)
	}
	return out
}

func TestMemStore_Search(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	t.Run("empty filter returns everything ordered by id", func(t *testing.T) {
		got, err := s.Search(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_1", "s_2", "s_3", "s_4"}, ids(got))
	})

	t.Run("name substring is case insensitive", func(t *testing.T) {
		got, err := s.Search(ctx, Filter{Query: "cho"})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_1", "s_3"}, ids(got))
	})

	t.Run("category matches exactly", func(t *testing.T) {
		got, err := s.Search(ctx, Filter{Category: CategoryGummy})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_2"}, ids(got))
	})

	t.Run("price bounds are inclusive", func(t *testing.T) {
		min, max := int64(1000), int64(2000)
		got, err := s.Search(ctx, Filter{MinPriceCents: &min, MaxPriceCents: &max})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_1", "s_2", "s_3"}, ids(got))

		min = 1001
		got, err = s.Search(ctx, Filter{MinPriceCents: &min, MaxPriceCents: &max})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_2", "s_3"}, ids(got))
	})

	t.Run("predicates combine with AND", func(t *testing.T) {
		max := int64(1200)
		got, err := s.Search(ctx, Filter{Query: "cho", MaxPriceCents: &max})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_1"}, ids(got))
	})

	t.Run("no match yields empty slice not error", func(t *testing.T) {
		got, err := s.Search(ctx, Filter{Query: "nougat"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		got, err := s.Search(ctx, Filter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"s_1", "s_2"}, ids(got))
	})
}

func TestMemStore_Update(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	name := "Dark Chocolate Bar"
	price := int64(1250)
	sw, ok, err := s.Update(ctx, "s_1", Patch{Name: &name, PriceCents: &price})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Dark Chocolate Bar", sw.Name)
	assert.Equal(t, int64(1250), sw.PriceCents)
	assert.Equal(t, "plain milk chocolate", sw.Description)

	_, ok, err = s.Update(ctx, "s_missing", Patch{Name: &name})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemStore_PurchaseAndRestock(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	sw, err := s.Purchase(ctx, "s_1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sw.Quantity)

	_, err = s.Purchase(ctx, "s_1", 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// the failed purchase must not have touched stock
	got, ok, err := s.Get(ctx, "s_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Quantity)

	sw, err = s.Restock(ctx, "s_1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(8), sw.Quantity)

	_, err = s.Purchase(ctx, "s_3", 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = s.Purchase(ctx, "s_missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Purchase(ctx, "s_1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.Restock(ctx, "s_1", -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMemStore_ConcurrentPurchases(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, Sweet{ID: "s_hot", Name: "Hot Item", Category: CategoryCandy, PriceCents: 100, Quantity: 50}))

	const buyers = 100

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Purchase(ctx, "s_hot", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var sold int64
	for err := range results {
		if err == nil {
			sold++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	assert.Equal(t, int64(50), sold)

	got, ok, err := s.Get(ctx, "s_hot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), got.Quantity)
}

func TestMemStore_Delete(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	ok, err := s.Delete(ctx, "s_2")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := s.Get(ctx, "s_2")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = s.Delete(ctx, "s_2")
	require.NoError(t, err)
	assert.False(t, ok)
}
