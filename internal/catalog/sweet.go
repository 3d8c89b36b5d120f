package catalog

import "time"

// Category is the closed set of sweet categories. The storefront offers the
// same list, so there is a single canonical enumeration across both surfaces.
type Category string

const (
	CategoryChocolate Category = "chocolate"
	CategoryCandy     Category = "candy"
	CategoryGummy     Category = "gummy"
	CategoryLollipop  Category = "lollipop"
	CategoryOther     Category = "other"
)

var Categories = []Category{
	CategoryChocolate,
	CategoryCandy,
	CategoryGummy,
	CategoryLollipop,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

const DefaultImage = "default-sweet.jpg"

// Sweet is a sellable item. ID and CreatedBy are server-assigned and never
// change after creation; prices are carried as integer cents.
type Sweet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Quantity    int64     `json:"quantity"`
	Image       string    `json:"image"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
