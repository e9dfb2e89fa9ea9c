package medicine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Types offered by the catalog.
var Types = []string{"tablet", "capsule", "syrup", "injection", "cream", "drops", "powder"}

const DefaultType = "tablet"

type Medicine struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description *string         `json:"description,omitempty"`
	Dosages     []string        `json:"dosages"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

func (m *Medicine) IsAvailable() bool {
	return m.Stock > 0
}

func (m *Medicine) IsDeleted() bool {
	return m.DeletedAt != nil
}

// SearchResult is a catalog row as shown in the prescribing form.
type SearchResult struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description *string         `json:"description,omitempty"`
	Dosages     []string        `json:"dosages"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsAvailable bool            `json:"is_available"`
}

func (m *Medicine) ToSearchResult() SearchResult {
	return SearchResult{
		ID:          m.ID,
		Name:        m.Name,
		Type:        m.Type,
		Description: m.Description,
		Dosages:     m.Dosages,
		Price:       m.Price,
		Stock:       m.Stock,
		IsAvailable: m.IsAvailable(),
	}
}

// Input is the body for both create and update. Price is checked by the
// service since validator tags do not apply to decimal.Decimal.
type Input struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Type        string          `json:"type" validate:"omitempty,oneof=tablet capsule syrup injection cream drops powder"`
	Description *string         `json:"description" validate:"omitempty,max=65535"`
	Dosages     []string        `json:"dosages" validate:"required,min=1,dive,required,max=100"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// Trashed selects how soft-deleted rows are treated by List.
type Trashed string

const (
	TrashedWithout Trashed = ""
	TrashedWith    Trashed = "with"
	TrashedOnly    Trashed = "only"
)

// ListFilter narrows the admin catalog listing.
type ListFilter struct {
	Search     string
	Type       string
	LowStock   bool
	OutOfStock bool
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	Trashed    Trashed
}

// LowStockListThreshold is the "low stock" catalog filter cut-off (stock <= 10).
const LowStockListThreshold = 10
