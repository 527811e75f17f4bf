package product

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time copy of a catalog product. Fields the catalog
// omitted or sent with an unusable type stay unset.
type Snapshot struct {
	ID            int64
	Name          string
	Price         decimal.NullDecimal
	StockQuantity *int
	Active        bool
}

// PriceScale is the number of decimal places order amounts are stored with.
const PriceScale = 4

// HasPrice reports whether the snapshot carries a usable unit price: present,
// not negative and with no more than PriceScale decimal places.
func (s *Snapshot) HasPrice() bool {
	if s == nil || !s.Price.Valid || s.Price.Decimal.IsNegative() {
		return false
	}
	return s.Price.Decimal.Round(PriceScale).Equal(s.Price.Decimal)
}

// Envelope is the catalog's generic response wrapper. Data is kept raw and
// decoded field by field.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}
