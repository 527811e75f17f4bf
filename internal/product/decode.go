package product

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// decodePayload decodes the opaque data member. Numbers are kept as
// json.Number so prices never pass through float64.
func decodePayload(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errPayloadMissing
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errEnvelopeMalformed
	}
	return v, nil
}

func snapshotFromPayload(data any) (*Snapshot, error) {
	fields, ok := data.(map[string]any)
	if !ok {
		return nil, errPayloadNotObject
	}

	s := &Snapshot{}
	if id, ok := integerField(fields["id"]); ok {
		s.ID = id
	}
	if name, ok := fields["name"].(string); ok {
		s.Name = name
	}
	if price, ok := decimalField(fields["price"]); ok {
		s.Price = decimal.NewNullDecimal(price)
	}
	if stock, ok := integerField(fields["stockQuantity"]); ok && stock >= math.MinInt32 && stock <= math.MaxInt32 {
		q := int(stock)
		s.StockQuantity = &q
	}
	s.Active = boolField(fields["active"])

	return s, nil
}

// integerField accepts integral numbers (5 and 5.0) and their string forms.
func integerField(v any) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		return parseInteger(val.String())
	case float64:
		if val != math.Trunc(val) || val >= math.MaxInt64 || val < math.MinInt64 {
			return 0, false
		}
		return int64(val), true
	case int:
		return int64(val), true
	case int64:
		return val, true
	case string:
		return parseInteger(strings.TrimSpace(val))
	default:
		return 0, false
	}
}

func parseInteger(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, false
	}
	return d.IntPart(), true
}

func decimalField(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(val), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// boolField treats anything other than true or a case-insensitive "true" as false.
func boolField(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	default:
		return false
	}
}
