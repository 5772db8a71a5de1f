package receipt

import (
	"strconv"
	"strings"
	"time"
)

// Placeholder defaults for fields the model could not recover. These are a
// compatibility decision carried over from the existing product behavior:
// the stored record looks like real data. Do not invent different values.
const (
	DefaultMerchantName = "John Doe"
	DefaultTotalAmount  = 100
)

// dateFormats are tried in order when the model's purchaseDate is not a
// plain ISO date.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// Normalize turns a sanitized payload into an ExtractedReceipt. It is total:
// for any structurally valid object (even an empty one) it returns a fully
// populated result and never fails. Confidence is carried from the
// recognition stage, not from the model output.
func Normalize(parsed map[string]any, confidence float32) ExtractedReceipt {
	return ExtractedReceipt{
		MerchantName: normalizeMerchant(parsed["merchantName"]),
		TotalAmount:  normalizeAmount(parsed["totalAmount"]),
		PurchaseDate: normalizeDate(parsed["purchaseDate"]),
		Items:        normalizeItems(parsed["items"]),
		Confidence:   confidence,
		IsScanned:    true,
	}
}

func normalizeMerchant(v any) string {
	if s, ok := v.(string); ok {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return DefaultMerchantName
}

// normalizeAmount coerces the model's totalAmount to a number. Strings are
// parsed; anything unparseable or falsy falls back to the default rather
// than failing.
func normalizeAmount(v any) float64 {
	switch t := v.(type) {
	case float64:
		if t != 0 {
			return t
		}
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
		if f, err := strconv.ParseFloat(s, 64); err == nil && f != 0 {
			return f
		}
	}
	return DefaultTotalAmount
}

func normalizeDate(v any) time.Time {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range dateFormats {
			if d, err := time.Parse(layout, s); err == nil {
				return d.UTC()
			}
		}
	}
	return time.Now().UTC()
}

func normalizeItems(v any) []Item {
	raw, ok := v.([]any)
	if !ok {
		return []Item{}
	}
	items := make([]Item, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, Item{
			Name:     asString(m["name"]),
			Quantity: asInt(m["quantity"]),
			Price:    asFloat(m["price"]),
		})
	}
	return items
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return 0
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
