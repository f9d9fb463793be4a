package model

import (
	"encoding/json"
	"math"
	"time"
)

// PriceFact is one extracted data point from a scrape run.
//
// OrderID is the 1-based position of the fact within its batch and resets
// every run. Figure is the parsed numeric value; source text that does not
// parse as a number is stored as NaN rather than rejecting the record.
// Quote is shared verbatim by every fact of a batch.
type PriceFact struct {
	ID          int64     `json:"id"`
	OrderID     int       `json:"order_id"`
	Figure      float64   `json:"figure"`
	Description string    `json:"description"`
	Quote       string    `json:"quote"`
	CreatedAt   time.Time `json:"created_at"`
}

// MarshalJSON renders a NaN figure as null; encoding/json has no
// representation for NaN and would otherwise fail the whole response.
func (f PriceFact) MarshalJSON() ([]byte, error) {
	type alias PriceFact
	out := struct {
		alias
		Figure *float64 `json:"figure"`
	}{alias: alias(f)}
	if !math.IsNaN(f.Figure) {
		v := f.Figure
		out.Figure = &v
	}
	return json.Marshal(out)
}
