package api

import (
	"time"

	"daytrader/pkg/types"
)

// PriceEvent is the wire frame pushed over the /ws price stream.
type PriceEvent struct {
	Type      string             `json:"type"` // always "prices"
	Timestamp time.Time          `json:"timestamp"`
	Data      []types.PriceQuote `json:"data"`
}

// NewPriceEvent wraps a best-price snapshot for broadcast.
func NewPriceEvent(quotes []types.PriceQuote) PriceEvent {
	if quotes == nil {
		quotes = []types.PriceQuote{}
	}
	return PriceEvent{
		Type:      "prices",
		Timestamp: time.Now().UTC(),
		Data:      quotes,
	}
}
