package events

import (
	"encoding/json"
	"fmt"
)

type StockListener interface {
	StockChanged(bookID int64)
}

// StockInvalidator tells l about every book touched by a movement event, so
// each instance drops its cached copy when another one moves stock.
func StockInvalidator(l StockListener) Handler {
	return func(env Envelope) error {
		var p struct {
			BookID int64 `json:"book_id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("%s %s: %w", env.Type, env.ID, err)
		}
		if p.BookID > 0 {
			l.StockChanged(p.BookID)
		}
		return nil
	}
}
