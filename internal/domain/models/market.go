package models

import "time"

// Quote is a live trade tick from the market-data stream.
type Quote struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}
