package domain

import "strconv"

// OrderBook is the raw bid/ask ladder for one token on one venue. The
// core only ever reads the best price off of it — depth-walking beyond
// best-of-book is out of scope.
type OrderBook struct {
	NativeID string
	Bids     []BookEntry // sorted highest price first
	Asks     []BookEntry // sorted lowest price first
}

// BookEntry is one price level in an order book.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid returns the highest resting bid, or 0 if the book is empty.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest resting ask, or 0 if the book is empty.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint is the average of best bid and best ask; 0 if either side is
// empty.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// RestingLiquidity sums the USD value of every level on both sides of the
// book.
func (ob OrderBook) RestingLiquidity() float64 {
	var total float64
	for _, b := range ob.Bids {
		total += b.Size * b.Price
	}
	for _, a := range ob.Asks {
		total += a.Size * a.Price
	}
	return total
}

// ParsePrice converts a venue wire-format price string to float64,
// returning 0 on malformed input.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
