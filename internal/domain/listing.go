package domain

import "time"

// Listing is what one venue reports for one market. Listings from the
// same venue are uniquely identified by (Venue, NativeID). A Listing is
// immutable for the snapshot it was fetched in.
type Listing struct {
	Venue            Venue
	NativeID         string
	Question         string
	Description      string
	ResolutionTime   *time.Time
	Status           ListingStatus
	VolumeToDate     float64
	RestingLiquidity float64
	Raw              map[string]any
}

func (l Listing) IsOpen() bool {
	return l.Status == StatusOpen
}

// Quote is the best YES and best NO price for one listing at one instant.
// At most one Quote is "live" per listing per scan tick.
type Quote struct {
	NativeID  string
	BestYes   *float64 // nil if no resting ask
	BestNo    *float64
	FetchedAt time.Time
}

// PairedEvent is the Event Matcher's output: two listings from distinct
// venues believed to resolve on the same real-world event.
type PairedEvent struct {
	ListingA   Listing
	ListingB   Listing
	Similarity float64
}
