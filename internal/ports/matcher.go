package ports

import "github.com/alejandrodnm/orion-arb/internal/domain"

// EventMatcher pairs listings from two distinct venues that refer to the
// same real-world event (§4.2). It is pure — it holds no state between
// calls.
type EventMatcher interface {
	FindMatches(listingsA, listingsB []domain.Listing) []domain.PairedEvent
}
