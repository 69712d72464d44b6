// Package matcher pairs listings from two distinct venues that describe
// the same real-world event, by normalized-text similarity, keyword
// overlap, and resolution-date proximity. It holds no state between
// calls.
package matcher

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

var stopWords = map[string]bool{
	"will": true, "the": true, "be": true, "by": true, "on": true,
	"in": true, "at": true, "to": true, "a": true, "an": true,
	"is": true, "are": true, "was": true, "were": true, "have": true,
	"has": true, "had": true, "for": true, "of": true,
}

// Matcher implements ports.EventMatcher.
type Matcher struct {
	SimilarityThreshold float64
	DateToleranceDays    int
}

// New builds a Matcher with the given threshold and date tolerance. A
// zero threshold defaults to 0.85; a zero tolerance defaults to 1 day.
func New(similarityThreshold float64, dateToleranceDays int) *Matcher {
	if similarityThreshold <= 0 {
		similarityThreshold = 0.85
	}
	if dateToleranceDays <= 0 {
		dateToleranceDays = 1
	}
	return &Matcher{
		SimilarityThreshold: similarityThreshold,
		DateToleranceDays:    dateToleranceDays,
	}
}

// normalizeText lower-cases, collapses whitespace, strips punctuation
// except '?', and removes the stop-word set.
func normalizeText(text string) string {
	text = strings.ToLower(text)

	var b strings.Builder
	for _, r := range text {
		if r == '?' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())

	kept := fields[:0]
	for _, w := range fields {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// extractKeywords returns normalized tokens longer than 2 characters,
// already stop-word-free since normalizeText strips them.
func extractKeywords(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(normalizeText(text)) {
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}

func keywordOverlap(a, b string) float64 {
	ka, kb := extractKeywords(a), extractKeywords(b)
	if len(ka) == 0 || len(kb) == 0 {
		return 0
	}
	intersection := 0
	for k := range ka {
		if kb[k] {
			intersection++
		}
	}
	union := len(ka) + len(kb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// calculateSimilarity combines 0.7 of the Ratcliff/Obershelp sequence
// ratio with 0.3 of keyword Jaccard overlap.
func calculateSimilarity(a, b string) float64 {
	na, nb := normalizeText(a), normalizeText(b)
	textSim := sequenceRatio(na, nb)
	kwSim := keywordOverlap(a, b)
	return 0.7*textSim + 0.3*kwSim
}

// datesMatch treats an unparseable (nil) date on either side as a
// non-blocking match, per the lenient-fallback rule.
func datesMatch(a, b *time.Time, toleranceDays int) bool {
	if a == nil || b == nil {
		return true
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceDays)*24*time.Hour
}

// IsMatch reports whether two listings refer to the same event, and the
// combined similarity score that drove the decision.
func (m *Matcher) IsMatch(a, b domain.Listing) (bool, float64) {
	if a.Question == "" || b.Question == "" {
		return false, 0
	}
	similarity := calculateSimilarity(a.Question, b.Question)
	ok := similarity >= m.SimilarityThreshold && datesMatch(a.ResolutionTime, b.ResolutionTime, m.DateToleranceDays)
	return ok, similarity
}

// FindMatches greedily pairs each listing in listingsA with its
// best-scoring listing in listingsB above threshold. Ties are broken by
// lexical ordering of native_id so pairing is deterministic under a
// stable input order.
func (m *Matcher) FindMatches(listingsA, listingsB []domain.Listing) []domain.PairedEvent {
	var paired []domain.PairedEvent

	for _, la := range listingsA {
		var best *domain.Listing
		bestScore := 0.0

		for i := range listingsB {
			lb := listingsB[i]
			ok, score := m.IsMatch(la, lb)
			if !ok {
				continue
			}
			if score > bestScore || (score == bestScore && best != nil && lb.NativeID < best.NativeID) {
				b := lb
				best = &b
				bestScore = score
			}
		}

		if best != nil {
			paired = append(paired, domain.PairedEvent{
				ListingA:   la,
				ListingB:   *best,
				Similarity: bestScore,
			})
		}
	}

	sort.SliceStable(paired, func(i, j int) bool {
		return paired[i].ListingA.NativeID < paired[j].ListingA.NativeID
	})
	return paired
}

