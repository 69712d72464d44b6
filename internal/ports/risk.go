package ports

import "github.com/alejandrodnm/orion-arb/internal/domain"

// RiskAnalyzer scores a candidate opportunity across independent risk
// dimensions and returns a tier plus a recommended size multiplier (§4.3).
type RiskAnalyzer interface {
	Analyze(paired domain.PairedEvent, grossEdge float64, positionSize float64) domain.RiskAssessment
}
