// Package risk scores a candidate opportunity across five independent
// dimensions — event definition, timing, liquidity, edge thinness, and
// regulatory exposure — and maps the aggregate score to a risk tier and
// size multiplier.
package risk

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// loadedTokens are phrases whose presence on one side of a paired
// question but not the other signals a possible definition mismatch.
var loadedTokens = []string{
	"primary", "general", "runoff", "plurality", "majority",
	"at least", "more than", "by end of", "before",
}

var politicalTokens = []string{"election", "vote", "campaign", "political"}

const (
	minLiquidityRatio = 0.1

	scoreLoadedToken    = 0.25
	scoreLowSimilarity  = 0.30
	scorePrimaryGeneral = 0.50
	similarityFloor     = 0.90

	scoreDifferingDates = 0.15
	scoreEarlyResolution = 0.05

	scoreLiquidityViolation = 0.20

	scoreEdgeVeryThin = 0.30
	scoreEdgeThin     = 0.15
	edgeVeryThin      = 0.005
	edgeThin          = 0.01

	scoreRegulatoryBase = 0.10
	scorePolitical      = 0.05
)

// Analyzer implements ports.RiskAnalyzer.
type Analyzer struct{}

// New builds a risk Analyzer. It holds no configuration: every threshold
// in the scoring model is fixed by the specification, not tunable per
// deployment.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze scores paired against the five risk dimensions and returns the
// aggregate assessment.
func (a *Analyzer) Analyze(paired domain.PairedEvent, grossEdge float64, positionSize float64) domain.RiskAssessment {
	var warnings []domain.RiskWarning
	score := 0.0

	score += a.definitionRisk(paired, &warnings)
	score += a.timingRisk(paired, &warnings)
	score += a.liquidityRisk(paired, positionSize, &warnings)
	score += a.edgeRisk(grossEdge, &warnings)
	score += a.regulatoryRisk(paired, &warnings)

	tier, multiplier := tierFor(score)

	return domain.RiskAssessment{
		Tier:           tier,
		Score:          score,
		Warnings:       warnings,
		SizeMultiplier: multiplier,
	}
}

func tierFor(score float64) (domain.RiskTier, float64) {
	switch {
	case score >= 0.7:
		return domain.RiskCritical, 0.1
	case score >= 0.5:
		return domain.RiskHigh, 0.3
	case score >= 0.3:
		return domain.RiskMedium, 0.7
	default:
		return domain.RiskLow, 1.0
	}
}

func (a *Analyzer) definitionRisk(paired domain.PairedEvent, warnings *[]domain.RiskWarning) float64 {
	score := 0.0
	qa := strings.ToLower(paired.ListingA.Question)
	qb := strings.ToLower(paired.ListingB.Question)

	for _, token := range loadedTokens {
		hasA := strings.Contains(qa, token)
		hasB := strings.Contains(qb, token)
		if hasA != hasB {
			score += scoreLoadedToken
			*warnings = append(*warnings, domain.RiskWarning{
				Dimension: "definition",
				Severity:  "high",
				Message:   fmt.Sprintf("keyword mismatch: %q appears on only one side", token),
			})
		}
	}

	if paired.Similarity < similarityFloor {
		score += scoreLowSimilarity
		*warnings = append(*warnings, domain.RiskWarning{
			Dimension: "definition",
			Severity:  "high",
			Message:   fmt.Sprintf("markets may not be equivalent (similarity %.2f)", paired.Similarity),
		})
	}

	da := strings.ToLower(paired.ListingA.Description)
	db := strings.ToLower(paired.ListingB.Description)
	if da != "" && db != "" && strings.Contains(da, "primary") && strings.Contains(db, "general") {
		score += scorePrimaryGeneral
		*warnings = append(*warnings, domain.RiskWarning{
			Dimension: "definition",
			Severity:  "critical",
			Message:   "markets appear to cover different elections (primary vs general)",
		})
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (a *Analyzer) timingRisk(paired domain.PairedEvent, warnings *[]domain.RiskWarning) float64 {
	score := 0.0

	ta, tb := paired.ListingA.ResolutionTime, paired.ListingB.ResolutionTime
	if ta != nil && tb != nil && !ta.Equal(*tb) {
		score += scoreDifferingDates
		*warnings = append(*warnings, domain.RiskWarning{
			Dimension: "timing",
			Severity:  "medium",
			Message:   "resolution timing may differ between venues",
		})
	}

	qa := strings.ToLower(paired.ListingA.Question)
	if strings.Contains(qa, "by end of") || strings.Contains(qa, "before") {
		score += scoreEarlyResolution
	}

	return score
}

func (a *Analyzer) liquidityRisk(paired domain.PairedEvent, positionSize float64, warnings *[]domain.RiskWarning) float64 {
	score := 0.0

	if paired.ListingA.RestingLiquidity > 0 {
		ratio := positionSize / paired.ListingA.RestingLiquidity
		if ratio > minLiquidityRatio {
			score += scoreLiquidityViolation
			*warnings = append(*warnings, domain.RiskWarning{
				Dimension: "liquidity",
				Severity:  "high",
				Message:   fmt.Sprintf("venue A position is %.1f%% of resting liquidity", ratio*100),
			})
		}
	}
	if paired.ListingB.RestingLiquidity > 0 {
		ratio := positionSize / paired.ListingB.RestingLiquidity
		if ratio > minLiquidityRatio {
			score += scoreLiquidityViolation
			*warnings = append(*warnings, domain.RiskWarning{
				Dimension: "liquidity",
				Severity:  "high",
				Message:   fmt.Sprintf("venue B position is %.1f%% of resting liquidity", ratio*100),
			})
		}
	}

	return score
}

func (a *Analyzer) edgeRisk(grossEdge float64, warnings *[]domain.RiskWarning) float64 {
	switch {
	case grossEdge < edgeVeryThin:
		*warnings = append(*warnings, domain.RiskWarning{
			Dimension: "edge",
			Severity:  "high",
			Message:   fmt.Sprintf("very thin edge (%.2f%%), vulnerable to price movement", grossEdge*100),
		})
		return scoreEdgeVeryThin
	case grossEdge < edgeThin:
		*warnings = append(*warnings, domain.RiskWarning{
			Dimension: "edge",
			Severity:  "medium",
			Message:   fmt.Sprintf("thin edge (%.2f%%), limited margin for error", grossEdge*100),
		})
		return scoreEdgeThin
	default:
		return 0
	}
}

func (a *Analyzer) regulatoryRisk(paired domain.PairedEvent, warnings *[]domain.RiskWarning) float64 {
	score := scoreRegulatoryBase
	*warnings = append(*warnings, domain.RiskWarning{
		Dimension: "regulatory",
		Severity:  "medium",
		Message:   "ensure compliance with venue B's geographic restrictions",
	})

	qb := strings.ToLower(paired.ListingB.Question)
	for _, token := range politicalTokens {
		if strings.Contains(qb, token) {
			score += scorePolitical
			*warnings = append(*warnings, domain.RiskWarning{
				Dimension: "regulatory",
				Severity:  "medium",
				Message:   "political prediction markets carry additional regulatory scrutiny",
			})
			break
		}
	}

	return score
}
