package prediction

import (
	"fmt"
	"strings"
)

var (
	fallbackFactors = []string{
		"Ecosystem maturation increases annual sequestration",
		"Continued community-led planting and maintenance",
		"Improved monitoring coverage supports additional verification",
		"Historical growth of comparable restoration projects",
	}
	fallbackRisks = []string{
		"Extreme weather events and storm surge damage",
		"Changes in land use or encroachment",
		"Delays in third-party verification",
		"Carbon market price volatility",
	}
)

// growthTier returns the multiplier applied to the current quantity to
// obtain the additional credits. Larger projects grow proportionally less.
func growthTier(quantity float64) float64 {
	switch {
	case quantity > 3000:
		return 0.8
	case quantity > 1000:
		return 1.2
	default:
		return 1.5
	}
}

// confidence scores by project name. Checks are ordered and the first match
// wins; only the Sundarbans check ignores case.
func confidence(projectName string) int {
	switch {
	case strings.Contains(strings.ToLower(projectName), "sundarbans"):
		return 87
	case strings.Contains(projectName, "Demo"):
		return 82
	case strings.Contains(projectName, "Mangrove"):
		return 85
	default:
		return 78
	}
}

// Fallback computes a prediction without any remote call. It never fails.
func Fallback(in Input) Prediction {
	additional := in.Quantity * growthTier(in.Quantity)
	total := in.Quantity + additional

	return Prediction{
		ProjectID:           in.ProjectID,
		CurrentCredits:      in.Quantity,
		PredictedAdditional: additional,
		PredictedTotal:      total,
		HorizonYears:        HorizonYears,
		Confidence:          confidence(in.ProjectName),
		Factors:             append([]string(nil), fallbackFactors...),
		Risks:               append([]string(nil), fallbackRisks...),
		Reasoning:           fallbackReasoning(in, total),
		Source:              SourceFallback,
	}
}

func fallbackReasoning(in Input, total float64) string {
	methodology := in.Methodology
	if methodology == "" {
		methodology = "nature-based"
	}
	// The ratio is undefined for an empty batch, so the phrase is left out.
	if in.Quantity == 0 {
		return fmt.Sprintf(
			"Based on historical performance of %s projects, additional credits are expected over the next %d years as the ecosystem matures.",
			methodology, HorizonYears)
	}
	return fmt.Sprintf(
		"Based on historical performance of %s projects, total credits are expected to grow %.1fx over the next %d years as the ecosystem matures.",
		methodology, total/in.Quantity, HorizonYears)
}
