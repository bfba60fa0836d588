package evaluation

import (
	"math"
	"strconv"
	"strings"

	"study-assistant-be/pkg/workflow"
)

// MarkStep is the finest mark a score can be expressed in.
const MarkStep = 0.01

// band is one step of the similarity to awarded-fraction function.
type band struct {
	floor   float64
	percent int
}

// bands are checked top down; each floor is inclusive.
var bands = []band{
	{floor: 0.85, percent: 100},
	{floor: 0.70, percent: 70},
	{floor: 0.50, percent: 40},
}

// AwardedPercent maps a similarity in [0,1] to 100, 70, 40 or 0.
func AwardedPercent(similarity float64) int {
	for _, b := range bands {
		if similarity >= b.floor {
			return b.percent
		}
	}
	return 0
}

// AwardedFraction is AwardedPercent as a fraction.
func AwardedFraction(similarity float64) float64 {
	return float64(AwardedPercent(similarity)) / 100
}

// Granularity returns the number of decimals used by maxScore, capped at two.
// 10 -> 0, 7.5 -> 1, 2.25 -> 2.
func Granularity(maxScore float64) int {
	s := strconv.FormatFloat(maxScore, 'f', -1, 64)
	_, frac, ok := strings.Cut(s, ".")
	if !ok {
		return 0
	}
	if len(frac) > 2 {
		return 2
	}
	return len(frac)
}

// ValidateMaxScore accepts positive max scores that are whole multiples of
// MarkStep, so every awarded fraction stays representable after rounding.
func ValidateMaxScore(maxScore float64) error {
	if math.IsNaN(maxScore) || math.IsInf(maxScore, 0) || maxScore <= 0 {
		return workflow.Validationf("max score must be greater than zero")
	}
	hundredths := maxScore / MarkStep
	if math.Abs(hundredths-math.Round(hundredths)) > 1e-6 {
		return workflow.Validationf("max score %v must use at most two decimal places", maxScore)
	}
	return nil
}

// Award converts a similarity into marks rounded to the granularity of maxScore and
// never above it.
func Award(similarity, maxScore float64) float64 {
	factor := math.Pow10(Granularity(maxScore))
	score := math.Round(AwardedFraction(similarity)*maxScore*factor) / factor
	if score > maxScore {
		return maxScore
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
