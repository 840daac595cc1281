// Package calculators implements deterministic, evidence-based calculators
// for women's reproductive health: ovarian reserve assessment, IVF success
// prediction and menopause timing. Reference data follows published ASRM and
// ESHRE criteria, SART national outcomes and the SWAN cohort factors.
package calculators

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ReserveCategory is an ASRM/ESHRE standardized ovarian reserve class.
type ReserveCategory string

const (
	ReserveVeryLow  ReserveCategory = "very_low"
	ReserveLow      ReserveCategory = "low"
	ReserveNormal   ReserveCategory = "normal"
	ReserveHigh     ReserveCategory = "high"
	ReserveVeryHigh ReserveCategory = "very_high"
)

// MenopauseStage is a STRAW+10 reproductive aging stage.
type MenopauseStage string

const (
	StageReproductive       MenopauseStage = "reproductive"
	StageEarlyTransition    MenopauseStage = "early_transition"
	StageLateTransition     MenopauseStage = "late_transition"
	StageEarlyPostmenopause MenopauseStage = "early_postmenopause"
	StageLatePostmenopause  MenopauseStage = "late_postmenopause"
)

// amhPercentiles holds AMH reference values (ng/mL) by age from large
// population studies. Keys within a bracket are the 5th, 25th, 50th, 75th and
// 95th percentiles.
type amhBracket struct {
	p5, p25, p50, p75, p95 float64
}

var amhPercentiles = map[int]amhBracket{
	25: {0.9, 2.3, 4.1, 6.8, 11.2},
	30: {0.7, 1.8, 3.2, 5.4, 9.1},
	35: {0.5, 1.2, 2.1, 3.6, 6.2},
	40: {0.3, 0.7, 1.2, 2.1, 3.8},
	45: {0.1, 0.3, 0.6, 1.0, 1.8},
}

// ivfSuccessRates are SART live-birth rates (%) by age bracket and cycle type.
var ivfSuccessRates = map[string]map[string]float64{
	"under_35": {"fresh": 45.2, "frozen": 48.6},
	"35_37":    {"fresh": 36.8, "frozen": 42.1},
	"38_40":    {"fresh": 25.1, "frozen": 34.2},
	"41_42":    {"fresh": 13.4, "frozen": 23.8},
	"43_44":    {"fresh": 5.8, "frozen": 16.2},
	"over_44":  {"fresh": 2.1, "frozen": 8.4},
}

// menopauseFactors are the SWAN study effects in years on menopause age.
var menopauseFactors = map[string]float64{
	"smoking":              -1.8,
	"bmi_over_30":          0.6,
	"early_menarche":       -0.4,
	"nulliparity":          -0.8,
	"family_history_early": -2.1,
	"chinese_ethnicity":    0.9,
	"japanese_ethnicity":   1.1,
}

func closestAMHBracket(age int) int {
	ages := make([]int, 0, len(amhPercentiles))
	for a := range amhPercentiles {
		ages = append(ages, a)
	}
	sort.Ints(ages)

	closest := ages[0]
	for _, a := range ages[1:] {
		if abs(a-age) < abs(closest-age) {
			closest = a
		}
	}
	return closest
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// amhPercentile estimates the age-adjusted AMH percentile by piecewise linear
// interpolation within the closest reference bracket.
func amhPercentile(age int, amh float64) int {
	ref := amhPercentiles[closestAMHBracket(age)]

	switch {
	case amh <= ref.p5:
		return 5
	case amh <= ref.p25:
		ratio := (amh - ref.p5) / (ref.p25 - ref.p5)
		return int(5 + ratio*20)
	case amh <= ref.p50:
		ratio := (amh - ref.p25) / (ref.p50 - ref.p25)
		return int(25 + ratio*25)
	case amh <= ref.p75:
		ratio := (amh - ref.p50) / (ref.p75 - ref.p50)
		return int(50 + ratio*25)
	case amh <= ref.p95:
		ratio := (amh - ref.p75) / (ref.p95 - ref.p75)
		return int(75 + ratio*20)
	default:
		return 95
	}
}

// OvarianReserveInput are the inputs for an ovarian reserve assessment. FSH
// (mIU/mL) and the antral follicle count are optional refinements.
type OvarianReserveInput struct {
	Age int
	AMH float64
	FSH *float64
	AFC *int
}

// OvarianReserveResult is a complete reserve assessment.
type OvarianReserveResult struct {
	Category        ReserveCategory `json:"category"`
	Percentile      int             `json:"percentile"`
	ConfidenceLow   int             `json:"confidence_low"`
	ConfidenceHigh  int             `json:"confidence_high"`
	Interpretation  string          `json:"interpretation"`
	Recommendations []string        `json:"recommendations"`
}

// AssessOvarianReserve classifies ovarian reserve from AMH, optionally
// refined by FSH and antral follicle count, using ASRM criteria.
func AssessOvarianReserve(in OvarianReserveInput) (*OvarianReserveResult, error) {
	if in.Age <= 0 {
		return nil, errors.New("calculators: age must be positive")
	}
	if in.AMH < 0 {
		return nil, errors.New("calculators: amh must not be negative")
	}

	percentile := amhPercentile(in.Age, in.AMH)
	category := classifyReserve(in.AMH, in.FSH, in.AFC)

	low := percentile - 10
	if low < 1 {
		low = 1
	}
	high := percentile + 10
	if high > 99 {
		high = 99
	}

	return &OvarianReserveResult{
		Category:        category,
		Percentile:      percentile,
		ConfidenceLow:   low,
		ConfidenceHigh:  high,
		Interpretation:  interpretReserve(category, in.Age, in.AMH, percentile),
		Recommendations: reserveRecommendations(category),
	}, nil
}

func classifyReserve(amh float64, fsh *float64, afc *int) ReserveCategory {
	var category ReserveCategory
	switch {
	case amh < 0.5:
		category = ReserveVeryLow
	case amh < 1.0:
		category = ReserveLow
	case amh < 4.0:
		category = ReserveNormal
	case amh < 8.0:
		category = ReserveHigh
	default:
		category = ReserveVeryHigh
	}

	if fsh != nil {
		switch {
		case *fsh > 15 && category != ReserveVeryLow:
			category = ReserveLow
		case *fsh > 20:
			category = ReserveVeryLow
		}
	}
	if afc != nil {
		switch {
		case *afc < 5 && category != ReserveVeryLow:
			category = ReserveLow
		case *afc < 3:
			category = ReserveVeryLow
		case *afc > 20:
			category = ReserveHigh
		}
	}
	return category
}

func interpretReserve(category ReserveCategory, age int, amh float64, percentile int) string {
	detail := fmt.Sprintf("(AMH %g ng/mL, %dth percentile for age %d)", amh, percentile, age)
	switch category {
	case ReserveVeryLow:
		return fmt.Sprintf("Very low ovarian reserve %s. Significantly reduced egg quantity.", detail)
	case ReserveLow:
		return fmt.Sprintf("Low ovarian reserve %s. Below average egg quantity for age.", detail)
	case ReserveNormal:
		return fmt.Sprintf("Normal ovarian reserve %s. Age-appropriate egg quantity.", detail)
	case ReserveHigh:
		return fmt.Sprintf("High ovarian reserve %s. Above average egg quantity.", detail)
	default:
		return fmt.Sprintf("Very high ovarian reserve %s. Risk of OHSS with stimulation.", detail)
	}
}

func reserveRecommendations(category ReserveCategory) []string {
	switch category {
	case ReserveVeryLow:
		return []string{
			"Urgent fertility consultation recommended",
			"Consider immediate fertility preservation if pregnancy desired",
			"IVF with PGT-A may be beneficial",
			"Donor egg consultation if pregnancy desired",
			"Repeat AMH in 6 months to confirm trend",
		}
	case ReserveLow:
		return []string{
			"Expedited fertility evaluation if pregnancy desired",
			"Consider fertility preservation options",
			"IVF may require modified stimulation protocols",
			"Genetic counseling if family planning",
			"Lifestyle optimization for fertility",
		}
	case ReserveNormal:
		return []string{
			"Standard fertility evaluation timeline appropriate",
			"Maintain healthy lifestyle for reproductive health",
			"Annual reproductive health checkups",
			"Consider fertility preservation after age 35 if delaying pregnancy",
		}
	default: // high and very high
		return []string{
			"Risk of ovarian hyperstimulation syndrome (OHSS) with fertility treatments",
			"Modified stimulation protocols recommended for IVF",
			"Consider freeze-all strategy if undergoing IVF",
			"PCOS screening recommended",
		}
	}
}

// IVFInput are the inputs for an IVF success prediction. CycleType is "fresh"
// or "frozen" and defaults to fresh. BMI and Diagnosis are optional.
type IVFInput struct {
	Age              int
	AMH              float64
	CycleType        string
	PriorPregnancies int
	BMI              *float64
	Diagnosis        string
}

// IVFResult is the predicted outcome of one IVF cycle.
type IVFResult struct {
	LiveBirthRate     float64            `json:"live_birth_rate"`
	ConfidenceLow     float64            `json:"confidence_low"`
	ConfidenceHigh    float64            `json:"confidence_high"`
	CumulativeSuccess float64            `json:"cumulative_success_3_cycles"`
	AgeAdjustedRate   float64            `json:"age_adjusted_rate"`
	AMHAdjustedRate   float64            `json:"amh_adjusted_rate"`
	ClinicalFactors   map[string]float64 `json:"clinical_factors"`
	Recommendations   []string           `json:"recommendations"`
}

// PredictIVFSuccess estimates the per-cycle live birth rate from SART
// age-bracket data with AMH, pregnancy history, BMI and diagnosis
// adjustments.
func PredictIVFSuccess(in IVFInput) (*IVFResult, error) {
	if in.Age <= 0 {
		return nil, errors.New("calculators: age must be positive")
	}
	cycleType := in.CycleType
	if cycleType == "" {
		cycleType = "fresh"
	}
	if cycleType != "fresh" && cycleType != "frozen" {
		return nil, fmt.Errorf("calculators: unknown cycle type %q", cycleType)
	}

	baseRate := baseIVFRate(in.Age, cycleType)
	amhAdjusted := adjustForAMH(baseRate, in.Age, in.AMH)

	finalRate := amhAdjusted
	factors := map[string]float64{"base_age_rate": baseRate}

	if in.PriorPregnancies > 0 {
		boost := math.Min(15, float64(in.PriorPregnancies)*8)
		finalRate *= 1 + boost/100
		factors["prior_pregnancy_boost"] = boost
	}
	if in.BMI != nil {
		adj := bmiAdjustment(*in.BMI)
		finalRate *= 1 + adj/100
		factors["bmi_adjustment"] = adj
	}
	if in.Diagnosis != "" {
		adj := diagnosisAdjustment(in.Diagnosis)
		finalRate *= 1 + adj/100
		factors["diagnosis_adjustment"] = adj
	}

	finalRate = math.Max(1.0, math.Min(75.0, finalRate))
	cumulative := (1 - math.Pow(1-finalRate/100, 3)) * 100

	return &IVFResult{
		LiveBirthRate:     round1(finalRate),
		ConfidenceLow:     round1(math.Max(1.0, finalRate-8)),
		ConfidenceHigh:    round1(math.Min(75.0, finalRate+8)),
		CumulativeSuccess: round1(cumulative),
		AgeAdjustedRate:   round1(baseRate),
		AMHAdjustedRate:   round1(amhAdjusted),
		ClinicalFactors:   factors,
		Recommendations:   ivfRecommendations(finalRate, in.Age, in.AMH),
	}, nil
}

func baseIVFRate(age int, cycleType string) float64 {
	var bracket string
	switch {
	case age < 35:
		bracket = "under_35"
	case age <= 37:
		bracket = "35_37"
	case age <= 40:
		bracket = "38_40"
	case age <= 42:
		bracket = "41_42"
	case age <= 44:
		bracket = "43_44"
	default:
		bracket = "over_44"
	}
	return ivfSuccessRates[bracket][cycleType]
}

func adjustForAMH(baseRate float64, age int, amh float64) float64 {
	expected := amhPercentiles[closestAMHBracket(age)].p50
	ratio := amh / expected

	var adjustment float64
	switch {
	case ratio < 0.25:
		adjustment = -25
	case ratio < 0.5:
		adjustment = -15
	case ratio < 0.75:
		adjustment = -8
	case ratio > 2.0:
		adjustment = 5
	default:
		adjustment = 0
	}
	return baseRate * (1 + adjustment/100)
}

func bmiAdjustment(bmi float64) float64 {
	switch {
	case bmi < 18.5:
		return -8
	case bmi > 30:
		return -12
	case bmi > 25:
		return -5
	default:
		return 0
	}
}

func diagnosisAdjustment(diagnosis string) float64 {
	adjustments := map[string]float64{
		"unexplained":                0,
		"male_factor":                8,
		"ovulatory":                  5,
		"tubal":                      -3,
		"endometriosis":              -8,
		"diminished_ovarian_reserve": -15,
		"uterine":                    -10,
	}
	return adjustments[strings.ToLower(diagnosis)]
}

func ivfRecommendations(successRate float64, age int, amh float64) []string {
	var recommendations []string

	switch {
	case successRate < 10:
		recommendations = append(recommendations,
			"Success rate is low - consider donor egg IVF",
			"Genetic counseling recommended",
			"Consider multiple cycle planning",
			"Discuss realistic expectations with fertility specialist",
		)
	case successRate < 20:
		recommendations = append(recommendations,
			"Modified stimulation protocols may be beneficial",
			"Consider PGT-A testing",
			"Plan for potentially multiple cycles",
			"Optimize health before treatment",
		)
	case successRate >= 40:
		recommendations = append(recommendations,
			"Good prognosis for IVF success",
			"Single embryo transfer recommended to reduce multiple pregnancy risk",
			"Consider freeze-all strategy if high AMH",
		)
	}

	if age >= 42 {
		recommendations = append(recommendations, "Time-sensitive - expedited treatment recommended")
	} else if age >= 38 {
		recommendations = append(recommendations, "Consider accelerated treatment timeline")
	}

	if amh < 1.0 {
		recommendations = append(recommendations, "Low AMH - consider mini-IVF or natural cycle protocols")
	} else if amh > 5.0 {
		recommendations = append(recommendations, "High AMH - monitor for OHSS risk")
	}

	return recommendations
}

// MenopauseInput are the inputs for a menopause timing prediction.
// FamilyHistory is "early" (<45), "normal" (45-55) or "late" (>55).
type MenopauseInput struct {
	Age           int
	AMH           float64
	Smoking       bool
	BMI           *float64
	FamilyHistory string
	Ethnicity     string
	Parity        int
}

// MenopauseResult is a menopause timing prediction.
type MenopauseResult struct {
	PredictedAge      float64        `json:"predicted_age"`
	ConfidenceLow     float64        `json:"confidence_low"`
	ConfidenceHigh    float64        `json:"confidence_high"`
	Stage             MenopauseStage `json:"current_stage"`
	YearsRemaining    float64        `json:"time_to_menopause_years"`
	FertilityWindow   bool           `json:"fertility_window_remaining"`
	RiskFactors       []string       `json:"risk_factors"`
	ProtectiveFactors []string       `json:"protective_factors"`
	Recommendations   []string       `json:"recommendations"`
}

// PredictMenopauseTiming estimates the age at menopause from AMH and age with
// SWAN cohort factor effects.
func PredictMenopauseTiming(in MenopauseInput) (*MenopauseResult, error) {
	if in.Age <= 0 {
		return nil, errors.New("calculators: age must be positive")
	}
	if in.AMH < 0 {
		return nil, errors.New("calculators: amh must not be negative")
	}

	adjusted := baseMenopausePrediction(in.Age, in.AMH)
	var riskFactors, protectiveFactors []string

	if in.Smoking {
		adjusted += menopauseFactors["smoking"]
		riskFactors = append(riskFactors, "Current smoking")
	}
	if in.BMI != nil && *in.BMI > 30 {
		adjusted += menopauseFactors["bmi_over_30"]
		protectiveFactors = append(protectiveFactors, "Higher BMI")
	}
	if in.FamilyHistory == "early" {
		adjusted += menopauseFactors["family_history_early"]
		riskFactors = append(riskFactors, "Family history of early menopause")
	}
	if in.Parity == 0 {
		adjusted += menopauseFactors["nulliparity"]
		riskFactors = append(riskFactors, "Nulliparity")
	}
	switch ethnicity := strings.ToLower(in.Ethnicity); {
	case strings.Contains(ethnicity, "chinese"):
		adjusted += menopauseFactors["chinese_ethnicity"]
		protectiveFactors = append(protectiveFactors, "Chinese ethnicity")
	case strings.Contains(ethnicity, "japanese"):
		adjusted += menopauseFactors["japanese_ethnicity"]
		protectiveFactors = append(protectiveFactors, "Japanese ethnicity")
	}

	const uncertainty = 2.5
	stage := reproductiveStage(in.Age, in.AMH)
	remaining := math.Max(0, adjusted-float64(in.Age))

	return &MenopauseResult{
		PredictedAge:      round1(adjusted),
		ConfidenceLow:     round1(math.Max(40, adjusted-uncertainty)),
		ConfidenceHigh:    round1(math.Min(65, adjusted+uncertainty)),
		Stage:             stage,
		YearsRemaining:    round1(remaining),
		FertilityWindow:   remaining > 2 && in.AMH > 0.5,
		RiskFactors:       riskFactors,
		ProtectiveFactors: protectiveFactors,
		Recommendations:   menopauseRecommendations(remaining, stage, riskFactors),
	}, nil
}

// baseMenopausePrediction applies a simplified AMH-based model:
// log(years to menopause) = b0 + b1*log(AMH) + b2*age.
func baseMenopausePrediction(age int, amh float64) float64 {
	if amh <= 0.01 {
		return float64(age) + 0.5
	}

	const (
		beta0 = 3.8
		beta1 = 0.4
		beta2 = -0.02
	)
	years := math.Exp(beta0 + beta1*math.Log(amh) + beta2*float64(age))
	years = math.Max(0.5, math.Min(15, years))
	return float64(age) + years
}

func reproductiveStage(age int, amh float64) MenopauseStage {
	switch {
	case age < 40 && amh > 2.0:
		return StageReproductive
	case age < 45 && amh > 1.0:
		return StageReproductive
	case amh > 0.5:
		return StageEarlyTransition
	case amh > 0.1:
		return StageLateTransition
	case age < 65:
		return StageEarlyPostmenopause
	default:
		return StageLatePostmenopause
	}
}

func menopauseRecommendations(yearsRemaining float64, stage MenopauseStage, riskFactors []string) []string {
	var recommendations []string

	switch stage {
	case StageReproductive:
		recommendations = append(recommendations,
			"Regular reproductive health monitoring",
			"Consider fertility preservation if delaying pregnancy",
			"Maintain bone health with weight-bearing exercise",
		)
	case StageEarlyTransition:
		recommendations = append(recommendations,
			"Monitor for irregular menstrual cycles",
			"Discuss contraception needs (still fertile)",
			"Begin bone density screening",
			"Consider cardiovascular risk assessment",
		)
	case StageLateTransition:
		recommendations = append(recommendations,
			"Expect increasing menopausal symptoms",
			"Discuss hormone therapy options",
			"Optimize bone health and cardiovascular health",
			"Consider fertility preservation if pregnancy desired",
		)
	}

	if yearsRemaining < 5 {
		recommendations = append(recommendations, "Consider expedited fertility evaluation if pregnancy desired")
	}
	for _, factor := range riskFactors {
		if factor == "Current smoking" {
			recommendations = append(recommendations, "Smoking cessation counseling to delay menopause")
		}
	}
	return recommendations
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
