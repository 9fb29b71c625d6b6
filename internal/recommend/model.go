package recommend

import (
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"foodassist-backend/internal/parser"
)

// DefaultConfidence is assigned to recommendations produced by this pipeline.
const DefaultConfidence = 0.85

// NutritionInfo is the structured nutrition estimate of a recommendation.
type NutritionInfo struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Recommendation is one structured dish suggestion. Immutable after
// creation; persisted as a history record once accepted.
type Recommendation struct {
	ID             string         `json:"id"`
	FoodName       string         `json:"foodName"`
	Cuisine        string         `json:"cuisine"`
	Reason         string         `json:"reason"`
	Confidence     float64        `json:"confidence"`
	EstimatedPrice *int           `json:"estimatedPrice,omitempty"`
	Nutrition      *NutritionInfo `json:"nutrition,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// newRecommendation builds a Recommendation from parsed engine output.
// Nutrition and price are extracted from the raw field text best-effort
// and left unset when nothing usable is found.
func newRecommendation(parsed parser.Parsed, now time.Time) Recommendation {
	return Recommendation{
		ID:             uuid.NewString(),
		FoodName:       parsed.FoodName,
		Cuisine:        parsed.Cuisine,
		Reason:         parsed.Reason,
		Confidence:     DefaultConfidence,
		EstimatedPrice: parsePrice(parsed.Price),
		Nutrition:      parseNutrition(parsed.Nutrition),
		Timestamp:      now,
	}
}

var (
	priceRe    = regexp.MustCompile(`\d+`)
	caloriesRe = regexp.MustCompile(`(\d+)\s*卡`)
	proteinRe  = regexp.MustCompile(`蛋白质\s*([\d.]+)\s*g`)
	carbsRe    = regexp.MustCompile(`碳水\s*([\d.]+)\s*g`)
	fatRe      = regexp.MustCompile(`脂肪\s*([\d.]+)\s*g`)
)

// parsePrice extracts the lower bound of a price range like "18-28元".
func parsePrice(raw string) *int {
	m := priceRe.FindString(raw)
	if m == "" {
		return nil
	}
	price, err := strconv.Atoi(m)
	if err != nil || price < 0 {
		return nil
	}
	return &price
}

// parseNutrition extracts a summary like
// "约280卡 | 蛋白质18g | 碳水12g | 脂肪16g". Calories are required for a
// usable estimate; the macro fields default to zero when absent.
func parseNutrition(raw string) *NutritionInfo {
	m := caloriesRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	calories, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &NutritionInfo{
		Calories: calories,
		Protein:  parseGrams(proteinRe, raw),
		Carbs:    parseGrams(carbsRe, raw),
		Fat:      parseGrams(fatRe, raw),
	}
}

func parseGrams(re *regexp.Regexp, raw string) float64 {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	grams, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return grams
}
