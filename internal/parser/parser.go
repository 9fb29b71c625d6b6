package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Field names the engine is instructed to emit.
const (
	fieldFoodName  = "推荐菜品"
	fieldCuisine   = "所属菜系"
	fieldReason    = "推荐理由"
	fieldNutrition = "营养信息"
	fieldPrice     = "参考价格"
)

// UnknownCuisine is substituted when the cuisine field is absent.
const UnknownCuisine = "未知"

// ErrMissingFoodName indicates the mandatory dish-name field was absent.
var ErrMissingFoodName = errors.New("无法解析推荐菜品")

// Parsed holds the fields extracted from one engine response. Nutrition and
// Price are raw text, empty when the field was absent.
type Parsed struct {
	FoodName  string
	Cuisine   string
	Reason    string
	Nutrition string
	Price     string
}

// Parse extracts the five tagged fields from free-text engine output.
// The dish name is mandatory; other fields have defaults. Parse never
// panics: extraction failures are returned as errors.
func Parse(text string) (parsed Parsed, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed = Parsed{}
			err = fmt.Errorf("解析失败: %v", r)
		}
	}()

	foodName, ok := extractField(text, fieldFoodName)
	if !ok {
		return Parsed{}, ErrMissingFoodName
	}

	parsed = Parsed{
		FoodName:  foodName,
		Cuisine:   UnknownCuisine,
		Reason:    "",
		Nutrition: "",
		Price:     "",
	}
	if cuisine, ok := extractField(text, fieldCuisine); ok {
		parsed.Cuisine = cuisine
	}
	if reason, ok := extractField(text, fieldReason); ok {
		parsed.Reason = reason
	}
	if nutrition, ok := extractField(text, fieldNutrition); ok {
		parsed.Nutrition = nutrition
	}
	if price, ok := extractField(text, fieldPrice); ok {
		parsed.Price = price
	}
	return parsed, nil
}

// extractField supports two delimiter conventions: 【字段】value terminated
// by the next bracket tag or end of text, and 字段: / 字段：value terminated
// by newline or end of text. The bracket form is tried first.
func extractField(text, field string) (string, bool) {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?s)【` + regexp.QuoteMeta(field) + `】([^【]*)`),
		regexp.MustCompile(regexp.QuoteMeta(field) + `[:：]([^\n]*)`),
	}
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			value := strings.TrimSpace(m[1])
			if value != "" {
				return value, true
			}
		}
	}
	return "", false
}
